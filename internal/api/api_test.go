package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chrisw65/market-profile/internal/cache"
	"github.com/chrisw65/market-profile/internal/campaign"
	"github.com/chrisw65/market-profile/internal/components/chrono"
	"github.com/chrisw65/market-profile/internal/components/telemetry"
	"github.com/chrisw65/market-profile/internal/ratelimit"
	"github.com/chrisw65/market-profile/internal/skool/model"
	"github.com/chrisw65/market-profile/internal/skool/service"
	"github.com/chrisw65/market-profile/internal/store"
	"github.com/chrisw65/market-profile/lib/configutil/dbconfig"
	"github.com/chrisw65/market-profile/lib/testutil"

	"github.com/stretchr/testify/require"
)

type fakeScraper struct {
	profile *model.CommunityProfile
	calls   atomic.Int64
	lastOpt atomic.Value
}

func (f *fakeScraper) Snapshot(_ context.Context, slug string, opts service.SnapshotOptions) model.Snapshot {
	f.calls.Add(1)
	f.lastOpt.Store(opts)
	snapshot := model.Snapshot{
		Slug:      slug,
		Profile:   f.profile,
		Classroom: []model.SkoolItem{{Type: model.ItemModule, ID: "m1", Title: "Module One", Comments: []model.Comment{}, Media: []string{}}},
		Posts:     []model.SkoolItem{{Type: model.ItemPost, ID: "p1", Title: "Post One", Comments: []model.Comment{}, Media: []string{}}},
	}
	if f.profile == nil {
		snapshot.Unavailable = []string{model.SectionProfile}
	}
	return snapshot
}

type countingGenerator struct {
	calls atomic.Int64
}

func (g *countingGenerator) Generate(_ context.Context, input campaign.Input) (string, error) {
	g.calls.Add(1)
	return fmt.Sprintf("ideas for %s", input.Slug), nil
}

type testServer struct {
	scraper   *fakeScraper
	generator *countingGenerator
	store     store.Store
	handler   http.Handler
}

func newTestServer(t *testing.T, profile *model.CommunityProfile, token string) testServer {
	clock := chrono.NewManualTime(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	db := testutil.SetupDB(t, testutil.DBParams{})
	st, err := store.Open(context.Background(), db, dbconfig.DriverSqlite, clock)
	require.NoError(t, err)

	scraper := &fakeScraper{profile: profile}
	generator := &countingGenerator{}
	server := NewServer(Options{
		Scraper:     scraper,
		Store:       st,
		Generator:   generator,
		Limiter:     ratelimit.NewLimiter(clock),
		Results:     cache.NewResults(clock),
		AccessToken: token,
		Telemetry:   &telemetry.Recorder{},
	})
	return testServer{
		scraper:   scraper,
		generator: generator,
		store:     st,
		handler:   server.Handler(),
	}
}

func (s testServer) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func sampleProfile() *model.CommunityProfile {
	return &model.CommunityProfile{
		Community:  model.Community{Slug: "growth-lab", Name: "Growth Lab"},
		ValueStack: model.ValueStack{Promise: "Grow faster"},
		Keywords:   []string{"growth"},
	}
}

func TestInvalidSlug(t *testing.T) {
	s := newTestServer(t, sampleProfile(), "")
	table := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/api/profiles/%20"},
		{http.MethodPost, "/api/profiles/%20/scrape"},
		{http.MethodPost, "/api/profiles/%20/save"},
		{http.MethodGet, "/api/profiles/%20/saved"},
		{http.MethodGet, "/api/campaign/%20"},
		{http.MethodGet, "/api/profiles/growth.lab"},
	}
	for _, test := range table {
		rec, body := s.do(t, test.method, test.target, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, test.target)
		require.Equal(t, "Invalid slug", body["error"], test.target)
	}
	require.Zero(t, s.scraper.calls.Load())
}

func TestGetProfile(t *testing.T) {
	s := newTestServer(t, sampleProfile(), "")
	rec, body := s.do(t, http.MethodGet, "/api/profiles/growth-lab", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, body["profile"])
	require.Len(t, body["classroom"], 1)
	require.NotContains(t, body, "error")
	require.Equal(t, service.SnapshotOptions{MaxModules: 50, MaxPosts: 50}, s.scraper.lastOpt.Load())

	s = newTestServer(t, nil, "")
	rec, body = s.do(t, http.MethodGet, "/api/profiles/growth-lab", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, body["profile"])
	require.Equal(t, msgProfileUnavailable, body["error"])
}

func TestScrapeAutoSaves(t *testing.T) {
	s := newTestServer(t, sampleProfile(), "")

	rec, body := s.do(t, http.MethodPost, "/api/profiles/growth-lab/scrape", `{"autoSave": false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["success"])
	_, err := s.store.LatestSnapshot(context.Background(), "growth-lab")
	require.ErrorIs(t, err, store.ErrNotFound)

	rec, _ = s.do(t, http.MethodPost, "/api/profiles/growth-lab/scrape", "")
	require.Equal(t, http.StatusOK, rec.Code)
	saved, err := s.store.LatestSnapshot(context.Background(), "growth-lab")
	require.NoError(t, err)
	require.Equal(t, "Growth Lab", saved.Profile.Community.Name)

	rec, body = s.do(t, http.MethodGet, "/api/profiles/growth-lab/saved", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["found"])
	require.Len(t, body["posts"], 1)
	require.NotEmpty(t, body["cached_at"])
}

func TestScrapeUnavailable(t *testing.T) {
	s := newTestServer(t, nil, "")

	rec, body := s.do(t, http.MethodPost, "/api/profiles/growth-lab/scrape", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Nil(t, body["profile"])
	require.Len(t, body["classroom"], 1)
	require.Equal(t, msgScrapeUnavailable, body["error"])

	rec, body = s.do(t, http.MethodPost, "/api/profiles/growth-lab/save", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, msgSaveUnavailable, body["error"])

	rec, body = s.do(t, http.MethodGet, "/api/profiles/growth-lab/saved", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, false, body["found"])
	require.Equal(t, msgNoSavedProfile, body["message"])
}

func TestSaveAndListCommunities(t *testing.T) {
	s := newTestServer(t, sampleProfile(), "")

	rec, body := s.do(t, http.MethodPost, "/api/profiles/growth-lab/save", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["success"])

	rec, body = s.do(t, http.MethodGet, "/api/communities", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].([]any)
	require.Len(t, data, 1)
	require.Equal(t, "growth-lab", data[0].(map[string]any)["slug"])
}

func TestGenerateCampaign(t *testing.T) {
	s := newTestServer(t, sampleProfile(), "")

	rec, body := s.do(t, http.MethodGet, "/api/campaign/growth-lab", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ideas for growth-lab", body["ideas"])
	require.NotContains(t, body, "warning")
	require.Equal(t,
		service.SnapshotOptions{MaxModules: campaign.MaxSectionItems, MaxPosts: campaign.MaxSectionItems},
		s.scraper.lastOpt.Load(),
	)

	s.do(t, http.MethodGet, "/api/campaign/growth-lab", "")
	require.Equal(t, int64(1), s.generator.calls.Load())
}

func TestGenerateCampaignWithoutProfile(t *testing.T) {
	s := newTestServer(t, nil, "")

	rec, body := s.do(t, http.MethodGet, "/api/campaign/growth-lab", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, msgLiveUnavailable, body["warning"])

	s.do(t, http.MethodGet, "/api/campaign/growth-lab", "")
	require.Equal(t, int64(2), s.generator.calls.Load())
}

func TestCampaignCrud(t *testing.T) {
	s := newTestServer(t, sampleProfile(), "")

	rec, body := s.do(t, http.MethodPost, "/api/campaigns", `{"title": "Launch"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, msgSlugRequired, body["error"])

	rec, body = s.do(t, http.MethodPost, "/api/campaigns", `{"slug": "growth-lab/about", "ideas": "run ads"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["ok"])
	entry := body["entry"].(map[string]any)
	require.Equal(t, "growth-lab", entry["slug"])
	id := entry["id"].(string)

	_, body = s.do(t, http.MethodPost, "/api/campaigns", `{"slug": "other", "ideas": "more ads"}`)
	require.Equal(t, true, body["ok"])

	rec, body = s.do(t, http.MethodGet, "/api/campaigns?slug=growth-lab", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["entries"], 1)

	_, body = s.do(t, http.MethodGet, "/api/campaigns", "")
	require.Len(t, body["entries"], 2)

	rec, _ = s.do(t, http.MethodDelete, "/api/campaigns/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body = s.do(t, http.MethodDelete, "/api/campaigns/"+id, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, msgCampaignNotFound, body["error"])
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, sampleProfile(), "")

	for i := 0; i < ratelimit.Expensive.Limit; i++ {
		rec, _ := s.do(t, http.MethodGet, "/api/profiles/growth-lab", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, fmt.Sprint(ratelimit.Expensive.Limit-i-1), rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec, body := s.do(t, http.MethodGet, "/api/profiles/growth-lab", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	require.NotEmpty(t, body["error"])

	// reads use a separate allowance
	rec, _ = s.do(t, http.MethodGet, "/api/communities", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAccessToken(t *testing.T) {
	s := newTestServer(t, sampleProfile(), "secret")

	rec, _ := s.do(t, http.MethodGet, "/api/communities", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/communities", nil)
	req.Header.Set("Authorization", "Bearer secret")
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, fmt.Sprint(ratelimit.Authenticated.Limit-1), recorder.Header().Get("X-RateLimit-Remaining"))
}

func TestClientIP(t *testing.T) {
	table := []struct {
		name     string
		headers  map[string]string
		remote   string
		expected string
	}{
		{name: "forwarded", headers: map[string]string{"X-Forwarded-For": "1.1.1.1, 10.0.0.1"}, remote: "10.0.0.2:1234", expected: "1.1.1.1"},
		{name: "real ip", headers: map[string]string{"X-Real-Ip": "2.2.2.2"}, remote: "10.0.0.2:1234", expected: "2.2.2.2"},
		{name: "remote", remote: "3.3.3.3:4444", expected: "3.3.3.3"},
	}
	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = test.remote
			for k, v := range test.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, test.expected, clientIP(req))
		})
	}
}

type failingStore struct {
	Store
}

func (failingStore) DeleteCampaign(context.Context, string) error {
	return errors.New("store: delete campaign: database is locked (/var/lib/market-profile/state.db)")
}

func TestDeleteCampaignHidesStoreErrors(t *testing.T) {
	base := newTestServer(t, sampleProfile(), "")
	clock := chrono.NewManualTime(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	tel := &telemetry.Recorder{}
	server := NewServer(Options{
		Scraper:   base.scraper,
		Store:     failingStore{Store: base.store},
		Generator: base.generator,
		Limiter:   ratelimit.NewLimiter(clock),
		Telemetry: tel,
	})
	s := testServer{handler: server.Handler()}

	rec, body := s.do(t, http.MethodDelete, "/api/campaigns/abc", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Unable to delete campaign.", body["error"])
	require.NotContains(t, rec.Body.String(), "state.db")
	require.Len(t, tel.Reports("broken"), 1)
}
