// Package api serves scrape results, saved snapshots and campaigns as JSON
// over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/chrisw65/market-profile/internal/assert"
	"github.com/chrisw65/market-profile/internal/cache"
	"github.com/chrisw65/market-profile/internal/campaign"
	"github.com/chrisw65/market-profile/internal/components/telemetry"
	"github.com/chrisw65/market-profile/internal/ratelimit"
	"github.com/chrisw65/market-profile/internal/skool/model"
	"github.com/chrisw65/market-profile/internal/skool/service"
	"github.com/chrisw65/market-profile/internal/store"
	"github.com/chrisw65/market-profile/lib/util/serviceutil"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	report_api_scrape    = "api.scrape"
	report_api_save      = "api.save"
	report_api_saved     = "api.saved"
	report_api_campaigns = "api.campaigns"
	report_api_campaign  = "api.campaign"

	report_api_communities = "api.communities"
)

const (
	// ProfileSectionLimit caps the classroom and feed of profile routes.
	ProfileSectionLimit = 50
)

// Scraper is the part of service.Service the API depends on.
//
// note: fault injection point
type Scraper interface {
	Snapshot(ctx context.Context, slug string, opts service.SnapshotOptions) model.Snapshot
}

// Store is the part of store.Store the API depends on.
//
// note: fault injection point
type Store interface {
	SaveSnapshot(ctx context.Context, snapshot model.Snapshot) error
	LatestSnapshot(ctx context.Context, slug string) (store.SavedSnapshot, error)
	ListCommunities(ctx context.Context, limit int) ([]store.CommunitySummary, error)
	SaveCampaign(ctx context.Context, campaign store.Campaign) (store.Campaign, error)
	ListCampaigns(ctx context.Context, slug string) ([]store.Campaign, error)
	DeleteCampaign(ctx context.Context, id string) error
}

type Options struct {
	Scraper   Scraper
	Store     Store
	Generator campaign.Generator
	Limiter   *ratelimit.Limiter
	// Results caches generated campaign ideas, it is optional.
	Results *cache.Results
	// AccessToken requires every request to carry it as a bearer token when
	// it is not empty.
	AccessToken string
	Telemetry   telemetry.API
}

type Server struct {
	Options
	tel telemetry.API
}

func NewServer(opts Options) Server {
	assert.NotNil(opts.Scraper, "scraper")
	assert.NotNil(opts.Store, "store")
	assert.NotNil(opts.Generator, "generator")
	assert.NotNil(opts.Limiter, "limiter")
	assert.NotNil(opts.Telemetry, "telemetry")

	return Server{
		Options: opts,
		tel:     telemetry.NewScopedAPI("api", opts.Telemetry),
	}
}

// Handler returns the routes of the server wrapped in authentication and
// tracing.
func (s Server) Handler() http.Handler {
	mux := http.NewServeMux()

	read := s.limit(s.readPreset())
	expensive := s.limit(ratelimit.Expensive)

	mux.Handle("GET /api/profiles/{slug}", expensive(http.HandlerFunc(s.getProfile)))
	mux.Handle("POST /api/profiles/{slug}/scrape", expensive(http.HandlerFunc(s.scrapeProfile)))
	mux.Handle("POST /api/profiles/{slug}/save", expensive(http.HandlerFunc(s.saveProfile)))
	mux.Handle("GET /api/profiles/{slug}/saved", read(http.HandlerFunc(s.savedProfile)))
	mux.Handle("GET /api/campaign/{slug}", expensive(http.HandlerFunc(s.generateCampaign)))
	mux.Handle("GET /api/campaigns", read(http.HandlerFunc(s.listCampaigns)))
	mux.Handle("POST /api/campaigns", read(http.HandlerFunc(s.createCampaign)))
	mux.Handle("DELETE /api/campaigns/{id}", read(http.HandlerFunc(s.deleteCampaign)))
	mux.Handle("GET /api/communities", read(http.HandlerFunc(s.listCommunities)))

	handler := serviceutil.VerifyAccessToken(s.AccessToken)(mux)
	return otelhttp.NewHandler(handler, "market-profile.api")
}

// readPreset is the limit for cheap routes, requests that passed the access
// token check get the authenticated allowance.
func (s Server) readPreset() ratelimit.Preset {
	if s.AccessToken != "" {
		return ratelimit.Authenticated
	}
	return ratelimit.Anonymous
}

func (s Server) limit(preset ratelimit.Preset) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := s.Limiter.Check(clientIP(r), preset)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(preset.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
			if result.Limited {
				writeJSON(w, http.StatusTooManyRequests, errorBody{
					Error: "Too many requests, please try again later.",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first hop of X-Forwarded-For so limits apply per client
// behind a proxy.
func clientIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		first = strings.TrimSpace(first)
		if first != "" {
			return first
		}
	}
	realIP := strings.TrimSpace(r.Header.Get("X-Real-Ip"))
	if realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
