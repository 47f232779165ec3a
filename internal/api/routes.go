package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/chrisw65/market-profile/internal/cache"
	"github.com/chrisw65/market-profile/internal/campaign"
	"github.com/chrisw65/market-profile/internal/skool/model"
	"github.com/chrisw65/market-profile/internal/skool/service"
	"github.com/chrisw65/market-profile/internal/skool/slug"
	"github.com/chrisw65/market-profile/internal/store"
)

const (
	msgInvalidSlug        = "Invalid slug"
	msgProfileUnavailable = "Unable to load the Skool profile at this time."
	msgScrapeUnavailable  = "Unable to load the community profile. This may be due to network issues or Skool blocking automated access. Try again in a few minutes."
	msgSaveUnavailable    = "Unable to load the community profile right now."
	msgSaveFailed         = "Unable to save profile to workspace."
	msgNoSavedProfile     = "No saved profile found. Scrape the community to fetch fresh data."
	msgSavedUnavailable   = "Database error. Scrape the community to fetch fresh data."
	msgLiveUnavailable    = "Live profile data temporarily unavailable."
	msgCampaignsWarning   = "Saved campaigns temporarily unavailable."
	msgSlugRequired       = "Slug is required."
	msgCampaignSaveFailed = "Unable to save campaign."
	msgCampaignNotFound   = "Campaign not found."
	msgCampaignDelete     = "Unable to delete campaign."
	msgCampaignFailed     = "Unable to generate campaign ideas."
	msgCommunitiesFailed  = "Unable to list communities."
)

// pathSlug normalizes the slug path value, it writes a 400 and returns "" when
// the slug is invalid.
func pathSlug(w http.ResponseWriter, r *http.Request) string {
	normalized := slug.Normalize(r.PathValue("slug"))
	if slug.Validate(normalized) != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: msgInvalidSlug})
		return ""
	}
	return normalized
}

type profileResponse struct {
	Success   bool                    `json:"success,omitempty"`
	Profile   *model.CommunityProfile `json:"profile"`
	Classroom []model.SkoolItem       `json:"classroom"`
	Posts     []model.SkoolItem       `json:"posts"`
	Error     string                  `json:"error,omitempty"`
}

func (s Server) snapshot(r *http.Request, slug string, limit int) model.Snapshot {
	return s.Scraper.Snapshot(r.Context(), slug, service.SnapshotOptions{
		MaxModules: limit,
		MaxPosts:   limit,
	})
}

func (s Server) getProfile(w http.ResponseWriter, r *http.Request) {
	slug := pathSlug(w, r)
	if slug == "" {
		return
	}

	snapshot := s.snapshot(r, slug, ProfileSectionLimit)
	res := profileResponse{
		Profile:   snapshot.Profile,
		Classroom: snapshot.Classroom,
		Posts:     snapshot.Posts,
	}
	if snapshot.Profile == nil {
		res.Error = msgProfileUnavailable
	}
	writeJSON(w, http.StatusOK, res)
}

type scrapeRequest struct {
	AutoSave *bool `json:"autoSave"`
}

func (s Server) scrapeProfile(w http.ResponseWriter, r *http.Request) {
	slug := pathSlug(w, r)
	if slug == "" {
		return
	}

	// a missing or malformed body keeps the defaults
	var req scrapeRequest
	_ = json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req)
	autoSave := req.AutoSave == nil || *req.AutoSave

	snapshot := s.snapshot(r, slug, ProfileSectionLimit)
	if snapshot.Profile == nil {
		s.tel.ReportWarning(report_api_scrape, "no profile data", slug)
		writeJSON(w, http.StatusServiceUnavailable, profileResponse{
			Classroom: snapshot.Classroom,
			Posts:     snapshot.Posts,
			Error:     msgScrapeUnavailable,
		})
		return
	}

	if autoSave {
		err := s.Store.SaveSnapshot(r.Context(), snapshot)
		if err != nil {
			// the scrape itself succeeded
			s.tel.ReportBroken(report_api_save, err, slug)
		}
	}

	writeJSON(w, http.StatusOK, profileResponse{
		Success:   true,
		Profile:   snapshot.Profile,
		Classroom: snapshot.Classroom,
		Posts:     snapshot.Posts,
	})
}

type successResponse struct {
	Success bool `json:"success"`
}

func (s Server) saveProfile(w http.ResponseWriter, r *http.Request) {
	slug := pathSlug(w, r)
	if slug == "" {
		return
	}

	snapshot := s.snapshot(r, slug, ProfileSectionLimit)
	if snapshot.Profile == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: msgSaveUnavailable})
		return
	}
	err := s.Store.SaveSnapshot(r.Context(), snapshot)
	if err != nil {
		s.tel.ReportBroken(report_api_save, err, slug)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgSaveFailed})
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

type notFoundResponse struct {
	Found   bool   `json:"found"`
	Message string `json:"message"`
}

type savedResponse struct {
	Found     bool                    `json:"found"`
	Profile   *model.CommunityProfile `json:"profile"`
	Classroom []model.SkoolItem       `json:"classroom"`
	Posts     []model.SkoolItem       `json:"posts"`
	CachedAt  time.Time               `json:"cached_at"`
}

func (s Server) savedProfile(w http.ResponseWriter, r *http.Request) {
	slug := pathSlug(w, r)
	if slug == "" {
		return
	}

	saved, err := s.Store.LatestSnapshot(r.Context(), slug)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, notFoundResponse{Message: msgNoSavedProfile})
		return
	}
	if err != nil {
		// a 404 tells the client to fall back to scraping
		s.tel.ReportBroken(report_api_saved, err, slug)
		writeJSON(w, http.StatusNotFound, notFoundResponse{Message: msgSavedUnavailable})
		return
	}

	classroom := saved.Classroom
	if classroom == nil {
		classroom = []model.SkoolItem{}
	}
	posts := saved.Posts
	if posts == nil {
		posts = []model.SkoolItem{}
	}
	writeJSON(w, http.StatusOK, savedResponse{
		Found:     true,
		Profile:   saved.Profile,
		Classroom: classroom,
		Posts:     posts,
		CachedAt:  saved.UpdatedAt,
	})
}

type campaignResponse struct {
	Ideas   string `json:"ideas"`
	Warning string `json:"warning,omitempty"`
}

func (s Server) generateCampaign(w http.ResponseWriter, r *http.Request) {
	slug := pathSlug(w, r)
	if slug == "" {
		return
	}

	key := cache.Key("campaign", slug)
	if s.Results != nil {
		res, ok := cache.Get[campaignResponse](s.Results, key)
		if ok {
			writeJSON(w, http.StatusOK, res)
			return
		}
	}

	snapshot := s.snapshot(r, slug, campaign.MaxSectionItems)
	input := campaign.InputFrom(slug, snapshot.Profile, snapshot.Classroom, snapshot.Posts)
	ideas, err := s.Generator.Generate(r.Context(), input)
	if err != nil {
		s.tel.ReportBroken(report_api_campaign, err, slug)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgCampaignFailed})
		return
	}

	res := campaignResponse{Ideas: ideas}
	if snapshot.Profile == nil {
		res.Warning = msgLiveUnavailable
	} else if s.Results != nil {
		// only ideas built from a live profile are cached
		cache.Set(s.Results, key, res, cache.TTLCampaign)
	}
	writeJSON(w, http.StatusOK, res)
}

type campaignsResponse struct {
	Entries []store.Campaign `json:"entries"`
	Warning string           `json:"warning,omitempty"`
}

func (s Server) listCampaigns(w http.ResponseWriter, r *http.Request) {
	filter := slug.Normalize(r.URL.Query().Get("slug"))
	entries, err := s.Store.ListCampaigns(r.Context(), filter)
	if err != nil {
		s.tel.ReportBroken(report_api_campaigns, err, filter)
		writeJSON(w, http.StatusOK, campaignsResponse{
			Entries: []store.Campaign{},
			Warning: msgCampaignsWarning,
		})
		return
	}
	writeJSON(w, http.StatusOK, campaignsResponse{Entries: entries})
}

type createCampaignRequest struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Notes string `json:"notes"`
	Ideas string `json:"ideas"`
}

type createCampaignResponse struct {
	Ok    bool           `json:"ok"`
	Entry store.Campaign `json:"entry"`
}

func (s Server) createCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	_ = json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req)

	normalized := slug.Normalize(req.Slug)
	if normalized == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: msgSlugRequired})
		return
	}

	entry, err := s.Store.SaveCampaign(r.Context(), store.Campaign{
		Slug:  normalized,
		Title: req.Title,
		Notes: req.Notes,
		Ideas: req.Ideas,
	})
	if err != nil {
		s.tel.ReportBroken(report_api_campaigns, err, normalized)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgCampaignSaveFailed})
		return
	}
	writeJSON(w, http.StatusOK, createCampaignResponse{Ok: true, Entry: entry})
}

type okResponse struct {
	Ok bool `json:"ok"`
}

func (s Server) deleteCampaign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.Store.DeleteCampaign(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: msgCampaignNotFound})
		return
	}
	if err != nil {
		s.tel.ReportBroken(report_api_campaigns, err, id)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgCampaignDelete})
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Ok: true})
}

type communitiesResponse struct {
	Data []store.CommunitySummary `json:"data"`
}

func (s Server) listCommunities(w http.ResponseWriter, r *http.Request) {
	data, err := s.Store.ListCommunities(r.Context(), store.DefaultCommunityLimit)
	if err != nil {
		s.tel.ReportBroken(report_api_communities, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgCommunitiesFailed})
		return
	}
	writeJSON(w, http.StatusOK, communitiesResponse{Data: data})
}
