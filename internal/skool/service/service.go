// Package service composes the loader, extractors and normalizers into the
// scrape operations the rest of the system calls. Every operation is total:
// failures are reported to telemetry and surface as empty results.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chrisw65/market-profile/internal/assert"
	"github.com/chrisw65/market-profile/internal/cache"
	"github.com/chrisw65/market-profile/internal/components/telemetry"
	"github.com/chrisw65/market-profile/internal/skool/extract"
	"github.com/chrisw65/market-profile/internal/skool/loader"
	"github.com/chrisw65/market-profile/internal/skool/model"
	"github.com/chrisw65/market-profile/internal/skool/normalize"
	"github.com/chrisw65/market-profile/internal/skool/profile"
	"github.com/chrisw65/market-profile/internal/skool/slug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("market-profile/internal/skool/service")

const (
	report_service_scrape_classroom = "service.scrape-classroom"
	report_service_scrape_community = "service.scrape-community"
	report_service_fetch_profile    = "service.fetch-community-profile"
)

var (
	errInvalidSlug    = errors.New("invalid slug")
	errGroupNotFound  = errors.New("current group not found in page data")
	errExtractorPanic = errors.New("extraction panicked")
)

// Unlimited disables truncation when used as a section limit.
const Unlimited = -1

type ClassroomOptions struct {
	// MaxModules is the most modules returned, Unlimited returns every module
	// and 0 returns none.
	MaxModules int
}

type CommunityOptions struct {
	// MaxPosts is the most posts returned, Unlimited returns every post and 0
	// returns none.
	MaxPosts int
}

type SnapshotOptions struct {
	MaxModules int
	MaxPosts   int
}

type serviceConfig struct {
	results *cache.Results
	tel     telemetry.API
}

type ServiceOption func(cfg *serviceConfig)

// WithResultsCache memoizes successful scrapes.
func WithResultsCache(results *cache.Results) ServiceOption {
	return func(cfg *serviceConfig) {
		cfg.results = results
	}
}

func WithTelemetry(tel telemetry.API) ServiceOption {
	return func(cfg *serviceConfig) {
		cfg.tel = tel
	}
}

type Service struct {
	loader  loader.PageLoader
	results *cache.Results
	tel     telemetry.API
}

func NewService(pageLoader loader.PageLoader, options ...ServiceOption) Service {
	assert.NotNil(pageLoader, "page loader")

	cfg := serviceConfig{tel: telemetry.SlogAPI{}}
	for _, opt := range options {
		opt(&cfg)
	}

	return Service{
		loader:  pageLoader,
		results: cfg.results,
		tel:     telemetry.NewScopedAPI("skool_service", cfg.tel),
	}
}

// sectionOptions are used for classroom and community pages, which hydrate
// without a settle delay.
func sectionOptions() loader.Options {
	opts := loader.DefaultOptions()
	opts.WaitFor = 0
	opts.Retries = 2
	return opts
}

// truncate returns a copy of items the caller owns, cached results are
// never handed out directly.
func truncate(items []model.SkoolItem, max int) []model.SkoolItem {
	return model.CloneItems(items, max)
}

func cached[T any](
	ctx context.Context,
	s Service,
	key string,
	ttl time.Duration,
	fetch func(ctx context.Context) (T, error),
) (T, error) {
	if s.results == nil {
		return fetch(ctx)
	}
	return cache.GetOrFetch(ctx, s.results, key, ttl, fetch)
}

// guard converts a panic in fn into an error.
func guard[T any](fn func() T) (result T, err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("%w: %v", errExtractorPanic, r)
		}
	}()
	return fn(), nil
}

func (s Service) ScrapeClassroom(ctx context.Context, rawSlug string, opts ClassroomOptions) []model.SkoolItem {
	ctx, span := tracer.Start(ctx, "service:ScrapeClassroom")
	defer span.End()

	items, err := s.classroom(ctx, rawSlug)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "classroom unavailable")
		s.tel.ReportBroken(report_service_scrape_classroom, err, rawSlug)
		return []model.SkoolItem{}
	}

	items = truncate(items, opts.MaxModules)
	span.SetAttributes(attribute.Int("modules", len(items)))
	return items
}

func (s Service) classroom(ctx context.Context, rawSlug string) ([]model.SkoolItem, error) {
	normalized := slug.Normalize(rawSlug)
	if normalized == "" {
		return nil, errInvalidSlug
	}

	return cached(ctx, s, cache.Key(model.SectionClassroom, normalized), cache.TTLClassroom, func(ctx context.Context) ([]model.SkoolItem, error) {
		payload, err := s.loader.Load(ctx, slug.URL(normalized, "classroom"), sectionOptions())
		if err != nil {
			return nil, err
		}
		return guard(func() []model.SkoolItem {
			raw := extract.Classroom(payload)
			items := make([]model.SkoolItem, 0, len(raw))
			for _, record := range raw {
				items = append(items, normalize.Module(record))
			}
			return items
		})
	})
}

func (s Service) ScrapeCommunity(ctx context.Context, rawSlug string, opts CommunityOptions) []model.SkoolItem {
	ctx, span := tracer.Start(ctx, "service:ScrapeCommunity")
	defer span.End()

	items, err := s.community(ctx, rawSlug)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "community feed unavailable")
		s.tel.ReportBroken(report_service_scrape_community, err, rawSlug)
		return []model.SkoolItem{}
	}

	items = truncate(items, opts.MaxPosts)
	span.SetAttributes(attribute.Int("posts", len(items)))
	return items
}

func (s Service) community(ctx context.Context, rawSlug string) ([]model.SkoolItem, error) {
	normalized := slug.Normalize(rawSlug)
	if normalized == "" {
		return nil, errInvalidSlug
	}

	return cached(ctx, s, cache.Key(model.SectionPosts, normalized), cache.TTLPosts, func(ctx context.Context) ([]model.SkoolItem, error) {
		payload, err := s.loader.Load(ctx, slug.URL(normalized, ""), sectionOptions())
		if err != nil {
			return nil, err
		}
		return guard(func() []model.SkoolItem {
			raw := extract.Community(payload)
			items := make([]model.SkoolItem, 0, len(raw))
			for _, record := range raw {
				items = append(items, normalize.Post(record))
			}
			return items
		})
	})
}

// FetchCommunityProfile returns nil when the about page cannot be loaded or
// does not carry the community's group record.
func (s Service) FetchCommunityProfile(ctx context.Context, rawSlug string) *model.CommunityProfile {
	ctx, span := tracer.Start(ctx, "service:FetchCommunityProfile")
	defer span.End()

	p, err := s.communityProfile(ctx, rawSlug)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "profile unavailable")
		s.tel.ReportBroken(report_service_fetch_profile, err, rawSlug)
		return nil
	}
	return p.Clone()
}

func (s Service) communityProfile(ctx context.Context, rawSlug string) (*model.CommunityProfile, error) {
	normalized := slug.Normalize(rawSlug)
	if normalized == "" {
		return nil, errInvalidSlug
	}

	return cached(ctx, s, cache.Key(model.SectionProfile, normalized), cache.TTLProfile, func(ctx context.Context) (*model.CommunityProfile, error) {
		payload, err := s.loader.Load(ctx, slug.URL(normalized, "about"), loader.DefaultOptions())
		if err != nil {
			return nil, err
		}
		group, ok := profile.ExtractGroup(payload.NextData)
		if !ok {
			return nil, errGroupNotFound
		}
		built, err := guard(func() model.CommunityProfile {
			return profile.Build(normalized, group)
		})
		if err != nil {
			return nil, err
		}
		return &built, nil
	})
}

// Snapshot scrapes the profile, classroom and community feed of a community
// concurrently. A failing section never affects the others, it is listed in
// Unavailable instead.
func (s Service) Snapshot(ctx context.Context, rawSlug string, opts SnapshotOptions) model.Snapshot {
	ctx, span := tracer.Start(ctx, "service:Snapshot")
	defer span.End()

	snapshot := model.Snapshot{
		Slug:      slug.Normalize(rawSlug),
		Classroom: []model.SkoolItem{},
		Posts:     []model.SkoolItem{},
	}
	var profileErr, classroomErr, postsErr error

	var group errgroup.Group
	group.Go(func() error {
		var p *model.CommunityProfile
		p, profileErr = s.communityProfile(ctx, rawSlug)
		snapshot.Profile = p.Clone()
		return nil
	})
	group.Go(func() error {
		var items []model.SkoolItem
		items, classroomErr = s.classroom(ctx, rawSlug)
		if classroomErr == nil {
			snapshot.Classroom = truncate(items, opts.MaxModules)
		}
		return nil
	})
	group.Go(func() error {
		var items []model.SkoolItem
		items, postsErr = s.community(ctx, rawSlug)
		if postsErr == nil {
			snapshot.Posts = truncate(items, opts.MaxPosts)
		}
		return nil
	})
	_ = group.Wait()

	if profileErr != nil {
		s.tel.ReportBroken(report_service_fetch_profile, profileErr, rawSlug)
		snapshot.Unavailable = append(snapshot.Unavailable, model.SectionProfile)
	}
	if classroomErr != nil {
		s.tel.ReportBroken(report_service_scrape_classroom, classroomErr, rawSlug)
		snapshot.Unavailable = append(snapshot.Unavailable, model.SectionClassroom)
	}
	if postsErr != nil {
		s.tel.ReportBroken(report_service_scrape_community, postsErr, rawSlug)
		snapshot.Unavailable = append(snapshot.Unavailable, model.SectionPosts)
	}
	if len(snapshot.Unavailable) > 0 {
		span.SetStatus(codes.Error, "partial snapshot")
	}

	return snapshot
}
