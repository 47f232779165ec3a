// Package app builds the collaborators both binaries share from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/chrisw65/market-profile/internal/assert"
	"github.com/chrisw65/market-profile/internal/cache"
	"github.com/chrisw65/market-profile/internal/campaign"
	"github.com/chrisw65/market-profile/internal/components/chrono"
	"github.com/chrisw65/market-profile/internal/components/telemetry"
	"github.com/chrisw65/market-profile/internal/ratelimit"
	"github.com/chrisw65/market-profile/internal/skool/loader"
	"github.com/chrisw65/market-profile/internal/skool/service"
	"github.com/chrisw65/market-profile/internal/store"
	"github.com/chrisw65/market-profile/lib/restyutil"

	"github.com/dgraph-io/badger/v4"
	"golang.org/x/sync/errgroup"
)

const (
	report_app_refresh  = "app.refresh"
	report_app_renderer = "app.renderer"
)

// chromeBinaries are the names chromedp itself searches for on PATH.
var chromeBinaries = []string{
	"headless_shell",
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"google-chrome-beta",
	"google-chrome-unstable",
}

const (
	// refreshLimit bounds how many saved communities one refresh covers.
	refreshLimit       = 1000
	refreshConcurrency = 2
	refreshSectionMax  = 50
)

type App struct {
	Config    Config
	Service   service.Service
	Store     store.Store
	Results   *cache.Results
	Limiter   *ratelimit.Limiter
	Generator campaign.Generator

	tel     telemetry.API
	closers []func() error
}

// New wires every collaborator described by cfg. verbose enables request
// transcripts when cfg.TranscriptDir is set.
func New(ctx context.Context, cfg Config, tel telemetry.API, verbose bool) (App, error) {
	assert.NotNil(tel, "telemetry")

	a := App{
		Config: cfg,
		tel:    telemetry.NewScopedAPI("app", tel),
	}
	clock := chrono.StandardTime{}

	var transcripts restyutil.InstrumentOutput
	if verbose && cfg.TranscriptDir != "" {
		output, err := restyutil.NewFilesystemOutput(cfg.TranscriptDir)
		if err != nil {
			return App{}, fmt.Errorf("transcripts: %w", err)
		}
		transcripts = output
	}

	var renderer loader.Renderer
	kind, execPath := resolveRenderer(cfg, exec.LookPath)
	if kind != cfg.Renderer {
		a.tel.ReportWarning(report_app_renderer, "no chrome binary found, falling back to the static renderer")
	}
	switch kind {
	case RendererChrome:
		renderer = loader.ChromeRenderer{ExecPath: execPath}
	default:
		renderer = loader.NewStaticRenderer(
			tel,
			loader.WithRequestsPerSecond(cfg.RequestsPerSecond),
			loader.WithTranscripts(transcripts),
		)
	}
	var pageLoader loader.PageLoader = loader.NewLoader(renderer, loader.WithTelemetry(tel))

	if cfg.PageCache.Dir != "" {
		ttl, err := cfg.pageCacheTTL()
		if err != nil {
			return App{}, err
		}
		pages, err := badger.Open(badger.DefaultOptions(cfg.PageCache.Dir).WithLogger(nil))
		if err != nil {
			return App{}, fmt.Errorf("open page cache: %w", err)
		}
		a.closers = append(a.closers, pages.Close)
		pageLoader = loader.NewCachedLoader(pageLoader, pages, ttl, clock, tel)
	}

	a.Results = cache.NewResults(clock)
	a.Limiter = ratelimit.NewLimiter(clock)
	a.Service = service.NewService(
		pageLoader,
		service.WithResultsCache(a.Results),
		service.WithTelemetry(tel),
	)

	db, err := cfg.Database.OpenDB()
	if err != nil {
		a.Close()
		return App{}, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	a.Store, err = store.Open(ctx, db, cfg.Database.Driver(), clock)
	if err != nil {
		a.Close()
		return App{}, err
	}

	primary, err := newPrimaryGenerator(ctx, cfg, tel, transcripts)
	if err != nil {
		a.Close()
		return App{}, err
	}
	a.Generator = campaign.WithFallback(primary, tel)

	return a, nil
}

// resolveRenderer returns the renderer to use and the chrome binary for it. A
// chrome renderer without an explicit chrome_path degrades to static when no
// known binary is on PATH.
func resolveRenderer(cfg Config, lookPath func(file string) (string, error)) (string, string) {
	if cfg.Renderer != RendererChrome {
		return cfg.Renderer, ""
	}
	if cfg.ChromePath != "" {
		return RendererChrome, cfg.ChromePath
	}
	for _, name := range chromeBinaries {
		path, err := lookPath(name)
		if err == nil {
			return RendererChrome, path
		}
	}
	return RendererStatic, ""
}

// newPrimaryGenerator prefers a self-hosted model over Gemini, it returns nil
// when neither is configured.
func newPrimaryGenerator(
	ctx context.Context,
	cfg Config,
	tel telemetry.API,
	transcripts restyutil.InstrumentOutput,
) (campaign.Generator, error) {
	if cfg.Ollama.BaseUrl != "" {
		return campaign.NewOllama(campaign.OllamaOptions{
			BaseURL:     cfg.Ollama.BaseUrl,
			Model:       cfg.Ollama.Model,
			Transcripts: transcripts,
		}, tel), nil
	}
	if cfg.Gemini.ApiKey != "" {
		gemini, err := campaign.NewGemini(ctx, cfg.Gemini.ApiKey, cfg.Gemini.Model)
		if err != nil {
			return nil, err
		}
		return gemini, nil
	}
	return nil, nil
}

func (a App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err := a.closers[i]()
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Refresh scrapes every saved community again and saves the result when the
// profile could be loaded, it returns how many were saved.
func (a App) Refresh(ctx context.Context) (int, error) {
	a.Results.Purge()

	communities, err := a.Store.ListCommunities(ctx, refreshLimit)
	if err != nil {
		a.tel.ReportBroken(report_app_refresh, err)
		return 0, err
	}

	saved := make([]bool, len(communities))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(refreshConcurrency)
	for i, community := range communities {
		group.Go(func() error {
			snapshot := a.Service.Snapshot(groupCtx, community.Slug, service.SnapshotOptions{
				MaxModules: refreshSectionMax,
				MaxPosts:   refreshSectionMax,
			})
			if snapshot.Profile == nil {
				a.tel.ReportWarning(report_app_refresh, "profile unavailable", community.Slug)
				return nil
			}
			err := a.Store.SaveSnapshot(groupCtx, snapshot)
			if err != nil {
				a.tel.ReportBroken(report_app_refresh, err, community.Slug)
				return nil
			}
			saved[i] = true
			return nil
		})
	}
	group.Wait()

	count := 0
	for _, ok := range saved {
		if ok {
			count++
		}
	}
	a.tel.ReportCount(report_app_refresh, int64(count))
	return count, ctx.Err()
}
