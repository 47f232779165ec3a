package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/chrisw65/market-profile/internal/api"
	"github.com/chrisw65/market-profile/internal/app"
	"github.com/chrisw65/market-profile/internal/components/chrono"
	"github.com/chrisw65/market-profile/internal/components/telemetry"
	libtelemetry "github.com/chrisw65/market-profile/lib/telemetry"
	"github.com/chrisw65/market-profile/lib/util/serviceutil"
)

func main() {
	verbose := flag.Bool("v", false, "enable verbose logging")
	configPath := flag.String("config", "config.json5", "the config file to read")
	flag.Parse()

	ctx := serviceutil.SignalContext()
	libtelemetry.InitSlog(*verbose)

	t, err := libtelemetry.SetupFromEnv(ctx, "market-profile-server")
	if err != nil {
		slog.Warn("telemetry is not configured, traces and metrics are disabled", "err", err)
	} else {
		defer t.Shutdown(context.Background())
		libtelemetry.InstrumentPerfStats(ctx)
	}

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	tel := telemetry.SlogAPI{}
	application, err := app.New(ctx, cfg, tel, *verbose)
	if err != nil {
		serviceutil.Fatal("failed to initialize", err)
	}
	defer application.Close()

	cron := chrono.NewStandardCron(tel)
	defer cron.Stop()
	err = cron.Cron(cfg.RefreshCron, func() {
		count, err := application.Refresh(ctx)
		if err != nil {
			slog.Error("refresh saved communities", "err", err)
			return
		}
		slog.Info("refreshed saved communities", "count", count)
	})
	if err != nil {
		serviceutil.Fatal("failed to schedule refresh", err)
	}

	server := api.NewServer(api.Options{
		Scraper:     application.Service,
		Store:       application.Store,
		Generator:   application.Generator,
		Limiter:     application.Limiter,
		Results:     application.Results,
		AccessToken: cfg.AccessToken,
		Telemetry:   tel,
	})
	serviceutil.StartHttpServer(ctx, cfg.Port, server.Handler())
}
