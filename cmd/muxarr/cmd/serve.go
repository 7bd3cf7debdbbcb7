package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	internalhttp "github.com/muxarr/muxarr/internal/http"
	"github.com/muxarr/muxarr/internal/http/handlers"
	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the muxarr server",
	Long: `Start the muxarr HTTP server and background syncs.

The server provides:
- The downstream playlist at /playlist.m3u and guide at /xmltv.xml
- The stream proxy at /stream/{channel_id}
- REST API under /api/v1 with OpenAPI documentation at /docs
- Prometheus metrics at /metrics`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := newApplication(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer app.Close()

	logger := app.logger
	cfg := app.cfg

	if err := app.scheduler.Start(); err != nil {
		return err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer stopCancel()
		if err := app.scheduler.Stop(stopCtx); err != nil {
			logger.Warn("scheduler did not stop cleanly", slog.String("error", err.Error()))
		}
	}()

	go app.reapStaleSessions(ctx)
	go app.healthScanLoop(ctx)

	server := internalhttp.NewServer(cfg.Server, logger, version.Version)

	outputHandler := handlers.NewOutputHandler(
		app.playlistService, app.guideService, cfg.Server.BaseURL, logger,
	)
	outputHandler.Register(server.Router())

	streamHandler := handlers.NewStreamProxyHandler(
		app.channels, app.accounts, app.conns,
		cfg.Stream.ActivityInterval, nil, logger,
	)
	streamHandler.Register(server.Router())

	handlers.NewAccountHandler(app.accounts, app.credentials, app.conns).Register(server.API())
	handlers.NewChannelHandler(app.channels, app.links, app.tags).Register(server.API())
	handlers.NewFilterHandler(app.filters, app.evaluator).Register(server.API())
	handlers.NewRuleSetHandler(app.ruleSets, app.exportService).Register(server.API())
	handlers.NewEpgHandler(
		app.sources, app.epgChannels, app.mappings, app.matchConfig,
		app.epgSyncService, app.matcher,
	).Register(server.API())
	handlers.NewHealthHandler(app.healthRepo, app.accounts, app.channels, app.monitor).Register(server.API())
	handlers.NewFccHandler(app.fcc).Register(server.API())
	handlers.NewSystemHandler(app.db, app.scheduler, logger).Register(server.API())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("starting muxarr server",
		slog.String("address", cfg.Server.Address()),
		slog.String("version", version.Version),
	)

	return server.ListenAndServe(ctx)
}

// reapStaleSessions periodically releases proxy sessions whose clients
// stopped heartbeating.
func (app *application) reapStaleSessions(ctx context.Context) {
	interval := app.cfg.Stream.Timeout
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := app.conns.CleanupStale(ctx, nil); err != nil {
				app.logger.Warn("stale session cleanup failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// healthScanLoop runs periodic channel health scans when scanning is
// enabled. The runtime toggle in sync_metadata overrides the config
// value, so scanning can be switched without a restart.
func (app *application) healthScanLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !app.healthScanningEnabled(ctx) {
				continue
			}
			due, err := app.healthScanDue(ctx)
			if err != nil {
				app.logger.Warn("checking health scan schedule failed",
					slog.String("error", err.Error()),
				)
				continue
			}
			if !due {
				continue
			}
			app.runHealthScan(ctx)
		}
	}
}

func (app *application) healthScanningEnabled(ctx context.Context) bool {
	value, ok, err := app.meta.Get(ctx, models.MetaKeyHealthScanningEnabled)
	if err != nil || !ok {
		return app.cfg.Health.ScanningEnabled
	}
	return value == "true"
}

func (app *application) healthScanDue(ctx context.Context) (bool, error) {
	last, err := app.meta.GetTime(ctx, models.MetaKeyLastHealthScan)
	if err != nil {
		return false, err
	}
	interval := time.Duration(app.cfg.Health.ScanIntervalMinutes) * time.Minute
	return time.Since(last) >= interval, nil
}

func (app *application) runHealthScan(ctx context.Context) {
	accounts, err := app.accounts.GetEnabled(ctx)
	if err != nil {
		app.logger.Error("listing accounts for health scan failed",
			slog.String("error", err.Error()),
		)
		return
	}

	for _, account := range accounts {
		stats, err := app.monitor.Scan(ctx, account)
		if err != nil {
			app.logger.Error("health scan failed",
				slog.String("account", account.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		app.logger.Info("health scan finished",
			slog.String("account", account.Name),
			slog.Int("scanned", stats.Scanned),
			slog.Int("skipped", stats.Skipped),
		)
	}

	if err := app.meta.SetTime(ctx, models.MetaKeyLastHealthScan, time.Now().UTC()); err != nil {
		app.logger.Warn("recording health scan time failed",
			slog.String("error", err.Error()),
		)
	}
}
