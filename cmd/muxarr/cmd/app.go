package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/muxarr/muxarr/internal/config"
	"github.com/muxarr/muxarr/internal/connections"
	"github.com/muxarr/muxarr/internal/database"
	"github.com/muxarr/muxarr/internal/epgmatch"
	"github.com/muxarr/muxarr/internal/fcc"
	"github.com/muxarr/muxarr/internal/ffmpeg"
	"github.com/muxarr/muxarr/internal/filtering"
	"github.com/muxarr/muxarr/internal/health"
	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/observability"
	"github.com/muxarr/muxarr/internal/repository"
	"github.com/muxarr/muxarr/internal/scheduler"
	"github.com/muxarr/muxarr/internal/service"
)

// application holds everything the serve and sync commands wire up:
// configuration, database, repositories, services, and the scheduler.
type application struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *database.DB

	accounts    repository.AccountRepository
	credentials repository.CredentialRepository
	categories  repository.CategoryRepository
	channels    repository.ChannelRepository
	links       repository.ChannelLinkRepository
	tags        repository.TagRepository
	filters     repository.FilterRepository
	ruleSets    repository.RuleSetRepository
	sources     repository.EpgSourceRepository
	epgChannels repository.EpgChannelRepository
	mappings    repository.EpgMappingRepository
	matchConfig repository.EpgMatchConfigRepository
	fcc         repository.FccRepository
	healthRepo  repository.HealthRepository
	streams     repository.ActiveStreamRepository
	meta        repository.SyncMetadataRepository

	conns     *connections.Manager
	evaluator *filtering.Evaluator
	monitor   *health.Monitor
	matcher   *epgmatch.Matcher
	fccSyncer *fcc.Syncer

	syncService     *service.SyncService
	epgSyncService  *service.EpgSyncService
	exportService   *service.ExportService
	playlistService *service.PlaylistService
	guideService    *service.GuideService

	scheduler *scheduler.Scheduler
}

// newApplication loads configuration, opens and migrates the database,
// seeds defaults, and constructs the full service graph.
func newApplication(ctx context.Context, configPath string) (*application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	flags := rootCmd.PersistentFlags()
	if level, ok := changedFlag(flags, "log-level"); ok {
		cfg.Logging.Level = level
	}
	if format, ok := changedFlag(flags, "log-format"); ok {
		cfg.Logging.Format = format
	}

	logger := observability.NewLogger(cfg.Logging)
	observability.SetDefault(logger)

	db, err := database.New(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	app := &application{
		cfg:    cfg,
		logger: logger,
		db:     db,

		accounts:    repository.NewAccountRepository(db.DB),
		credentials: repository.NewCredentialRepository(db.DB),
		categories:  repository.NewCategoryRepository(db.DB),
		channels:    repository.NewChannelRepository(db.DB),
		links:       repository.NewChannelLinkRepository(db.DB),
		tags:        repository.NewTagRepository(db.DB),
		filters:     repository.NewFilterRepository(db.DB),
		ruleSets:    repository.NewRuleSetRepository(db.DB),
		sources:     repository.NewEpgSourceRepository(db.DB),
		epgChannels: repository.NewEpgChannelRepository(db.DB),
		mappings:    repository.NewEpgMappingRepository(db.DB),
		matchConfig: repository.NewEpgMatchConfigRepository(db.DB),
		fcc:         repository.NewFccRepository(db.DB),
		healthRepo:  repository.NewHealthRepository(db.DB),
		streams:     repository.NewActiveStreamRepository(db.DB),
		meta:        repository.NewSyncMetadataRepository(db.DB),
	}

	if err := fcc.EnsureDefaults(ctx, app.fcc); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding FCC defaults: %w", err)
	}
	if err := epgmatch.EnsureDefaults(ctx, app.matchConfig); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding EPG match defaults: %w", err)
	}

	app.conns = connections.NewManager(
		app.accounts, app.credentials, app.streams,
		cfg.Stream.Timeout, logger,
	)

	analyzer := ffmpeg.NewAnalyzer(cfg.FFmpeg, cfg.Health.BlackScreenThreshold, logger)
	app.monitor = health.NewMonitor(
		app.channels, app.healthRepo, app.conns,
		analyzer, cfg.Health, logger,
	)

	app.evaluator = filtering.NewEvaluator(
		app.channels, app.categories, app.filters, app.tags, logger,
	)

	app.syncService = service.NewSyncService(
		app.accounts, app.credentials, app.categories, app.channels,
		app.links, app.tags, app.ruleSets,
		app.evaluator, nil, cfg.Sync.StaleCutoff, logger,
	)

	app.epgSyncService = service.NewEpgSyncService(
		app.sources, app.epgChannels, app.accounts, app.credentials,
		&http.Client{Timeout: cfg.Sync.XMLTVTimeout}, logger,
	)

	resolver := fcc.NewResolver(app.fcc, logger)
	app.matcher = epgmatch.NewMatcher(
		app.channels, app.categories, app.tags,
		app.epgChannels, app.mappings, app.matchConfig,
		resolver, cfg.Sync.MappingBatchSize, logger,
	)

	app.fccSyncer = fcc.NewSyncer(
		app.fcc, app.meta,
		cfg.Sync.FccFacilityURL, cfg.Sync.FccTimeout, logger,
	)

	app.exportService = service.NewExportService(app.ruleSets)
	app.playlistService = service.NewPlaylistService(
		app.accounts, app.categories, app.channels, logger,
	)
	app.guideService = service.NewGuideService(
		app.channels, app.links, app.mappings,
		app.epgChannels, app.sources, app.epgSyncService, logger,
	)

	app.scheduler = scheduler.New(app.meta, cfg.Sync.StartupDelay, logger)
	app.registerJobs()

	return app, nil
}

// registerJobs binds the three periodic syncs to the scheduler.
func (app *application) registerJobs() {
	cfg := app.cfg.Sync

	app.scheduler.Register(scheduler.Job{
		Kind:            "catalog",
		LastRunKey:      models.MetaKeyLastAccountSync,
		IntervalKey:     models.MetaKeyAccountSyncIntervalHours,
		DefaultInterval: time.Duration(cfg.AccountIntervalHours) * time.Hour,
		Run:             app.syncService.SyncAll,
	})

	app.scheduler.Register(scheduler.Job{
		Kind:            "epg",
		LastRunKey:      models.MetaKeyLastEpgSync,
		IntervalKey:     models.MetaKeyEpgSyncIntervalHours,
		DefaultInterval: time.Duration(cfg.EpgIntervalHours) * time.Hour,
		Run: func(ctx context.Context) error {
			_, err := app.epgSyncService.SyncAll(ctx)
			return err
		},
	})

	app.scheduler.Register(scheduler.Job{
		Kind:            "fcc",
		LastRunKey:      models.MetaKeyLastFccSync,
		IntervalKey:     models.MetaKeyFccSyncIntervalHours,
		DefaultInterval: time.Duration(cfg.FccIntervalHours) * time.Hour,
		Run: func(ctx context.Context) error {
			_, err := app.fccSyncer.Sync(ctx)
			return err
		},
	})
}

// Close releases the application's resources.
func (app *application) Close() error {
	return app.db.Close()
}
