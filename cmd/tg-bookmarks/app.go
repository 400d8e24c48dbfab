package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ls-lnb/tg-bookmarks/internal/adapters/driven/auth"
	"github.com/ls-lnb/tg-bookmarks/internal/adapters/driven/bridge"
	"github.com/ls-lnb/tg-bookmarks/internal/adapters/driven/postgres"
	redisadapter "github.com/ls-lnb/tg-bookmarks/internal/adapters/driven/redis"
	"github.com/ls-lnb/tg-bookmarks/internal/adapters/driven/sqlite"
	"github.com/ls-lnb/tg-bookmarks/internal/config"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driving"
	"github.com/ls-lnb/tg-bookmarks/internal/core/services"
	"github.com/ls-lnb/tg-bookmarks/internal/logging"
)

// app holds the wired services of one process.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	store  driven.LocalStore
	runs   driven.SyncRunStore
	lock   driven.DistributedLock
	remote driven.RemoteSource

	orchestrator driving.SyncOrchestrator
	bookmarks    driving.BookmarkService
	media        driving.MediaService
	auth         driving.AuthService

	closers []io.Closer
}

// loadApp reads configuration and wires adapters into services.
func loadApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg

	// Step 1: Storage
	var pgDB *postgres.DB
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		a.logger.Info("connecting to postgres")
		db, err := postgres.Connect(ctx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			AutoMigrate:     true,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db)
		pgDB = db
		a.store = postgres.NewLocalStore(db)
		a.runs = postgres.NewSyncRunStore(db)
	default:
		a.logger.Info("opening sqlite database", "path", cfg.Database.Path)
		db, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.Database.Path))
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db)
		a.store = sqlite.NewLocalStore(db)
		a.runs = sqlite.NewSyncRunStore(db)
	}

	// Step 2: Run lock
	lock, err := a.buildLock(ctx, pgDB)
	if err != nil {
		return err
	}
	a.lock = lock

	// Step 3: Remote and media
	a.remote = bridge.NewClient(bridge.Config{
		BaseURL:    cfg.Remote.BaseURL,
		Token:      cfg.Remote.Token,
		Timeout:    cfg.Remote.Timeout,
		MaxRetries: cfg.Remote.MaxRetries,
		PageSize:   cfg.Remote.PageSize,
		Logger:     a.logger,
	})

	fetcher := services.NewMediaFetcher(services.MediaFetcherConfig{
		Remote:      a.remote,
		Dir:         cfg.Media.Dir,
		Offline:     !cfg.Media.Download,
		PhotosOnly:  cfg.Media.PhotosOnly,
		MaxAttempts: cfg.Media.MaxAttempts,
		Logger:      a.logger,
	})

	// Step 4: Services
	a.orchestrator = services.NewSyncOrchestrator(services.SyncOrchestratorConfig{
		Remote:             a.remote,
		Store:              a.store,
		Runs:               a.runs,
		Lock:               a.lock,
		Media:              fetcher,
		LockTTL:            cfg.Sync.LockTTL,
		TopicPolicy:        cfg.TopicPolicy(),
		FullMode:           cfg.FullMode(),
		DifferencePageSize: cfg.Sync.DifferencePageSize,
		MaxDifferencePages: cfg.Sync.MaxDifferencePages,
		TopicMessageCap:    cfg.Sync.TopicMessageCap,
		StrictRebaseline:   cfg.Sync.StrictRebaseline,
		Logger:             a.logger,
	})
	a.bookmarks = services.NewBookmarkService(a.store)
	a.media = services.NewMediaService(a.store, fetcher)
	a.auth = services.NewAuthService(auth.NewAdapter(cfg.Auth.JWTSecret), cfg.Auth.AdminPasswordHash, cfg.Auth.TokenTTL)

	a.logger.Info("services wired",
		"database", cfg.Database.Driver,
		"lock", lockName(a.lock),
		"remote", cfg.Remote.BaseURL,
		"auth_enabled", a.auth.Enabled(),
	)
	return nil
}

// buildLock picks the multi-instance run lock. auto prefers Redis, then
// the PostgreSQL advisory lock, then none (SQLite is single-host anyway).
func (a *app) buildLock(ctx context.Context, pgDB *postgres.DB) (driven.DistributedLock, error) {
	cfg := a.cfg
	useRedis := cfg.Sync.Lock == config.LockRedis || (cfg.Sync.Lock == config.LockAuto && cfg.Redis.URL != "")
	usePostgres := cfg.Sync.Lock == config.LockPostgres || (cfg.Sync.Lock == config.LockAuto && pgDB != nil)

	switch {
	case useRedis:
		a.logger.Info("connecting to redis")
		client, err := redisadapter.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client)
		lock := redisadapter.NewLock(client)
		a.logger.Info("redis sync lock ready", "owner", lock.OwnerID())
		return lock, nil
	case usePostgres && pgDB != nil:
		return postgres.NewAdvisoryLock(pgDB), nil
	default:
		return nil, nil
	}
}

func lockName(l driven.DistributedLock) string {
	switch l.(type) {
	case *redisadapter.Lock:
		return "redis"
	case *postgres.AdvisoryLock:
		return "postgres"
	default:
		return "none"
	}
}

// Close releases every opened resource, last opened first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}
