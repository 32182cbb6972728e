package factory

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/combattracker/internal/api/sse"
	"github.com/mcoot/combattracker/internal/cloudsync"
	"github.com/mcoot/combattracker/internal/cloudsync/dropbox"
	memoryremote "github.com/mcoot/combattracker/internal/cloudsync/memory"
	s3remote "github.com/mcoot/combattracker/internal/cloudsync/s3"
	"github.com/mcoot/combattracker/internal/config"
	"github.com/mcoot/combattracker/internal/dependencies/clock"
	"github.com/mcoot/combattracker/internal/dependencies/random"
	"github.com/mcoot/combattracker/internal/markdown"
	"github.com/mcoot/combattracker/internal/services/library"
	"github.com/mcoot/combattracker/internal/services/tracker"
	"github.com/mcoot/combattracker/internal/storage"
	"github.com/mcoot/combattracker/internal/storage/memory"
	redisstorage "github.com/mcoot/combattracker/internal/storage/redis"
	"github.com/mcoot/combattracker/internal/storage/sqlite"
)

// App contains all wired application components
type App struct {
	// Storage
	KV        storage.KV
	Providers *storage.Providers

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Library    *library.Service
	Tracker    *tracker.Controller
	Sync       *cloudsync.Adapter // nil when sync is off
	Renderer   *markdown.Renderer
	HubManager *sse.HubManager

	closers []io.Closer
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg config.Server, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	kv, closer, err := openKV(ctx, cfg)
	if err != nil {
		return nil, err
	}

	remote, err := openRemote(ctx, cfg)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}

	app := newWithDependencies(kv, remote, clock.New(), random.New(), logger)
	if closer != nil {
		app.closers = append(app.closers, closer)
	}
	logger.Info("application wired",
		slog.String("storage", cfg.StorageType),
		slog.String("sync", cfg.SyncProvider),
	)
	return app, nil
}

// Close stops live streams and releases storage connections
func (a *App) Close() error {
	a.HubManager.Close()
	var firstErr error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func openKV(ctx context.Context, cfg config.Server) (storage.KV, io.Closer, error) {
	switch cfg.StorageType {
	case "", config.StorageMemory:
		return memory.New(), nil, nil
	case config.StorageRedis:
		opts := redisstorage.DefaultOptions()
		opts.URL = cfg.RedisURL
		if cfg.RedisPrefix != "" {
			opts.KeyPrefix = cfg.RedisPrefix
		}
		store, err := redisstorage.Open(ctx, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return store, store, nil
	case config.StorageSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("invalid storage type %q", cfg.StorageType)
	}
}

func openRemote(ctx context.Context, cfg config.Server) (cloudsync.Remote, error) {
	switch cfg.SyncProvider {
	case "", config.SyncNone:
		return nil, nil
	case config.SyncMemory:
		return memoryremote.New(), nil
	case config.SyncDropbox:
		dbx := dropbox.DefaultConfig()
		dbx.ClientID = cfg.Dropbox.ClientID
		dbx.ClientSecret = cfg.Dropbox.ClientSecret
		dbx.RedirectURL = cfg.Dropbox.RedirectURL
		if cfg.Dropbox.Path != "" {
			dbx.Path = cfg.Dropbox.Path
		}
		return dropbox.New(dbx), nil
	case config.SyncS3:
		remote, err := s3remote.New(ctx, s3remote.Config{
			Bucket:       cfg.S3.Bucket,
			Key:          cfg.S3.Key,
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("configure s3: %w", err)
		}
		return remote, nil
	default:
		return nil, fmt.Errorf("invalid sync provider %q", cfg.SyncProvider)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing).
// A nil remote leaves sync disabled.
func newWithDependencies(kv storage.KV, remote cloudsync.Remote, clk clock.Clock, rnd random.Random, logger *slog.Logger) *App {
	providers := storage.NewProviders(kv, clk, rnd, logger)
	hubManager := sse.NewHubManager(logger)
	broadcaster := sse.NewBroadcaster(hubManager, logger)
	librarySvc := library.New(providers, logger)
	trackerCtl := tracker.NewController(providers, librarySvc, broadcaster, clk, rnd, logger)

	var adapter *cloudsync.Adapter
	if remote != nil {
		adapter = cloudsync.New(kv, providers.Locks, remote, clk, rnd, logger)
	}

	return &App{
		KV:         kv,
		Providers:  providers,
		Clock:      clk,
		Random:     rnd,
		Library:    librarySvc,
		Tracker:    trackerCtl,
		Sync:       adapter,
		Renderer:   markdown.NewRenderer(),
		HubManager: hubManager,
	}
}
