// Package app wires the search stack from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/compsearch/internal/config"
	"github.com/kailas-cloud/compsearch/internal/db"
	dbRedis "github.com/kailas-cloud/compsearch/internal/db/redis"
	"github.com/kailas-cloud/compsearch/internal/domain/dataset"
	"github.com/kailas-cloud/compsearch/internal/exporter/gradle"
	"github.com/kailas-cloud/compsearch/internal/metrics"
	datasetrepo "github.com/kailas-cloud/compsearch/internal/repository/dataset"
	"github.com/kailas-cloud/compsearch/internal/repository/rescache"
	healthuc "github.com/kailas-cloud/compsearch/internal/usecase/health"
	sessionuc "github.com/kailas-cloud/compsearch/internal/usecase/session"
	"github.com/kailas-cloud/compsearch/internal/worker"
)

// App is the assembled search stack: one index worker shared by all sessions.
// The worker starts on the first search.
type App struct {
	cfg      config.Config
	catalog  dataset.Catalog
	loader   *datasetrepo.Loader
	worker   *worker.Worker
	sessions *sessionuc.Manager
	health   *healthuc.Service
	cache    *rescache.CachedEvaluator
	store    db.Store
	logger   *zap.Logger
}

// Build assembles the stack. When the cache is enabled it connects to the
// store and waits for it to be ready.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	catalog, err := dataset.NewCatalog(cfg.Catalog.Versions, cfg.Catalog.URLTemplate)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.Catalog.HTTPTimeoutSec) * time.Second}
	loader := datasetrepo.New(cfg.Catalog.BaseDir, httpClient, logger)

	a := &App{cfg: cfg, catalog: catalog, loader: loader, logger: logger}

	var eval worker.Evaluator = worker.NewEngine(loader)
	if cfg.Cache.Enabled {
		store, err := newStore(cfg.Cache)
		if err != nil {
			return nil, err
		}
		timeout := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("cache store not ready: %w", err)
		}
		logger.Info("Connected to cache store",
			zap.String("driver", cfg.Cache.Driver),
			zap.Strings("addrs", cfg.Cache.Addrs),
		)
		a.store = store
		a.cache = rescache.New(eval, store, cfg.Cache.KeyPrefix, cfg.Cache.TTL(), metrics.ResponseCacheTotal, logger)
		eval = a.cache
		a.purgeOnInvalidate()
	}

	a.worker = worker.New(eval, cfg.Search.InboxSize, logger)

	gen := gradle.New(gradle.Options{
		Group:        cfg.Export.Group,
		Version:      cfg.Export.Version,
		Repositories: cfg.Export.Repositories,
	})
	a.sessions = sessionuc.NewManager(catalog, a.worker, gen, metrics.SearchObserver{}, sessionuc.Config{
		PageSize:        cfg.Search.PageSize,
		WindowLimit:     cfg.Search.WindowLimit,
		ResponseTimeout: cfg.Search.ResponseTimeout(),
		IdleTTL:         cfg.Search.SessionIdleTTL(),
	}, logger)

	var cachePinger healthuc.CachePinger
	if a.store != nil {
		cachePinger = a.store
	}
	a.health = healthuc.New(a.worker, cachePinger)

	return a, nil
}

func newStore(cfg config.CacheConfig) (db.Store, error) {
	switch cfg.Driver {
	case "redis", "valkey":
		s, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.Addrs, Password: cfg.Password})
		if err != nil {
			return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

// purgeOnInvalidate drops cached responses of a version when its dataset changes.
func (a *App) purgeOnInvalidate() {
	versions := make(map[string]string, len(a.catalog.Versions()))
	for _, v := range a.catalog.Versions() {
		versions[a.loader.Locate(a.catalog.URLFor(v))] = v
	}
	a.loader.OnInvalidate(func(loc string) {
		v, ok := versions[loc]
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := a.cache.Purge(ctx, v); err != nil {
			a.logger.Warn("Failed to purge cached responses", zap.String("version", v), zap.Error(err))
		}
	})
}

// Catalog returns the configured versions.
func (a *App) Catalog() dataset.Catalog { return a.catalog }

// Sessions returns the session manager.
func (a *App) Sessions() *sessionuc.Manager { return a.sessions }

// Health returns the health service.
func (a *App) Health() *healthuc.Service { return a.health }

// Loader returns the dataset loader.
func (a *App) Loader() *datasetrepo.Loader { return a.loader }

// Run evicts idle sessions and, when enabled, watches local datasets until ctx is done.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.sessions.Run(ctx) })
	if dirs := a.watchDirs(); len(dirs) > 0 {
		g.Go(func() error { return a.loader.Watch(ctx, dirs...) })
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

// watchDirs returns the existing local directories holding the datasets of
// every configured version, each once.
func (a *App) watchDirs() []string {
	if !a.cfg.Catalog.Watch {
		return nil
	}
	var dirs []string
	for _, v := range a.catalog.Versions() {
		loc := a.loader.Locate(a.catalog.URLFor(v))
		if strings.Contains(loc, "://") {
			continue
		}
		dir := filepath.Dir(loc)
		if slices.Contains(dirs, dir) {
			continue
		}
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			a.logger.Warn("Dataset directory not watched", zap.String("dir", dir), zap.Error(err))
			continue
		}
		dirs = append(dirs, dir)
	}
	return dirs
}

// Close stops sessions, the worker and the cache store.
func (a *App) Close() error {
	var errs []error
	if err := a.sessions.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.worker.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close index worker: %w", err))
	}
	if a.store != nil {
		a.store.Close()
	}
	return errors.Join(errs...)
}
