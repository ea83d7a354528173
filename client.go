package compsearch

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/compsearch/internal/app"
	"github.com/kailas-cloud/compsearch/internal/config"
	healthuc "github.com/kailas-cloud/compsearch/internal/usecase/health"
)

// Client is the compsearch SDK entry point.
type Client struct {
	app    *app.App
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Client. At least one catalog version is required. With a
// cache option it connects to the store and waits for it to be ready.
// The index worker starts on the first search.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	if len(cfg.versions) == 0 {
		return nil, errors.New("compsearch: catalog versions required (use WithVersions)")
	}

	c := cfg.toConfig()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("compsearch: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	a, err := app.Build(ctx, c, cfg.logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("compsearch: %w", err)
	}

	cl := &Client{app: a, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(cl.done)
		_ = a.Run(ctx)
	}()
	return cl, nil
}

func (cfg *clientConfig) toConfig() config.Config {
	c := config.Config{
		HTTP: config.HTTPConfig{Port: 1},
		Catalog: config.CatalogConfig{
			Versions:       cfg.versions,
			URLTemplate:    cfg.urlTemplate,
			BaseDir:        cfg.baseDir,
			HTTPTimeoutSec: int(cfg.httpTimeout.Seconds()),
			Watch:          cfg.watch,
		},
		Search: config.SearchConfig{
			PageSize:           cfg.pageSize,
			WindowLimit:        cfg.windowLimit,
			ResponseTimeoutSec: int(cfg.respTimeout.Seconds()),
			InboxSize:          cfg.inboxSize,
		},
		Cache: config.CacheConfig{
			Enabled:   cfg.cacheDriver != "",
			Driver:    cfg.cacheDriver,
			Addrs:     cfg.cacheAddrs,
			Password:  cfg.cachePassword,
			TTLSec:    int(cfg.cacheTTL.Seconds()),
			KeyPrefix: cfg.cachePrefix,
		},
		Export: config.ExportConfig{
			Group:        cfg.exportGroup,
			Version:      cfg.exportVersion,
			Repositories: cfg.exportRepos,
		},
	}
	c.ApplyDefaults()
	return c
}

// Close stops every session, the index worker and the cache connection.
func (c *Client) Close() error {
	c.cancel()
	<-c.done
	if err := c.app.Close(); err != nil {
		return fmt.Errorf("compsearch: close: %w", err)
	}
	return nil
}

// Versions returns the catalog versions, default first.
func (c *Client) Versions() []string {
	return c.app.Catalog().Versions()
}

// NewSession starts a search session.
func (c *Client) NewSession() *Session {
	return &Session{s: c.app.Sessions().Create(), client: c}
}

// Session returns a live session by id.
func (c *Client) Session(id string) (*Session, error) {
	s, err := c.app.Sessions().Get(id)
	if err != nil {
		return nil, fmt.Errorf("compsearch: %w", err)
	}
	return &Session{s: s, client: c}, nil
}

// Ping reports whether the index worker and, if configured, the cache are up.
func (c *Client) Ping(ctx context.Context) error {
	r := c.app.Health().Check(ctx)
	if r.Status == healthuc.Healthy {
		return nil
	}
	return fmt.Errorf("compsearch: unhealthy: %v", r.Checks)
}
