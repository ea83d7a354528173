package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/compsearch/internal/domain"
	domds "github.com/kailas-cloud/compsearch/internal/domain/dataset"
	"github.com/kailas-cloud/compsearch/internal/metrics"
)

// Loader reads catalog datasets from disk or over HTTP and keeps the decoded
// items in memory. Concurrent loads of the same dataset share one read.
type Loader struct {
	baseDir string
	client  *http.Client
	logger  *zap.Logger

	mu           sync.RWMutex
	cache        map[string][]map[string]any
	gens         map[string]uint64
	onInvalidate []func(loc string)
	group        singleflight.Group
}

// New creates a loader. Relative dataset URLs are resolved against baseDir.
// client can be nil.
func New(baseDir string, client *http.Client, logger *zap.Logger) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		baseDir: baseDir,
		client:  client,
		logger:  logger,
		cache:   make(map[string][]map[string]any),
		gens:    make(map[string]uint64),
	}
}

// Load returns the items of ds.
func (l *Loader) Load(ctx context.Context, ds domds.Dataset) ([]map[string]any, error) {
	loc := l.Locate(ds.URL())

	l.mu.RLock()
	items, ok := l.cache[loc]
	l.mu.RUnlock()
	if ok {
		metrics.DatasetLoadsTotal.WithLabelValues("cache", "ok").Inc()
		return items, nil
	}

	v, err, _ := l.group.Do(loc, func() (any, error) {
		return l.fetch(ctx, loc)
	})
	if err != nil {
		return nil, err
	}
	return v.([]map[string]any), nil
}

// OnInvalidate registers fn to run after every Invalidate, cached or not.
func (l *Loader) OnInvalidate(fn func(loc string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onInvalidate = append(l.onInvalidate, fn)
}

// Invalidate drops a cached dataset by location, as returned by Locate, and
// reports whether one was cached. A read of loc still in flight is not cached.
func (l *Loader) Invalidate(loc string) bool {
	l.mu.Lock()
	l.gens[loc]++
	_, cached := l.cache[loc]
	delete(l.cache, loc)
	hooks := slices.Clone(l.onInvalidate)
	l.mu.Unlock()

	if cached {
		l.logger.Info("Dataset invalidated", zap.String("location", loc))
	}
	for _, fn := range hooks {
		fn(loc)
	}
	return cached
}

// Cached returns the number of datasets held in memory.
func (l *Loader) Cached() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cache)
}

// Locate resolves a dataset URL to an http(s) URL or a clean absolute file path.
func (l *Loader) Locate(url string) string {
	if isHTTP(url) {
		return url
	}
	p := strings.TrimPrefix(url, "file://")
	if !filepath.IsAbs(p) {
		p = filepath.Join(l.baseDir, p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return filepath.Clean(p)
}

func (l *Loader) fetch(ctx context.Context, loc string) ([]map[string]any, error) {
	source := "file"
	open := l.openFile
	if isHTTP(loc) {
		source = "http"
		open = l.openHTTP
	}

	l.mu.RLock()
	gen := l.gens[loc]
	l.mu.RUnlock()

	rc, err := open(ctx, loc)
	if err != nil {
		metrics.DatasetLoadsTotal.WithLabelValues(source, "error").Inc()
		return nil, err
	}
	defer rc.Close()

	items, err := Decode(rc, loc)
	if err != nil {
		metrics.DatasetLoadsTotal.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("decode %s: %w", loc, err)
	}

	l.mu.Lock()
	stale := l.gens[loc] != gen
	if !stale {
		l.cache[loc] = items
	}
	l.mu.Unlock()

	if stale {
		l.logger.Debug("Dataset changed while loading, not cached", zap.String("location", loc))
	}
	metrics.DatasetLoadsTotal.WithLabelValues(source, "ok").Inc()
	l.logger.Info("Dataset loaded",
		zap.String("location", loc),
		zap.Int("items", len(items)),
	)
	return items, nil
}

func (l *Loader) openFile(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDatasetNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	return f, nil
}

func (l *Loader) openHTTP(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", domain.ErrDatasetNotFound, url)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("fetch dataset: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func isHTTP(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}
