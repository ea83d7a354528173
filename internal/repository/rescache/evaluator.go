package rescache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/compsearch/internal/db"
	"github.com/kailas-cloud/compsearch/internal/domain/search/request"
	"github.com/kailas-cloud/compsearch/internal/domain/search/result"
)

// DefaultKeyPrefix namespaces cache keys when none is configured.
const DefaultKeyPrefix = "compsearch:"

// evaluator is the wrapped index engine.
type evaluator interface {
	Evaluate(ctx context.Context, req request.Request) (result.Response, error)
}

// store is the consumer interface for the response cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, keys ...string) error
}

// CachedEvaluator caches worker responses in a key-value store, keyed by the
// worker request message.
type CachedEvaluator struct {
	inner      evaluator
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger

	// gens counts purges per lower-cased version. Writes hold mu shared and
	// Purge bumps under mu, so a response computed before a purge is never stored after it.
	mu   sync.RWMutex
	gens map[string]uint64
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner evaluator,
	s store,
	prefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEvaluator {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEvaluator{
		inner:      inner,
		store:      s,
		prefix:     prefix + "res:",
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
		gens:       make(map[string]uint64),
	}
}

// Evaluate returns a cached response or calls the inner engine.
// Errors are never cached.
func (c *CachedEvaluator) Evaluate(ctx context.Context, req request.Request) (result.Response, error) {
	key, err := c.cacheKey(req)
	if err != nil {
		return result.Response{}, err
	}

	if resp, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return resp, nil
	}

	c.incCache("miss")

	version := strings.ToLower(req.Dataset().Version())
	gen := c.generation(version)

	resp, err := c.inner.Evaluate(ctx, req)
	if err != nil {
		return result.Response{}, fmt.Errorf("evaluate: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.gens[version] != gen {
		c.logger.Debug("Dataset purged during evaluation, response not cached", zap.String("version", version))
		return resp, nil
	}
	c.putToCache(ctx, key, resp)
	return resp, nil
}

// Purge removes every cached response for a dataset version and returns how
// many were dropped.
func (c *CachedEvaluator) Purge(ctx context.Context, version string) (int, error) {
	c.mu.Lock()
	c.gens[strings.ToLower(version)]++
	c.mu.Unlock()

	keys, err := c.store.Scan(ctx, c.versionPrefix(version)+"*")
	if err != nil {
		return 0, fmt.Errorf("scan cached responses: %w", err)
	}
	if err := c.store.Del(ctx, keys...); err != nil {
		return 0, fmt.Errorf("delete cached responses: %w", err)
	}
	if len(keys) > 0 {
		c.logger.Info("Purged cached responses",
			zap.String("version", version),
			zap.Int("keys", len(keys)),
		)
	}
	return len(keys), nil
}

func (c *CachedEvaluator) generation(version string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[version]
}

func (c *CachedEvaluator) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedEvaluator) versionPrefix(version string) string {
	return c.prefix + strings.ToLower(version) + ":"
}

func (c *CachedEvaluator) cacheKey(req request.Request) (string, error) {
	msg, err := req.Message()
	if err != nil {
		return "", fmt.Errorf("build cache key: %w", err)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("build cache key: %w", err)
	}
	h := sha256.Sum256(data)
	return c.versionPrefix(req.Dataset().Version()) + hex.EncodeToString(h[:]), nil
}

func (c *CachedEvaluator) getFromCache(ctx context.Context, key string) (result.Response, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached response", zap.String("key", key), zap.Error(err))
		}
		return result.Response{}, false
	}
	if len(data) == 0 {
		return result.Response{}, false
	}

	var resp result.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("Failed to parse cached response", zap.String("key", key), zap.Error(err))
		return result.Response{}, false
	}
	if resp.Items == nil {
		resp.Items = []result.Item{}
	}
	return resp, true
}

func (c *CachedEvaluator) putToCache(ctx context.Context, key string, resp result.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn("Failed to encode response for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if c.ttl > 0 {
		err = c.store.SetWithTTL(ctx, key, data, c.ttl)
	} else {
		err = c.store.Set(ctx, key, data)
	}
	if err != nil {
		c.logger.Warn("Failed to cache response", zap.String("key", key), zap.Error(err))
	}
}
