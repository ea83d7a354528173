package compsearch

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	versions      []string
	urlTemplate   string
	baseDir       string
	httpTimeout   time.Duration
	watch         bool
	pageSize      int
	windowLimit   int
	respTimeout   time.Duration
	inboxSize     int
	cacheDriver   string // "valkey" or "redis"
	cacheAddrs    []string
	cachePassword string
	cacheTTL      time.Duration
	cachePrefix   string
	exportGroup   string
	exportVersion string
	exportRepos   []string
	logger        *zap.Logger
}

// WithVersions sets the catalog versions, newest first. The first is the default.
func WithVersions(versions ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.versions = append([]string(nil), versions...)
	})
}

// WithURLTemplate sets where datasets live. {version} is replaced by the
// lower-cased version. File paths, file:// and http(s):// URLs are accepted.
func WithURLTemplate(tmpl string) Option {
	return optionFunc(func(c *clientConfig) {
		c.urlTemplate = tmpl
	})
}

// WithBaseDir resolves relative dataset paths against dir.
func WithBaseDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseDir = dir
	})
}

// WithHTTPTimeout bounds remote dataset downloads.
func WithHTTPTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpTimeout = d
	})
}

// WithPagination sets the page size and the page window limit.
func WithPagination(pageSize, windowLimit int) Option {
	return optionFunc(func(c *clientConfig) {
		c.pageSize = pageSize
		c.windowLimit = windowLimit
	})
}

// WithResponseTimeout fails a search the worker has not answered within d.
// Zero (default) waits forever.
func WithResponseTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.respTimeout = d
	})
}

// WithInboxSize sets how many searches can queue for the worker.
func WithInboxSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.inboxSize = n
	})
}

// WithValkeyCache caches worker responses in Valkey. ttl 0 keeps entries forever.
func WithValkeyCache(addr, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "valkey"
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
		c.cacheTTL = ttl
	})
}

// WithRedisCache caches worker responses in Redis. ttl 0 keeps entries forever.
func WithRedisCache(addr, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDriver = "redis"
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
		c.cacheTTL = ttl
	})
}

// WithCacheKeyPrefix namespaces cache keys. Default: "compsearch:".
func WithCacheKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cachePrefix = prefix
	})
}

// WithExport sets the build.gradle group fallback, interlokVersion and extra
// maven repositories.
func WithExport(group, version string, repositories ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.exportGroup = group
		c.exportVersion = version
		c.exportRepos = append([]string(nil), repositories...)
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithWatch reloads local datasets when their files change.
func WithWatch() Option {
	return optionFunc(func(c *clientConfig) {
		c.watch = true
	})
}
