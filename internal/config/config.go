package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the compsearch configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Auth    AuthConfig    `yaml:"auth"`
	Catalog CatalogConfig `yaml:"catalog"`
	Search  SearchConfig  `yaml:"search"`
	Cache   CacheConfig   `yaml:"cache"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	WaitTimeoutSec  int `yaml:"wait_timeout_sec"`
}

// CatalogConfig lists the dataset versions and where their files live.
type CatalogConfig struct {
	// Versions are newest first; the first one is preselected.
	Versions []string `yaml:"versions"`
	// DefaultVersion moves a version to the front of Versions.
	DefaultVersion string `yaml:"default_version"`
	// URLTemplate must contain {version}.
	URLTemplate string `yaml:"url_template"`
	// BaseDir resolves relative dataset paths.
	BaseDir string `yaml:"base_dir"`
	// Watch invalidates cached datasets when files under BaseDir change.
	Watch          bool `yaml:"watch"`
	HTTPTimeoutSec int  `yaml:"http_timeout_sec"`
}

// SearchConfig holds session and worker settings.
type SearchConfig struct {
	PageSize           int `yaml:"page_size"`
	WindowLimit        int `yaml:"window_limit"`
	ResponseTimeoutSec int `yaml:"response_timeout_sec"` // 0 = no timeout
	InboxSize          int `yaml:"inbox_size"`
	SessionIdleTTLSec  int `yaml:"session_idle_ttl_sec"` // 0 = sessions never expire
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Driver           string   `yaml:"driver"` // redis, valkey (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"` // 0 = no expiry
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ExportConfig holds build file generation settings.
type ExportConfig struct {
	Group        string   `yaml:"group"`
	Version      string   `yaml:"version"` // pins interlokVersion; empty uses the searched catalog version
	Repositories []string `yaml:"repositories"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 40
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.WaitTimeoutSec <= 0 {
		c.HTTP.WaitTimeoutSec = 30
	}
	if c.Catalog.URLTemplate == "" {
		c.Catalog.URLTemplate = "data/interlok-component-{version}.json"
	}
	if c.Catalog.HTTPTimeoutSec <= 0 {
		c.Catalog.HTTPTimeoutSec = 30
	}
	if c.Catalog.DefaultVersion != "" {
		i := slices.Index(c.Catalog.Versions, c.Catalog.DefaultVersion)
		if i < 0 {
			c.Catalog.Versions = append([]string{c.Catalog.DefaultVersion}, c.Catalog.Versions...)
		} else if i > 0 {
			v := slices.Delete(slices.Clone(c.Catalog.Versions), i, i+1)
			c.Catalog.Versions = append([]string{c.Catalog.DefaultVersion}, v...)
		}
	}
	if c.Search.PageSize <= 0 {
		c.Search.PageSize = 10
	}
	if c.Search.WindowLimit <= 0 {
		c.Search.WindowLimit = 5
	}
	if c.Search.InboxSize <= 0 {
		c.Search.InboxSize = 16
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "valkey"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "compsearch:"
	}
	if c.Export.Group == "" {
		c.Export.Group = "com.adaptris"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Catalog.Versions) == 0 {
		return fmt.Errorf("catalog.versions is required")
	}
	seen := make(map[string]struct{}, len(c.Catalog.Versions))
	for _, v := range c.Catalog.Versions {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("catalog.versions must not contain blank entries")
		}
		if _, dup := seen[v]; dup {
			return fmt.Errorf("catalog.versions contains %q twice", v)
		}
		seen[v] = struct{}{}
	}
	if !strings.Contains(c.Catalog.URLTemplate, "{version}") {
		return fmt.Errorf("catalog.url_template must contain {version}, got %q", c.Catalog.URLTemplate)
	}
	if c.Search.ResponseTimeoutSec < 0 {
		return fmt.Errorf("search.response_timeout_sec must not be negative, got %d", c.Search.ResponseTimeoutSec)
	}
	if c.Search.SessionIdleTTLSec < 0 {
		return fmt.Errorf("search.session_idle_ttl_sec must not be negative, got %d", c.Search.SessionIdleTTLSec)
	}
	if c.Cache.Enabled {
		switch c.Cache.Driver {
		case "redis", "valkey":
			// ok
		default:
			return fmt.Errorf("cache.driver must be \"redis\" or \"valkey\", got %q", c.Cache.Driver)
		}
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required when the cache is enabled")
		}
		if c.Cache.TTLSec < 0 {
			return fmt.Errorf("cache.ttl_sec must not be negative, got %d", c.Cache.TTLSec)
		}
	}
	return nil
}

// ResponseTimeout returns the worker response timeout; zero disables it.
func (c *SearchConfig) ResponseTimeout() time.Duration {
	return time.Duration(c.ResponseTimeoutSec) * time.Second
}

// SessionIdleTTL returns how long an untouched session lives; zero keeps it forever.
func (c *SearchConfig) SessionIdleTTL() time.Duration {
	return time.Duration(c.SessionIdleTTLSec) * time.Second
}

// TTL returns the response cache entry lifetime; zero means no expiry.
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
