package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/compsearch/internal/config"
	"github.com/kailas-cloud/compsearch/internal/db"
	"github.com/kailas-cloud/compsearch/internal/domain"
	"github.com/kailas-cloud/compsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/compsearch/internal/domain/search/request"
	"github.com/kailas-cloud/compsearch/internal/domain/search/result"
	"github.com/kailas-cloud/compsearch/internal/repository/rescache"
	healthuc "github.com/kailas-cloud/compsearch/internal/usecase/health"
	sessionuc "github.com/kailas-cloud/compsearch/internal/usecase/session"
	"github.com/kailas-cloud/compsearch/internal/worker"
)

const catalogJSON = `{"components":[
 {"fullClassName":"com.adaptris.core.jms.JmsConsumer","alias":"jms-consumer","artifactId":"interlok-core",
  "parents":["com.adaptris.core.StandardWorkflow"],"profile":{"tag":"jms,consumer"}},
 {"fullClassName":"com.adaptris.core.kafka.KafkaConsumer","alias":"kafka-consumer","artifactId":"interlok-kafka",
  "parents":["com.adaptris.core.StandardWorkflow"],"profile":{"tag":"kafka"}},
 {"fullClassName":"com.adaptris.core.services.LogMessageService","alias":"log-message-service",
  "artifactId":"interlok-core","parents":["com.adaptris.core.ServiceList"]}
]}`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "interlok-component-4.1.0-release.json"), []byte(catalogJSON), 0o600); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	cfg := config.Config{
		HTTP: config.HTTPConfig{Port: 8080},
		Catalog: config.CatalogConfig{
			Versions:    []string{"4.1.0-RELEASE"},
			URLTemplate: "interlok-component-{version}.json",
			BaseDir:     dir,
		},
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return cfg
}

func build(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a, err := Build(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestBuild_SearchEndToEnd(t *testing.T) {
	a := build(t, testConfig(t))
	ctx := context.Background()

	s := a.Sessions().Create()
	if _, err := s.Search(ctx, sessionuc.Input{
		Query:   "com.adaptris.core.StandardWorkflow:consumer",
		Version: "4.1.0-RELEASE",
		Mode:    mode.Instances,
	}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	v, err := s.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if v.Total != 2 || len(v.Results) != 2 {
		t.Fatalf("total=%d results=%d errors=%v", v.Total, len(v.Results), v.Errors)
	}
	if v.Results[0].Identity() != "com.adaptris.core.jms.JmsConsumer" {
		t.Errorf("first = %s", v.Results[0].Identity())
	}

	if r := a.Health().Check(ctx); r.Status != healthuc.Healthy {
		t.Errorf("health = %+v", r)
	}
	if _, ok := a.Health().Check(ctx).Checks[healthuc.CheckCache]; ok {
		t.Error("cache check present with cache disabled")
	}
}

func TestBuild_MissingDatasetIsGlobalError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.Versions = append(cfg.Catalog.Versions, "3.0.0-RELEASE")
	a := build(t, cfg)
	ctx := context.Background()

	s := a.Sessions().Create()
	if _, err := s.Search(ctx, sessionuc.Input{Query: "jms", Version: "3.0.0-RELEASE"}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	v, err := s.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !strings.Contains(v.Errors["global"], "dataset not found") {
		t.Errorf("errors = %v", v.Errors)
	}
}

func TestBuild_UnknownCacheDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache = config.CacheConfig{Enabled: true, Driver: "memcached", Addrs: []string{"localhost:1"}}
	if _, err := Build(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestWatchDirs(t *testing.T) {
	cfg := testConfig(t)
	a := build(t, cfg)
	if dirs := a.watchDirs(); len(dirs) != 0 {
		t.Errorf("watch disabled but watchDirs = %v", dirs)
	}

	cfg.Catalog.Watch = true
	a = build(t, cfg)
	if dirs := a.watchDirs(); len(dirs) != 1 || dirs[0] != a.Loader().Locate(cfg.Catalog.BaseDir) {
		t.Errorf("watchDirs = %v", dirs)
	}

	// One directory per version; versions sharing a directory and missing
	// directories are skipped.
	for _, d := range []string{"4.1.0-release", "4.0.0-release"} {
		if err := os.Mkdir(filepath.Join(cfg.Catalog.BaseDir, d), 0o700); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	cfg.Catalog.Versions = []string{"4.1.0-RELEASE", "4.0.0-RELEASE", "3.0.0-RELEASE"}
	cfg.Catalog.URLTemplate = "{version}/catalog.json"
	a = build(t, cfg)
	dirs := a.watchDirs()
	want := []string{
		filepath.Join(a.Loader().Locate(cfg.Catalog.BaseDir), "4.1.0-release"),
		filepath.Join(a.Loader().Locate(cfg.Catalog.BaseDir), "4.0.0-release"),
	}
	if !slices.Equal(dirs, want) {
		t.Errorf("watchDirs = %v, want %v", dirs, want)
	}

	cfg.Catalog.URLTemplate = "https://example.com/c-{version}.json"
	a = build(t, cfg)
	if dirs := a.watchDirs(); len(dirs) != 0 {
		t.Errorf("remote datasets should not be watched: %v", dirs)
	}
}

func TestBuild_WorkerStartsOnFirstSearch(t *testing.T) {
	a := build(t, testConfig(t))
	ctx := context.Background()

	replied := make(chan struct{}, 1)
	call := request.Call{Seq: 1, Reply: func(result.Reply) { replied <- struct{}{} }}
	if err := a.worker.Post(ctx, call); !errors.Is(err, domain.ErrChannelClosed) {
		t.Fatalf("worker accepted a call before any search: %v", err)
	}
	if r := a.Health().Check(ctx); r.Status != healthuc.Healthy {
		t.Errorf("health before first search = %+v", r)
	}

	s := a.Sessions().Create()
	if _, err := s.Search(ctx, sessionuc.Input{Query: "jms", Version: "4.1.0-RELEASE"}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if err := a.worker.Post(ctx, call); err != nil {
		t.Fatalf("worker not running after the first search: %v", err)
	}
	select {
	case <-replied:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not answer")
	}
}

func TestBuild_ExportUsesSearchedVersion(t *testing.T) {
	a := build(t, testConfig(t))
	ctx := context.Background()

	s := a.Sessions().Create()
	if _, err := s.Search(ctx, sessionuc.Input{Query: "consumer", Version: "4.1.0-RELEASE"}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if n := s.SelectAll(); n == 0 {
		t.Fatal("nothing to select")
	}
	s.OpenExport()
	art, err := s.ConfirmExport(ctx)
	if err != nil {
		t.Fatalf("ConfirmExport: %v", err)
	}
	body := string(art.Body)
	if !strings.Contains(body, "interlokVersion = '4.1.0-RELEASE'") {
		t.Errorf("build.gradle without the searched version:\n%s", body)
	}
	if !strings.Contains(body, `implementation "com.adaptris:interlok-kafka:$interlokVersion"`) {
		t.Errorf("build.gradle missing kafka dependency:\n%s", body)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.Watch = true
	a := build(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// memStore is an in-memory cache store.
type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) SetWithTTL(ctx context.Context, key string, value []byte, _ time.Duration) error {
	return m.Set(ctx, key, value)
}

func (m *memStore) Scan(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func TestInvalidate_PurgesCachedResponses(t *testing.T) {
	cfg := testConfig(t)
	a := build(t, cfg)

	store := &memStore{data: map[string][]byte{}}
	a.cache = rescache.New(worker.NewEngine(a.loader), store, "", 0, nil, nil)
	a.purgeOnInvalidate()

	ds, err := a.Catalog().Resolve("4.1.0-RELEASE")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := a.loader.Load(context.Background(), ds); err != nil {
		t.Fatalf("Load: %v", err)
	}
	_ = store.Set(context.Background(), rescache.DefaultKeyPrefix+"res:4.1.0-release:abc", []byte(`{}`))
	_ = store.Set(context.Background(), rescache.DefaultKeyPrefix+"res:4.0.0-release:abc", []byte(`{}`))

	if !a.loader.Invalidate(a.loader.Locate(a.catalog.URLFor("4.1.0-RELEASE"))) {
		t.Fatal("dataset was not cached")
	}
	if store.len() != 1 {
		t.Errorf("store holds %d keys after purge, want 1", store.len())
	}
}
