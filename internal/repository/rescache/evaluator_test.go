package rescache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/compsearch/internal/db"
	"github.com/kailas-cloud/compsearch/internal/domain/search/request"
	"github.com/kailas-cloud/compsearch/internal/domain/search/result"
)

func sampleResponse() result.Response {
	return result.Response{
		TotalCount: 1,
		Items: []result.Item{
			result.New("com.adaptris.core.jms.JmsConsumer", 12, map[string]any{
				"fullClassName": "com.adaptris.core.jms.JmsConsumer",
			}),
		},
	}
}

func TestEvaluate_CacheMiss(t *testing.T) {
	inner := &mockEvaluator{resp: sampleResponse()}
	ce, ms := newTestCachedEvaluator(t, inner)

	var setKey string
	var setTTL time.Duration
	ms.setFn = func(_ context.Context, key string, _ []byte, ttl time.Duration) error {
		setKey, setTTL = key, ttl
		return nil
	}

	resp, err := ce.Evaluate(context.Background(), testRequest(t, "jms"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TotalCount != 1 || inner.calls != 1 {
		t.Fatalf("resp = %+v, calls = %d", resp, inner.calls)
	}
	if !strings.HasPrefix(setKey, "test:res:4.1.0-release:") {
		t.Errorf("cache key = %q", setKey)
	}
	if setTTL != time.Hour {
		t.Errorf("ttl = %v", setTTL)
	}
}

func TestEvaluate_CacheHit(t *testing.T) {
	inner := &mockEvaluator{}
	ce, ms := newTestCachedEvaluator(t, inner)

	cached, err := json.Marshal(sampleResponse())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return cached, nil
	}

	resp, err := ce.Evaluate(context.Background(), testRequest(t, "jms"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 0 {
		t.Errorf("inner called %d times on hit", inner.calls)
	}
	if len(resp.Items) != 1 || resp.Items[0].Identity() != "com.adaptris.core.jms.JmsConsumer" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Items[0].Score() != 12 {
		t.Errorf("score = %f", resp.Items[0].Score())
	}
}

func TestEvaluate_SameMessageSameKey(t *testing.T) {
	ce, ms := newTestCachedEvaluator(t, &mockEvaluator{resp: sampleResponse()})

	var keys []string
	ms.setFn = func(_ context.Context, key string, _ []byte, _ time.Duration) error {
		keys = append(keys, key)
		return nil
	}
	ctx := context.Background()
	_, _ = ce.Evaluate(ctx, testRequest(t, "jms"))
	_, _ = ce.Evaluate(ctx, testRequest(t, "  jms  "))
	_, _ = ce.Evaluate(ctx, testRequest(t, "kafka"))

	if len(keys) != 3 || keys[0] != keys[1] || keys[0] == keys[2] {
		t.Errorf("keys = %v", keys)
	}
}

func TestEvaluate_CorruptCacheFallsThrough(t *testing.T) {
	inner := &mockEvaluator{resp: sampleResponse()}
	ce, ms := newTestCachedEvaluator(t, inner)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return []byte("{not json"), nil
	}

	if _, err := ce.Evaluate(context.Background(), testRequest(t, "jms")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d", inner.calls)
	}
}

func TestEvaluate_StoreErrorFallsThrough(t *testing.T) {
	inner := &mockEvaluator{resp: sampleResponse()}
	ce, ms := newTestCachedEvaluator(t, inner)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, &db.Error{Op: db.OpGet, Err: errors.New("connection refused")}
	}
	ms.setFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
		return errors.New("connection refused")
	}

	resp, err := ce.Evaluate(context.Background(), testRequest(t, "jms"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TotalCount != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestEvaluate_InnerErrorNotCached(t *testing.T) {
	inner := &mockEvaluator{err: errors.New("dataset missing")}
	ce, ms := newTestCachedEvaluator(t, inner)

	var setCalled bool
	ms.setFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
		setCalled = true
		return nil
	}

	if _, err := ce.Evaluate(context.Background(), testRequest(t, "jms")); err == nil {
		t.Fatal("expected error from inner evaluator")
	}
	if setCalled {
		t.Error("error response was cached")
	}
}

func TestEvaluate_ZeroTTLUsesPlainSet(t *testing.T) {
	ms := &mockKVStore{}
	ce := New(&mockEvaluator{resp: sampleResponse()}, ms, "", 0, nil, zap.NewNop())

	var ttl = time.Duration(-1)
	var key string
	ms.setFn = func(_ context.Context, k string, _ []byte, d time.Duration) error {
		key, ttl = k, d
		return nil
	}
	_, _ = ce.Evaluate(context.Background(), testRequest(t, "jms"))
	if ttl != 0 {
		t.Errorf("ttl = %v", ttl)
	}
	if !strings.HasPrefix(key, DefaultKeyPrefix+"res:") {
		t.Errorf("key = %q", key)
	}
}

func TestEvaluate_CountsHitsAndMisses(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	ms := &mockKVStore{}
	ce := New(&mockEvaluator{resp: sampleResponse()}, ms, "", time.Minute, counter, zap.NewNop())

	var stored []byte
	ms.setFn = func(_ context.Context, _ string, v []byte, _ time.Duration) error {
		stored = v
		return nil
	}
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		if stored == nil {
			return nil, db.ErrKeyNotFound
		}
		return stored, nil
	}

	ctx := context.Background()
	_, _ = ce.Evaluate(ctx, testRequest(t, "jms"))
	_, _ = ce.Evaluate(ctx, testRequest(t, "jms"))

	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("misses = %f", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("hits = %f", got)
	}
}

func TestPurge(t *testing.T) {
	ce, ms := newTestCachedEvaluator(t, &mockEvaluator{})

	var pattern string
	var deleted []string
	ms.scanFn = func(_ context.Context, p string) ([]string, error) {
		pattern = p
		return []string{"test:res:4.1.0-release:a", "test:res:4.1.0-release:b"}, nil
	}
	ms.delFn = func(_ context.Context, keys ...string) error {
		deleted = keys
		return nil
	}

	n, err := ce.Purge(context.Background(), "4.1.0-RELEASE")
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if pattern != "test:res:4.1.0-release:*" {
		t.Errorf("pattern = %q", pattern)
	}
	if n != 2 || len(deleted) != 2 {
		t.Errorf("n = %d, deleted = %v", n, deleted)
	}
}

func TestPurge_ScanError(t *testing.T) {
	ce, ms := newTestCachedEvaluator(t, &mockEvaluator{})
	ms.scanFn = func(_ context.Context, _ string) ([]string, error) {
		return nil, errors.New("down")
	}
	if _, err := ce.Purge(context.Background(), "4.1.0-RELEASE"); err == nil {
		t.Fatal("expected error")
	}
}

// blockingEvaluator waits for release before answering.
type blockingEvaluator struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingEvaluator) Evaluate(_ context.Context, _ request.Request) (result.Response, error) {
	close(b.started)
	<-b.release
	return sampleResponse(), nil
}

func TestEvaluate_PurgeDuringEvaluationSkipsCache(t *testing.T) {
	inner := &blockingEvaluator{started: make(chan struct{}), release: make(chan struct{})}
	ms := &mockKVStore{}
	ce := New(inner, ms, "test:", time.Hour, nil, zap.NewNop())

	var sets int
	ms.setFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
		sets++
		return nil
	}

	req := testRequest(t, "jms")
	done := make(chan error, 1)
	go func() {
		_, err := ce.Evaluate(context.Background(), req)
		done <- err
	}()

	<-inner.started
	if _, err := ce.Purge(context.Background(), "4.1.0-RELEASE"); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	close(inner.release)

	if err := <-done; err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if sets != 0 {
		t.Errorf("response cached %d times after a purge of its version", sets)
	}

	// Later evaluations cache again.
	ce.inner = &mockEvaluator{resp: sampleResponse()}
	if _, err := ce.Evaluate(context.Background(), req); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if sets != 1 {
		t.Errorf("sets = %d, want 1", sets)
	}
}
