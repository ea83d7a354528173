package rescache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/compsearch/internal/db"
	"github.com/kailas-cloud/compsearch/internal/domain/dataset"
	"github.com/kailas-cloud/compsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/compsearch/internal/domain/search/request"
	"github.com/kailas-cloud/compsearch/internal/domain/search/result"
)

type mockEvaluator struct {
	resp  result.Response
	err   error
	calls int
}

func (m *mockEvaluator) Evaluate(_ context.Context, _ request.Request) (result.Response, error) {
	m.calls++
	return m.resp, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn  func(ctx context.Context, key string) ([]byte, error)
	setFn  func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	scanFn func(ctx context.Context, pattern string) ([]string, error)
	delFn  func(ctx context.Context, keys ...string) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte) error {
	return m.SetWithTTL(ctx, key, value, 0)
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func (m *mockKVStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func (m *mockKVStore) Del(ctx context.Context, keys ...string) error {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return nil
}

func newTestCachedEvaluator(t *testing.T, inner *mockEvaluator) (*CachedEvaluator, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	ce := New(inner, ms, "test:", time.Hour, nil, zap.NewNop())
	return ce, ms
}

func testRequest(t *testing.T, q string) request.Request {
	t.Helper()
	ds, err := dataset.New("4.1.0-RELEASE", "data/interlok-component-4.1.0-release.json")
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	r, err := request.Build(q, mode.Components, ds)
	if err != nil {
		t.Fatalf("request.Build: %v", err)
	}
	return r
}
