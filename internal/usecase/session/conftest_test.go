package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/kailas-cloud/compsearch/internal/domain/artifact"
	"github.com/kailas-cloud/compsearch/internal/domain/dataset"
	"github.com/kailas-cloud/compsearch/internal/domain/search/request"
	"github.com/kailas-cloud/compsearch/internal/domain/search/result"
	"github.com/kailas-cloud/compsearch/internal/usecase/export"
	"github.com/kailas-cloud/compsearch/internal/usecase/search"
)

// fakeChannel records posted calls; tests answer them explicitly.
type fakeChannel struct {
	mu     sync.Mutex
	calls  []request.Call
	closes int
}

func (f *fakeChannel) Open(context.Context) error { return nil }

func (f *fakeChannel) Post(_ context.Context, call request.Call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeChannel) last(t *testing.T) request.Call {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("no call posted")
	}
	return f.calls[len(f.calls)-1]
}

// answer replies to the last posted call with n items named <prefix>0..n-1.
func (f *fakeChannel) answer(t *testing.T, prefix string, n int) {
	t.Helper()
	call := f.last(t)
	call.Reply(result.Reply{Seq: call.Seq, Envelope: result.Wrap(makeResponse(prefix, n))})
}

func makeResponse(prefix string, n int) result.Response {
	items := make([]result.Item, n)
	for i := range items {
		id := fmt.Sprintf("%s%d", prefix, i)
		items[i] = result.New(id, 0, map[string]any{"fullClassName": id, "artifactId": id})
	}
	return result.Response{TotalCount: n, Items: items}
}

type stubGenerator struct {
	got     []result.Item
	version string
}

func (g *stubGenerator) Generate(_ context.Context, version string, items []result.Item) (artifact.Artifact, error) {
	g.got = items
	g.version = version
	return artifact.Artifact{Name: "build.gradle", Body: []byte("dependencies {}")}, nil
}

func testCatalog(t *testing.T) dataset.Catalog {
	t.Helper()
	c, err := dataset.NewCatalog([]string{"4.1.0-RELEASE", "4.0.0-RELEASE"}, "")
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return c
}

func newTestSession(t *testing.T) (*Session, *fakeChannel, *stubGenerator) {
	t.Helper()
	ch := &fakeChannel{}
	gen := &stubGenerator{}
	orch := search.New(ch, nil, 0, nil)
	s := New("s1", testCatalog(t), orch, export.New(gen, nil), 10, 5, nil)
	return s, ch, gen
}
