package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/compsearch/internal/domain/dataset"
	"github.com/kailas-cloud/compsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/compsearch/internal/domain/search/request"
)

// --- Mocks ---

type staticLoader struct {
	items []map[string]any
	err   error
	calls int
}

func (l *staticLoader) Load(_ context.Context, _ dataset.Dataset) ([]map[string]any, error) {
	l.calls++
	return l.items, l.err
}

func catalog() []map[string]any {
	return []map[string]any{
		{
			"fullClassName": "com.adaptris.core.jms.JmsConsumer",
			"className":     "JmsConsumer",
			"alias":         "jms-consumer",
			"parents":       []any{"com.adaptris.core.StandardWorkflow"},
			"profile":       map[string]any{"tag": "jms,consumer"},
		},
		{
			"fullClassName": "com.adaptris.core.http.HttpProducer",
			"className":     "HttpProducer",
			"alias":         "http-producer",
			"parents":       []any{"com.adaptris.core.StandardWorkflow", "com.adaptris.core.PoolingWorkflow"},
			"profile":       map[string]any{"tag": "http,producer"},
		},
		{
			"artifactId": "interlok-kafka",
			"parents":    []any{"com.adaptris.core.PoolingWorkflow"},
		},
	}
}

func build(t *testing.T, q string, m mode.Mode) request.Request {
	t.Helper()
	ds, err := dataset.New("4.1.0-RELEASE", "data/interlok-component-4.1.0-release.json")
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	r, err := request.Build(q, m, ds)
	if err != nil {
		t.Fatalf("request.Build: %v", err)
	}
	return r
}

// --- Tests ---

func TestEvaluate_Components(t *testing.T) {
	e := NewEngine(&staticLoader{items: catalog()})

	resp, err := e.Evaluate(context.Background(), build(t, "JmsCons", mode.Components))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if resp.TotalCount != 1 || len(resp.Items) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
	if got := resp.Items[0].Identity(); got != "com.adaptris.core.jms.JmsConsumer" {
		t.Errorf("identity = %q", got)
	}
	if resp.Items[0].Score() <= 0 {
		t.Errorf("score = %f, want > 0", resp.Items[0].Score())
	}
}

func TestEvaluate_ComponentsNoMatch(t *testing.T) {
	e := NewEngine(&staticLoader{items: catalog()})

	resp, err := e.Evaluate(context.Background(), build(t, "zzzzqqq", mode.Components))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if resp.TotalCount != 0 || resp.Items == nil {
		t.Errorf("resp = %+v", resp)
	}
}

func TestEvaluate_InstancesParentOnly(t *testing.T) {
	e := NewEngine(&staticLoader{items: catalog()})

	resp, err := e.Evaluate(context.Background(), build(t, "com.adaptris.core.PoolingWorkflow", mode.Instances))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if resp.TotalCount != 2 {
		t.Fatalf("TotalCount = %d, want 2", resp.TotalCount)
	}
	if got := resp.Items[1].Identity(); got != "interlok-kafka" {
		t.Errorf("artifactId fallback identity = %q", got)
	}
}

func TestEvaluate_InstancesWithSubFilter(t *testing.T) {
	e := NewEngine(&staticLoader{items: catalog()})

	resp, err := e.Evaluate(context.Background(), build(t, "com.adaptris.core.StandardWorkflow:producer", mode.Instances))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if resp.TotalCount != 1 || resp.Items[0].Identity() != "com.adaptris.core.http.HttpProducer" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestEvaluate_ParentIsExact(t *testing.T) {
	e := NewEngine(&staticLoader{items: catalog()})

	resp, err := e.Evaluate(context.Background(), build(t, "StandardWorkflow", mode.Instances))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if resp.TotalCount != 0 {
		t.Errorf("partial parent matched %d items", resp.TotalCount)
	}
}

func TestEvaluate_LoaderError(t *testing.T) {
	boom := errors.New("not found")
	e := NewEngine(&staticLoader{err: boom})

	_, err := e.Evaluate(context.Background(), build(t, "jms", mode.Components))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestItemSource_String(t *testing.T) {
	src := itemSource(catalog())
	if src.Len() != 3 {
		t.Fatalf("Len = %d", src.Len())
	}
	want := "com.adaptris.core.jms.JmsConsumer JmsConsumer jms-consumer jms,consumer"
	if got := src.String(0); got != want {
		t.Errorf("String(0) = %q, want %q", got, want)
	}
	if got := src.String(2); got != "" {
		t.Errorf("String(2) = %q", got)
	}
}
