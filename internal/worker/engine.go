package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/kailas-cloud/compsearch/internal/domain/dataset"
	"github.com/kailas-cloud/compsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/compsearch/internal/domain/search/query"
	"github.com/kailas-cloud/compsearch/internal/domain/search/request"
	"github.com/kailas-cloud/compsearch/internal/domain/search/result"
	"github.com/kailas-cloud/compsearch/internal/metrics"
)

// TextFields are the attributes a components search matches against, in order.
var TextFields = []string{
	"fullClassName", "className", "alias", "componentType", "packageName", "profile.tag",
}

// Loader returns the raw items of a dataset.
type Loader interface {
	Load(ctx context.Context, ds dataset.Dataset) ([]map[string]any, error)
}

// Engine evaluates search requests against loaded datasets.
type Engine struct {
	loader Loader
}

// NewEngine creates an evaluation engine.
func NewEngine(loader Loader) *Engine {
	return &Engine{loader: loader}
}

// Evaluate runs req against its dataset and returns the full match set.
func (e *Engine) Evaluate(ctx context.Context, req request.Request) (result.Response, error) {
	start := time.Now()
	resp, err := e.evaluate(ctx, req)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.WorkerEvaluationDuration.
		WithLabelValues(string(req.Mode()), status).
		Observe(time.Since(start).Seconds())

	return resp, err
}

func (e *Engine) evaluate(ctx context.Context, req request.Request) (result.Response, error) {
	items, err := e.loader.Load(ctx, req.Dataset())
	if err != nil {
		return result.Response{}, fmt.Errorf("load dataset %s: %w", req.Dataset().Version(), err)
	}

	switch req.Mode() {
	case mode.Components:
		return rank(req.Text(), items), nil
	case mode.Instances:
		return filter(req.Filter(), items), nil
	default:
		return result.Response{}, fmt.Errorf("unsupported search mode: %s", req.Mode())
	}
}

// rank fuzzy-matches text against each item's text fields, best first.
func rank(text string, items []map[string]any) result.Response {
	matches := fuzzy.FindFrom(text, itemSource(items))

	out := make([]result.Item, 0, len(matches))
	for _, m := range matches {
		out = append(out, result.FromAttrs(items[m.Index], float64(m.Score), m.Index))
	}
	return result.Response{TotalCount: len(out), Items: out}
}

// filter keeps the items matching node, in dataset order.
func filter(node query.Node, items []map[string]any) result.Response {
	out := make([]result.Item, 0)
	for i, attrs := range items {
		if node.Match(attrs) {
			out = append(out, result.FromAttrs(attrs, 0, i))
		}
	}
	return result.Response{TotalCount: len(out), Items: out}
}

// itemSource implements fuzzy.Source over raw dataset items.
type itemSource []map[string]any

func (s itemSource) String(i int) string {
	var b strings.Builder
	for _, f := range TextFields {
		v, _ := query.Resolve(s[i], f)
		str, ok := v.(string)
		if !ok || str == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(str)
	}
	return b.String()
}

func (s itemSource) Len() int {
	return len(s)
}
