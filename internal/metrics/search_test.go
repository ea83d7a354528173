package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/compsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/compsearch/internal/usecase/search"
)

func TestSearchObserver(t *testing.T) {
	var obs SearchObserver

	before := testutil.ToFloat64(SearchesTotal.WithLabelValues("instances"))
	obs.Dispatched(mode.Instances)
	if got := testutil.ToFloat64(SearchesTotal.WithLabelValues("instances")); got != before+1 {
		t.Errorf("searches_total{mode=instances} = %f, want %f", got, before+1)
	}

	staleBefore := testutil.ToFloat64(SearchRepliesTotal.WithLabelValues("stale"))
	obs.Resolved(search.OutcomeStale)
	obs.Resolved(search.OutcomeStale)
	if got := testutil.ToFloat64(SearchRepliesTotal.WithLabelValues("stale")); got != staleBefore+2 {
		t.Errorf("search_replies_total{outcome=stale} = %f, want %f", got, staleBefore+2)
	}
}

func TestRegisterSearchMetrics_Idempotent(t *testing.T) {
	RegisterSearchMetrics()
	RegisterSearchMetrics()
	if !searchMetricsRegistered {
		t.Error("metrics not marked registered")
	}
}
