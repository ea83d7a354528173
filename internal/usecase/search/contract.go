package search

import (
	"context"

	"github.com/kailas-cloud/compsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/compsearch/internal/domain/search/request"
)

// Channel is the transport to the single index worker.
// Open must be idempotent. Post must not block on the worker finishing the call:
// the worker answers later through call.Reply, possibly out of order.
type Channel interface {
	Open(ctx context.Context) error
	Post(ctx context.Context, call request.Call) error
	Close() error
}

// Observer receives orchestration events. Implemented by the metrics layer.
type Observer interface {
	Dispatched(m mode.Mode)
	Resolved(o Outcome)
}
