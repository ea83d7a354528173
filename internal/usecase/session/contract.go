package session

import (
	"context"

	"github.com/kailas-cloud/compsearch/internal/domain/artifact"
	"github.com/kailas-cloud/compsearch/internal/domain/search/request"
	"github.com/kailas-cloud/compsearch/internal/domain/search/result"
	"github.com/kailas-cloud/compsearch/internal/usecase/search"
)

// Orchestrator dispatches searches and exposes their observable state.
type Orchestrator interface {
	Dispatch(ctx context.Context, req request.Request) (uint64, error)
	Snapshot() search.Snapshot
	Wait(ctx context.Context, seq uint64) (search.Snapshot, error)
	Close() error
}

// Exporter owns the export dialog state and the artifact generation.
type Exporter interface {
	Open()
	Close()
	IsOpen() bool
	Confirm(ctx context.Context, version string, items []result.Item) (artifact.Artifact, error)
}
