package export

import (
	"context"

	"github.com/kailas-cloud/compsearch/internal/domain/artifact"
	"github.com/kailas-cloud/compsearch/internal/domain/search/result"
)

// Generator turns an ordered selection into a build artifact. version is the
// catalog version the selection was searched in.
type Generator interface {
	Generate(ctx context.Context, version string, items []result.Item) (artifact.Artifact, error)
}
