package export

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/compsearch/internal/domain"
	"github.com/kailas-cloud/compsearch/internal/domain/artifact"
	"github.com/kailas-cloud/compsearch/internal/domain/search/result"
)

// Service tracks the export dialog state and hands the selection to the generator.
type Service struct {
	gen    Generator
	logger *zap.Logger

	mu   sync.Mutex
	open bool
}

// New creates an export service.
func New(gen Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{gen: gen, logger: logger}
}

// Open shows the export dialog.
func (s *Service) Open() {
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
}

// Close hides the export dialog.
func (s *Service) Close() {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
}

// IsOpen reports whether the export dialog is shown.
func (s *Service) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Confirm passes items, unmodified and in order, to the generator.
// The dialog closes on success and stays open on failure.
func (s *Service) Confirm(ctx context.Context, version string, items []result.Item) (artifact.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return artifact.Artifact{}, domain.ErrExportNotOpen
	}
	if len(items) == 0 {
		return artifact.Artifact{}, domain.ErrNothingSelected
	}

	art, err := s.gen.Generate(ctx, version, items)
	if err != nil {
		s.logger.Warn("Export failed", zap.Int("items", len(items)), zap.Error(err))
		return artifact.Artifact{}, fmt.Errorf("generate artifact: %w", err)
	}

	s.open = false
	s.logger.Info("Export generated",
		zap.String("name", art.Name),
		zap.String("version", version),
		zap.Int("items", len(items)),
	)
	return art, nil
}
