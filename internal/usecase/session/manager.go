package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/compsearch/internal/domain"
	"github.com/kailas-cloud/compsearch/internal/domain/dataset"
	"github.com/kailas-cloud/compsearch/internal/usecase/export"
	"github.com/kailas-cloud/compsearch/internal/usecase/search"
)

// Config sizes new sessions.
type Config struct {
	PageSize        int
	WindowLimit     int
	ResponseTimeout time.Duration
	// IdleTTL evicts sessions untouched for longer. Zero keeps them forever.
	IdleTTL time.Duration
}

// Manager creates and tracks sessions. Every session gets its own
// orchestrator, all of them posting to the same worker channel.
type Manager struct {
	catalog  dataset.Catalog
	ch       search.Channel
	gen      export.Generator
	observer search.Observer
	cfg      Config
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager. observer can be nil.
func NewManager(
	catalog dataset.Catalog,
	ch search.Channel,
	gen export.Generator,
	observer search.Observer,
	cfg Config,
	logger *zap.Logger,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		catalog:  catalog,
		ch:       sharedChannel{ch},
		gen:      gen,
		observer: observer,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Catalog returns the configured dataset versions.
func (m *Manager) Catalog() dataset.Catalog { return m.catalog }

// Create starts a new session.
func (m *Manager) Create() *Session {
	id := uuid.NewString()
	orch := search.New(m.ch, m.observer, m.cfg.ResponseTimeout, m.logger)
	exp := export.New(m.gen, m.logger)
	s := New(id, m.catalog, orch, exp, m.cfg.PageSize, m.cfg.WindowLimit, m.logger)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Debug("Session created", zap.String("session_id", id))
	return s
}

// Get returns a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return s, nil
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return s.Close()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Evict closes sessions idle since before now-IdleTTL and returns how many went.
func (m *Manager) Evict(now time.Time) int {
	if m.cfg.IdleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-m.cfg.IdleTTL)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.LastUsed().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		if err := s.Close(); err != nil {
			m.logger.Warn("Failed to close evicted session", zap.Error(err))
		}
	}
	if len(stale) > 0 {
		m.logger.Info("Evicted idle sessions", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Run evicts idle sessions until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	if m.cfg.IdleTTL <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(max(m.cfg.IdleTTL/2, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			m.Evict(now)
		}
	}
}

// Close closes every session. The shared worker channel stays open.
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// sharedChannel keeps one session from closing the worker all sessions use.
type sharedChannel struct {
	search.Channel
}

func (sharedChannel) Close() error { return nil }
