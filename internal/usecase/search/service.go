package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/compsearch/internal/domain"
	"github.com/kailas-cloud/compsearch/internal/domain/search/request"
	"github.com/kailas-cloud/compsearch/internal/domain/search/result"
)

// SearchMessage is shown while a search is in flight.
const SearchMessage = "Searching components..."

// Phase is the orchestrator state.
type Phase string

const (
	// PhaseIdle means no search is outstanding.
	PhaseIdle Phase = "idle"
	// PhaseSearching means the latest dispatched search has not resolved.
	PhaseSearching Phase = "searching"
)

// Outcome is how a reply was handled.
type Outcome string

const (
	// OutcomeSucceeded marks an accepted success reply.
	OutcomeSucceeded Outcome = "ok"
	// OutcomeFailed marks an accepted error reply.
	OutcomeFailed Outcome = "error"
	// OutcomeStale marks a reply dropped because a newer search was dispatched.
	OutcomeStale Outcome = "stale"
)

// Snapshot is the observable result state.
type Snapshot struct {
	Phase         Phase
	Outcome       Outcome
	Loading       bool
	SearchMessage string
	Results       []result.Item
	Total         int
	Error         string
	// Err is the error behind Error, if any.
	Err error
	// Seq is the sequence number of the latest dispatched search.
	Seq uint64
	// Resolved is the sequence number of the last accepted reply.
	Resolved uint64
}

// Service is the search orchestrator. It owns the worker channel, correlates
// replies by sequence number and discards any reply that is not for the most
// recently dispatched request.
type Service struct {
	ch       Channel
	observer Observer
	timeout  time.Duration
	logger   *zap.Logger

	openMu sync.Mutex
	opened bool

	mu       sync.Mutex
	latest   uint64
	resolved uint64
	state    Snapshot
	changed  chan struct{}
	timer    *time.Timer
}

// New creates an orchestrator. observer can be nil. A zero timeout leaves a
// search that never gets a reply loading indefinitely.
func New(ch Channel, observer Observer, timeout time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ch:       ch,
		observer: observer,
		timeout:  timeout,
		logger:   logger,
		state:    Snapshot{Phase: PhaseIdle, Results: []result.Item{}},
		changed:  make(chan struct{}),
	}
}

// Dispatch posts req to the worker and returns its sequence number.
// The channel is opened on first use. Failures are recorded in the snapshot
// as a transport error and also returned.
func (s *Service) Dispatch(ctx context.Context, req request.Request) (uint64, error) {
	s.mu.Lock()
	s.latest++
	seq := s.latest
	s.state.Phase = PhaseSearching
	s.state.Loading = true
	s.state.SearchMessage = SearchMessage
	s.state.Seq = seq
	s.armTimer(seq)
	s.notify()
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.Dispatched(req.Mode())
	}
	s.logger.Debug("Dispatching search",
		zap.Uint64("seq", seq),
		zap.String("mode", string(req.Mode())),
		zap.String("version", req.Dataset().Version()),
	)

	if err := s.open(ctx); err != nil {
		err = fmt.Errorf("%w: open channel: %w", domain.ErrSearchTransport, err)
		s.OnError(seq, err)
		return seq, err
	}

	call := request.Call{Seq: seq, Request: req, Reply: s.handle}
	if err := s.ch.Post(ctx, call); err != nil {
		err = fmt.Errorf("%w: post: %w", domain.ErrSearchTransport, err)
		s.OnError(seq, err)
		return seq, err
	}
	return seq, nil
}

func (s *Service) open(ctx context.Context) error {
	s.openMu.Lock()
	defer s.openMu.Unlock()
	if s.opened {
		return nil
	}
	if err := s.ch.Open(ctx); err != nil {
		return err
	}
	s.opened = true
	return nil
}

func (s *Service) handle(r result.Reply) {
	if r.Err != nil {
		s.OnError(r.Seq, r.Err)
		return
	}
	s.OnSuccess(r.Seq, r.Envelope.Response())
}

// OnSuccess applies a success reply. It reports whether the reply was accepted.
func (s *Service) OnSuccess(seq uint64, resp result.Response) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isCurrent(seq) {
		s.discard(seq)
		return false
	}
	items := resp.Items
	if items == nil {
		items = []result.Item{}
	}
	s.resolve(seq)
	s.state.Outcome = OutcomeSucceeded
	s.state.Results = items
	s.state.Total = max(resp.TotalCount, 0)
	s.state.Error = ""
	s.state.Err = nil
	s.notify()
	if s.observer != nil {
		s.observer.Resolved(OutcomeSucceeded)
	}
	return true
}

// OnError applies an error reply: results are cleared and the error becomes
// the global message. It reports whether the reply was accepted.
func (s *Service) OnError(seq uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isCurrent(seq) {
		s.discard(seq)
		return false
	}
	if !errors.Is(err, domain.ErrSearchTransport) {
		err = fmt.Errorf("%w: %w", domain.ErrSearchTransport, err)
	}
	s.resolve(seq)
	s.state.Outcome = OutcomeFailed
	s.state.Results = []result.Item{}
	s.state.Total = 0
	s.state.Error = err.Error()
	s.state.Err = err
	s.notify()
	s.logger.Warn("Search failed", zap.Uint64("seq", seq), zap.Error(err))
	if s.observer != nil {
		s.observer.Resolved(OutcomeFailed)
	}
	return true
}

// Snapshot returns a copy of the current state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Wait blocks until seq resolves. It returns ErrStaleResponse once a newer
// search has superseded seq, along with the state at that point.
func (s *Service) Wait(ctx context.Context, seq uint64) (Snapshot, error) {
	for {
		s.mu.Lock()
		switch {
		case s.resolved == seq:
			snap := s.snapshot()
			s.mu.Unlock()
			return snap, nil
		case s.latest > seq, seq > s.latest:
			snap := s.snapshot()
			s.mu.Unlock()
			return snap, fmt.Errorf("wait for search %d: %w", seq, domain.ErrStaleResponse)
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		case <-changed:
		}
	}
}

// Close stops the pending timer and closes the worker channel if it was opened.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.openMu.Lock()
	defer s.openMu.Unlock()
	if !s.opened {
		return nil
	}
	s.opened = false
	if err := s.ch.Close(); err != nil {
		return fmt.Errorf("close channel: %w", err)
	}
	return nil
}

func (s *Service) isCurrent(seq uint64) bool {
	return seq == s.latest && s.resolved < seq
}

func (s *Service) discard(seq uint64) {
	s.logger.Debug("Discarding stale reply",
		zap.Uint64("seq", seq),
		zap.Uint64("latest", s.latest),
	)
	if s.observer != nil {
		s.observer.Resolved(OutcomeStale)
	}
}

func (s *Service) resolve(seq uint64) {
	s.resolved = seq
	s.state.Resolved = seq
	s.state.Phase = PhaseIdle
	s.state.Loading = false
	s.state.SearchMessage = ""
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Service) armTimer(seq uint64) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.timeout <= 0 {
		return
	}
	s.timer = time.AfterFunc(s.timeout, func() {
		s.OnError(seq, domain.ErrResponseTimeout)
	})
}

// notify wakes every Wait. Callers hold mu.
func (s *Service) notify() {
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Service) snapshot() Snapshot {
	snap := s.state
	snap.Results = slices.Clone(s.state.Results)
	return snap
}
