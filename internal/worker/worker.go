package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/compsearch/internal/domain"
	"github.com/kailas-cloud/compsearch/internal/domain/search/request"
	"github.com/kailas-cloud/compsearch/internal/domain/search/result"
)

// DefaultInboxSize is the number of calls that can be queued before Post blocks.
const DefaultInboxSize = 16

// Evaluator executes one search request.
type Evaluator interface {
	Evaluate(ctx context.Context, req request.Request) (result.Response, error)
}

// Worker is the single background index worker. Calls are served one at a
// time on a dedicated goroutine; each reply is delivered through the call's
// Reply callback from that goroutine.
type Worker struct {
	eval      Evaluator
	inboxSize int
	logger    *zap.Logger

	mu     sync.RWMutex
	inbox  chan request.Call
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// New creates a worker. It does not start until Open.
func New(eval Evaluator, inboxSize int, logger *zap.Logger) *Worker {
	if inboxSize <= 0 {
		inboxSize = DefaultInboxSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{eval: eval, inboxSize: inboxSize, logger: logger}
}

// Open starts the worker goroutine. Calling it again is a no-op.
// The goroutine outlives ctx and stops on Close.
func (w *Worker) Open(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return domain.ErrChannelClosed
	}
	if w.inbox != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.inbox = make(chan request.Call, w.inboxSize)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx, w.inbox, w.done)

	w.logger.Info("Index worker started", zap.Int("inbox_size", w.inboxSize))
	return nil
}

// Post queues a call. It blocks only while the inbox is full.
func (w *Worker) Post(ctx context.Context, call request.Call) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed || w.inbox == nil {
		return domain.ErrChannelClosed
	}

	select {
	case w.inbox <- call:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("post call %d: %w", call.Seq, ctx.Err())
	}
}

// Close stops the worker and fails every queued call with ErrChannelClosed.
func (w *Worker) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	inbox, done, cancel := w.inbox, w.done, w.cancel
	w.mu.Unlock()

	if inbox == nil {
		return nil
	}
	cancel()
	<-done

	for {
		select {
		case call := <-inbox:
			reply(call, result.Reply{Seq: call.Seq, Err: domain.ErrChannelClosed})
		default:
			w.logger.Info("Index worker stopped")
			return nil
		}
	}
}

// Ping reports whether the worker accepts calls.
func (w *Worker) Ping(_ context.Context) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return domain.ErrChannelClosed
	}
	return nil
}

func (w *Worker) run(ctx context.Context, inbox <-chan request.Call, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case call := <-inbox:
			if ctx.Err() != nil {
				reply(call, result.Reply{Seq: call.Seq, Err: domain.ErrChannelClosed})
				return
			}
			w.serve(ctx, call)
		}
	}
}

func (w *Worker) serve(ctx context.Context, call request.Call) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Index worker panic",
				zap.Uint64("seq", call.Seq),
				zap.Any("panic", r),
			)
			reply(call, result.Reply{Seq: call.Seq, Err: fmt.Errorf("worker panic: %v", r)})
		}
	}()

	resp, err := w.eval.Evaluate(ctx, call.Request)
	if err != nil {
		w.logger.Debug("Evaluation failed", zap.Uint64("seq", call.Seq), zap.Error(err))
		reply(call, result.Reply{Seq: call.Seq, Err: err})
		return
	}
	reply(call, result.Reply{Seq: call.Seq, Envelope: result.Wrap(resp)})
}

func reply(call request.Call, r result.Reply) {
	if call.Reply != nil {
		call.Reply(r)
	}
}
