package health

import "context"

// WorkerPinger checks that the index worker accepts calls.
type WorkerPinger interface {
	Ping(ctx context.Context) error
}

// CachePinger checks response cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}
