package request

import "github.com/kailas-cloud/compsearch/internal/domain/search/result"

// Call is a request posted to the index worker. Seq correlates the reply with the
// dispatch that produced it; Reply is invoked exactly once by the worker.
type Call struct {
	Seq     uint64
	Request Request
	Reply   func(result.Reply)
}
