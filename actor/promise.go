package actor

import (
	"context"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// promise is the shared state behind a Future/Promise pair: a single
// fn.Result[R] written at most once and broadcast to whoever is awaiting
// it, in the teacher's style of pairing a done channel with a guarded
// value rather than reaching for a third-party futures library.
type promise[R any] struct {
	mu       sync.Mutex
	done     chan struct{}
	once     sync.Once
	result   fn.Result[R]
	answered bool
}

// NewPromise constructs a fresh, unfulfilled Promise/Future pair.
func NewPromise[R any]() (Promise[R], Future[R]) {
	p := &promise[R]{done: make(chan struct{})}
	return p, p
}

// Complete fulfills the promise. Only the first call has any effect; later
// calls are silently dropped, mirroring MessageID's answered-once contract.
func (p *promise[R]) Complete(result fn.Result[R]) {
	p.once.Do(func() {
		p.mu.Lock()
		p.result = result
		p.answered = true
		p.mu.Unlock()
		close(p.done)
	})
}

// Await blocks until Complete has been called or ctx is done, whichever
// comes first. A context cancellation is reported as fn.Err, never as a
// panic or a zero value silently mistaken for a real result.
func (p *promise[R]) Await(ctx context.Context) fn.Result[R] {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.result
	case <-ctx.Done():
		return fn.Err[R](ctx.Err())
	}
}
