// Package scheduler provides the one concrete Scheduler this repository
// ships: a bounded-concurrency worker pool built on errgroup.Group, the
// ecosystem's idiomatic fixed-size-worker-pool-with-error-propagation
// primitive (grounded on the pack's own errgroup-based fan-out/fan-in
// code, e.g. peer_enricher.go's ResolvePeers). actor.Scheduler itself is a
// consumed interface — this package is a default, replaceable
// implementation of it, not the only one a caller could write.
package scheduler

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/latticeforge/actorcore/actor"
)

// Pool runs up to size Resumables concurrently. Submit blocks once size
// slots are already occupied, exactly like errgroup.Group.SetLimit's own
// backpressure — a full pool makes the caller wait rather than queueing
// unboundedly.
type Pool struct {
	mu     sync.Mutex
	g      *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
}

// NewPool constructs a scheduler bounded to size concurrent Resumables. A
// non-positive size is treated as 1.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(size)

	return &Pool{g: g, ctx: gctx, cancel: cancel}
}

// Submit schedules r to run on the next free worker, driving Resume
// repeatedly until it reports no more work was processed or the pool is
// shutting down.
func (p *Pool) Submit(r actor.Resumable) {
	unit := &executionUnit{pool: p}
	p.g.Go(func() error {
		for {
			if p.ctx.Err() != nil {
				return p.ctx.Err()
			}
			if processed := r.Resume(p.ctx, unit); processed == 0 {
				return nil
			}
		}
	})
}

// Shutdown stops accepting new work's effects (in-flight Resume calls are
// preempted via ShouldPreempt) and waits for every running worker to
// return, up to ctx's deadline.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.cancel()
	p.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- p.g.Wait() }()

	select {
	case err := <-done:
		if err == context.Canceled {
			return nil
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// executionUnit is the ExecutionUnit a Pool presents to each Resumable it
// runs.
type executionUnit struct {
	pool *Pool
}

func (u *executionUnit) ShouldPreempt() bool { return u.pool.ctx.Err() != nil }

// Enqueue resubmits r to the same pool, e.g. once a drained actor has a new
// message waiting.
func (u *executionUnit) Enqueue(r actor.Resumable) { u.pool.Submit(r) }

var _ actor.Scheduler = (*Pool)(nil)
var _ actor.ExecutionUnit = (*executionUnit)(nil)
