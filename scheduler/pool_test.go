package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/actorcore/actor"
	"github.com/latticeforge/actorcore/nodeid"
	"github.com/latticeforge/actorcore/scheduler"
)

// countingResumable reports exactly one unit of work processed the first
// time Resume is called, then none, so a pool worker returns promptly.
type countingResumable struct {
	*actor.Base
	resumed atomic.Int64
	done    chan struct{}
}

func newCountingResumable(t *testing.T, id actor.ID) *countingResumable {
	t.Helper()
	r := &countingResumable{done: make(chan struct{})}
	base, _ := actor.NewBase(id, nodeid.New(), r)
	r.Base = base
	return r
}

func (r *countingResumable) Resume(_ context.Context, _ actor.ExecutionUnit) int {
	if r.resumed.Add(1) == 1 {
		close(r.done)
		return 1
	}
	return 0
}

func TestPoolRunsSubmittedResumable(t *testing.T) {
	p := scheduler.NewPool(2)

	r := newCountingResumable(t, 1)
	p.Submit(r)

	select {
	case <-r.done:
	case <-time.After(time.Second):
		t.Fatal("resumable was never run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
}

func TestPoolBoundsConcurrency(t *testing.T) {
	const limit = 2
	p := scheduler.NewPool(limit)

	var running atomic.Int32
	var maxObserved atomic.Int32
	release := make(chan struct{})

	blocker := func(id actor.ID) *blockingResumable {
		r := &blockingResumable{release: release}
		base, _ := actor.NewBase(id, nodeid.New(), r)
		r.Base = base
		return r
	}

	for i := 0; i < 5; i++ {
		r := blocker(actor.ID(i + 1))
		r.onStart = func() {
			n := running.Add(1)
			for {
				cur := maxObserved.Load()
				if n <= cur || maxObserved.CompareAndSwap(cur, n) {
					break
				}
			}
		}
		r.onDone = func() { running.Add(-1) }
		// Submit blocks the calling goroutine once the pool is at its
		// limit, so each call runs on its own goroutine: this test cares
		// about how many Resumables run concurrently, not about Submit's
		// own backpressure.
		go p.Submit(r)
	}

	time.Sleep(50 * time.Millisecond)
	require.LessOrEqual(t, int(maxObserved.Load()), limit)

	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Shutdown(ctx))
}

// blockingResumable blocks on release until closed, then reports no further
// work, letting a test observe how many run concurrently under a bound.
type blockingResumable struct {
	*actor.Base
	release chan struct{}
	onStart func()
	onDone  func()
	ran     atomic.Bool
}

func (r *blockingResumable) Resume(ctx context.Context, _ actor.ExecutionUnit) int {
	if !r.ran.CompareAndSwap(false, true) {
		return 0
	}
	if r.onStart != nil {
		r.onStart()
	}
	defer func() {
		if r.onDone != nil {
			r.onDone()
		}
	}()

	select {
	case <-r.release:
	case <-ctx.Done():
	}
	return 1
}
