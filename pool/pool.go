// Package pool implements the actor-pool decorator: a single addressable
// actor that fans a typed message out to a set of worker refs according to
// a pluggable dispatch policy, monitoring each worker so a crashed worker
// is automatically evicted from rotation.
//
// Grounded on actor_pool.cpp. CAF's filter() exists because every control
// operation (exit, a worker's down message, add/remove/list workers)
// travels through the same type-erased mailbox as ordinary traffic; Go's
// generics give ActorPool[M,R] a statically typed Tell/Ask path, so worker
// administration becomes ordinary guarded methods instead of message
// pattern-matching, while a worker's down handling remains an explicit
// background select loop over the Base's DownSignals channel (same event
// source, idiomatic Go shape). The pool does not read its ExitSignals.
package pool

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/latticeforge/actorcore/actor"
	"github.com/latticeforge/actorcore/nodeid"
	"github.com/latticeforge/actorcore/spinlock"
)

// ErrNoWorkers is returned by Ask when the pool currently has no workers,
// mirroring CAF's "respond with an empty message" fallback for sync
// requests sent to an empty pool.
var ErrNoWorkers = errors.New("pool: no workers available")

// Policy selects which of the pool's current workers should receive a
// given Tell/Ask. It must not retain workers beyond the call.
type Policy[M actor.Message, R any] func(workers []actor.ActorRef[M, R]) []actor.ActorRef[M, R]

// RoundRobin cycles through workers one at a time. Each call to RoundRobin
// returns an independent policy closure with its own cursor — mirroring
// CAF's round_robin, whose copy constructor resets pos_ to 0 rather than
// copying the counter, so cloning a policy never inherits rotation state.
func RoundRobin[M actor.Message, R any]() Policy[M, R] {
	var pos uint64
	return func(workers []actor.ActorRef[M, R]) []actor.ActorRef[M, R] {
		if len(workers) == 0 {
			return nil
		}
		idx := pos % uint64(len(workers))
		pos++
		return workers[idx : idx+1]
	}
}

// Broadcast sends the message to every current worker.
func Broadcast[M actor.Message, R any]() Policy[M, R] {
	return func(workers []actor.ActorRef[M, R]) []actor.ActorRef[M, R] {
		return workers
	}
}

// Random selects one worker uniformly at random.
func Random[M actor.Message, R any]() Policy[M, R] {
	return func(workers []actor.ActorRef[M, R]) []actor.ActorRef[M, R] {
		if len(workers) == 0 {
			return nil
		}
		idx := rand.IntN(len(workers)) //nolint:gosec // dispatch, not security
		return workers[idx : idx+1]
	}
}

// worker pairs a typed ref with the strong handle used to monitor and
// later detach it.
type worker[M actor.Message, R any] struct {
	ref    actor.ActorRef[M, R]
	handle actor.StrongHandle
}

// ActorPool is a single logical actor that fans messages out to a
// dynamically managed set of workers.
type ActorPool[M actor.Message, R any] struct {
	*actor.Base

	mu      spinlock.SharedSpinlock
	workers []worker[M, R]
	policy  Policy[M, R]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs an empty pool bound to id/node, using policy to choose
// among whatever workers are added via PutWorker. Workers are monitored:
// when one exits, it is automatically removed, and the pool terminates
// with ExitOutOfWorkers once the last worker is removed this way.
func New[M actor.Message, R any](
	id actor.ID, node nodeid.ID, policy Policy[M, R],
) (*ActorPool[M, R], actor.StrongHandle) {
	ctx, cancel := context.WithCancel(context.Background())

	p := &ActorPool[M, R]{
		policy: policy,
		ctx:    ctx,
		cancel: cancel,
	}

	base, handle := actor.NewBase(id, node, p)
	p.Base = base
	p.Base.SetOnCleanup(func(actor.ExitReason) {
		p.cancel()
	})

	p.wg.Add(1)
	go p.watchWorkers()

	return p, handle
}

// watchWorkers evicts a worker as soon as its DownMessage arrives, and
// terminates the pool with ExitOutOfWorkers once no workers remain.
func (p *ActorPool[M, R]) watchWorkers() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return

		case down := <-p.Base.DownSignals():
			p.mu.Lock()
			kept := p.workers[:0]
			for _, w := range p.workers {
				if w.handle.Address().Equal(down.Source) {
					continue
				}
				kept = append(kept, w)
			}
			p.workers = kept
			empty := len(p.workers) == 0
			p.mu.Unlock()

			log.DebugS(p.ctx, "Pool worker down",
				"pool_id", p.ID(), "empty", empty)

			if empty {
				p.Base.Cleanup(actor.ExitOutOfWorkers)
				return
			}
		}
	}
}

// PutWorker adds ref to the pool's rotation, monitoring it so a future
// crash automatically evicts it.
func (p *ActorPool[M, R]) PutWorker(ref actor.ActorRef[M, R], handle actor.StrongHandle) {
	if body, ok := handle.Body(); ok {
		p.Base.Monitor(body)
	}

	p.mu.Lock()
	p.workers = append(p.workers, worker[M, R]{ref: ref, handle: handle})
	p.mu.Unlock()
}

// DeleteWorker removes a single worker matching addr, if present.
func (p *ActorPool[M, R]) DeleteWorker(addr actor.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, w := range p.workers {
		if w.handle.Address().Equal(addr) {
			if body, ok := w.handle.Body(); ok {
				p.Base.Demonitor(body)
			}
			p.workers = append(p.workers[:i], p.workers[i+1:]...)
			return
		}
	}
}

// DeleteAllWorkers removes and demonitors every current worker.
func (p *ActorPool[M, R]) DeleteAllWorkers() {
	p.mu.Lock()
	workers := p.workers
	p.workers = nil
	p.mu.Unlock()

	for _, w := range workers {
		if body, ok := w.handle.Body(); ok {
			p.Base.Demonitor(body)
		}
	}
}

// Workers returns a snapshot of the pool's current worker refs.
func (p *ActorPool[M, R]) Workers() []actor.ActorRef[M, R] {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]actor.ActorRef[M, R], len(p.workers))
	for i, w := range p.workers {
		out[i] = w.ref
	}
	return out
}

// Tell fans msg out to the workers the policy selects.
func (p *ActorPool[M, R]) Tell(ctx context.Context, msg M) error {
	selected := p.selectWorkers()
	if len(selected) == 0 {
		return ErrNoWorkers
	}
	var firstErr error
	for _, w := range selected {
		if err := w.Tell(ctx, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Ask forwards msg to the policy's selection and returns the first
// worker's Future. If the policy selects more than one worker (e.g.
// Broadcast), only the first response is awaited; the rest are still
// delivered but their replies are not observed.
func (p *ActorPool[M, R]) Ask(ctx context.Context, msg M) actor.Future[R] {
	selected := p.selectWorkers()
	if len(selected) == 0 {
		prom, fut := actor.NewPromise[R]()
		prom.Complete(fn.Err[R](ErrNoWorkers))
		return fut
	}

	for _, w := range selected[1:] {
		w.Tell(ctx, msg) //nolint:errcheck
	}
	return selected[0].Ask(ctx, msg)
}

func (p *ActorPool[M, R]) selectWorkers() []actor.ActorRef[M, R] {
	p.mu.RLock()
	refs := make([]actor.ActorRef[M, R], len(p.workers))
	for i, w := range p.workers {
		refs[i] = w.ref
	}
	p.mu.RUnlock()

	if len(refs) == 0 {
		return nil
	}
	return p.policy(refs)
}

// Stop requests pool termination; workers are not themselves stopped,
// mirroring CAF's pool quit sequence, which only tears down the pool
// actor's own bookkeeping.
func (p *ActorPool[M, R]) Stop() {
	p.Base.Cleanup(actor.ExitNormal)
}

// Wait blocks until the pool's background worker-watch goroutine exits.
func (p *ActorPool[M, R]) Wait() {
	p.wg.Wait()
}
