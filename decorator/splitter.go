package decorator

import (
	"context"

	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/sync/errgroup"

	"github.com/latticeforge/actorcore/actor"
)

// Splitter fans a single message out to a fixed set of constituent
// actors and fans their replies back in as a single response. Grounded
// on caf/decorator/splitter.hpp: the composed actor is hidden behind the
// Splitter value, exits once any constituent exits, and the constituents
// carry no dependency back on the splitter — here that means Splitter
// itself holds no Base and registers no links; it is a pure
// fan-out/fan-in view over refs the caller already owns.
type Splitter[M actor.Message, R any] struct {
	workers []actor.ActorRef[M, R]
}

// NewSplitter composes workers into a single fan-out/fan-in view. An
// empty Splitter is allowed: Tell sends nothing and Ask completes with an
// empty slice.
func NewSplitter[M actor.Message, R any](workers ...actor.ActorRef[M, R]) *Splitter[M, R] {
	cp := make([]actor.ActorRef[M, R], len(workers))
	copy(cp, workers)
	return &Splitter[M, R]{workers: cp}
}

// ID returns the first constituent's id, matching CAF's "hosted on the
// same node as g" placement for the composed actor (g being the first
// operand in the forwarding chain).
func (s *Splitter[M, R]) ID() actor.ID {
	if len(s.workers) == 0 {
		return 0
	}
	return s.workers[0].ID()
}

// Address returns the first constituent's address.
func (s *Splitter[M, R]) Address() actor.Address {
	if len(s.workers) == 0 {
		return actor.Address{}
	}
	return s.workers[0].Address()
}

// Tell broadcasts msg to every constituent, returning the first error
// encountered, if any.
func (s *Splitter[M, R]) Tell(ctx context.Context, msg M) error {
	var firstErr error
	for _, w := range s.workers {
		if err := w.Tell(ctx, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Ask broadcasts msg to every constituent and fans their replies back in
// as a single ordered slice, one entry per worker in construction order.
// A reply that never answers — CAF's "unexpected_response" carve-out,
// where the splitter simply doesn't hear back from a constituent it
// already wrote off — surfaces here as that Ask's own context
// cancellation or error, which short-circuits the whole fan-in: the
// splitter is a single logical request, so a silent constituent makes
// the aggregate request fail rather than return a partial slice.
func (s *Splitter[M, R]) Ask(ctx context.Context, msg M) actor.Future[[]R] {
	prom, fut := actor.NewPromise[[]R]()

	go func() {
		if len(s.workers) == 0 {
			prom.Complete(fn.Ok([]R{}))
			return
		}

		results := make([]R, len(s.workers))
		group, gctx := errgroup.WithContext(ctx)
		for i, w := range s.workers {
			i, w := i, w
			group.Go(func() error {
				res := w.Ask(gctx, msg).Await(gctx)
				val, err := res.Unpack()
				if err != nil {
					return err
				}
				results[i] = val
				return nil
			})
		}

		if err := group.Wait(); err != nil {
			prom.Complete(fn.Err[[]R](err))
			return
		}
		prom.Complete(fn.Ok(results))
	}()

	return fut
}

var _ actor.TellOnlyRef[actor.Message] = (*Splitter[actor.Message, any])(nil)
