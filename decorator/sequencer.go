package decorator

import (
	"context"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/latticeforge/actorcore/actor"
)

// Sequencer composes two actors so that sequencer(f, g)(x) behaves as
// f(g(x)): a message is sent to g first, and g's reply — itself a
// Message — is forwarded to f, whose reply is what the original caller
// observes. Grounded on decorator/sequencer.cpp, whose enqueue pushes f
// onto the mailbox element's forwarding stack and then forwards to g so
// that g's eventual response routes to f next. Stage-stack forwarding
// only exists in CAF because one mailbox element type must carry an
// arbitrary chain of untyped continuations; Go's static generics already
// make the two-step composition checkable at compile time, so Sequencer
// simply chains two Asks instead of replicating the stack.
type Sequencer[M actor.Message, Mid actor.Message, R any] struct {
	g actor.ActorRef[M, Mid]
	f actor.ActorRef[Mid, R]
}

// NewSequencer composes g then f: a Tell/Ask of M is sent to g, and g's
// response (of type Mid, itself a Message) is forwarded to f.
func NewSequencer[M actor.Message, Mid actor.Message, R any](
	g actor.ActorRef[M, Mid], f actor.ActorRef[Mid, R],
) *Sequencer[M, Mid, R] {
	return &Sequencer[M, Mid, R]{g: g, f: f}
}

// ID returns g's id — the composed actor is hosted on g's identity, since
// g is the first stage any caller's message reaches, matching CAF's
// "composed actor lives on g's system" placement.
func (s *Sequencer[M, Mid, R]) ID() actor.ID { return s.g.ID() }

// Address returns g's address.
func (s *Sequencer[M, Mid, R]) Address() actor.Address { return s.g.Address() }

// Tell sends msg to g and discards g's reply once it arrives, forwarding
// nothing further to f since a Tell expects no response.
func (s *Sequencer[M, Mid, R]) Tell(ctx context.Context, msg M) error {
	return s.g.Tell(ctx, msg)
}

// Ask sends msg to g, forwards g's reply to f once it resolves, and
// completes with f's reply. If g's Ask fails or is cancelled, the chain
// short-circuits and f is never invoked.
func (s *Sequencer[M, Mid, R]) Ask(ctx context.Context, msg M) actor.Future[R] {
	prom, fut := actor.NewPromise[R]()

	go func() {
		gRes := s.g.Ask(ctx, msg).Await(ctx)
		mid, err := gRes.Unpack()
		if err != nil {
			prom.Complete(fn.Err[R](err))
			return
		}

		fRes := s.f.Ask(ctx, mid).Await(ctx)
		prom.Complete(fRes)
	}()

	return fut
}

var _ actor.ActorRef[actor.Message, any] = (*Sequencer[actor.Message, actor.Message, any])(nil)
