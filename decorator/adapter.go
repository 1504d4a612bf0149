// Package decorator implements the three actor decorators CAF composes
// from existing actors without spawning new behavior: the adapter
// (message-shape translation), the sequencer (f after g composition), and
// the splitter (fan-out/fan-in across a worker set).
//
// Grounded on libcaf_core/caf/decorator/{adapter,sequencer,splitter}.hpp
// and, for the adapter, the teacher's map_input_ref.go, which already
// implements the same "wrap a TellOnlyRef behind a translating function"
// idiom this module generalizes to support Ask as well as Tell.
package decorator

import (
	"context"

	"github.com/latticeforge/actorcore/actor"
)

// Adapter composes a target ActorRef[Out,R] behind a function translating
// In into Out, so callers see an ActorRef[In,R] without the target ever
// knowing its caller speaks a different message type. Grounded on
// map_input_ref.go's MapInputRef, extended to cover Ask.
type Adapter[In actor.Message, Out actor.Message, R any] struct {
	target actor.ActorRef[Out, R]
	mapFn  func(In) Out
}

// NewAdapter constructs an Adapter forwarding translated messages to
// target.
func NewAdapter[In actor.Message, Out actor.Message, R any](
	target actor.ActorRef[Out, R], mapFn func(In) Out,
) *Adapter[In, Out, R] {
	return &Adapter[In, Out, R]{target: target, mapFn: mapFn}
}

// ID returns the underlying target's id, since an adapter is not itself a
// separately addressable actor — it is a composed view over target,
// matching CAF's "composed actor hosted on the same node as g" framing.
func (a *Adapter[In, Out, R]) ID() actor.ID { return a.target.ID() }

// Address returns the underlying target's address.
func (a *Adapter[In, Out, R]) Address() actor.Address { return a.target.Address() }

// Tell translates msg and forwards it to the target.
func (a *Adapter[In, Out, R]) Tell(ctx context.Context, msg In) error {
	return a.target.Tell(ctx, a.mapFn(msg))
}

// Ask translates msg, forwards it to the target, and returns the target's
// Future unmodified.
func (a *Adapter[In, Out, R]) Ask(ctx context.Context, msg In) actor.Future[R] {
	return a.target.Ask(ctx, a.mapFn(msg))
}

var _ actor.ActorRef[actor.Message, any] = (*Adapter[actor.Message, actor.Message, any])(nil)
