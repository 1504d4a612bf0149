package actor

import (
	"context"
	"errors"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// ErrActorTerminated is returned by Tell/Ask when the target actor's
// mailbox has already been closed.
var ErrActorTerminated = errors.New("actor: actor terminated")

// ErrRequestAlreadyAnswered reports a reply to a request that was already
// answered. Promise.Complete does not return it: a second Complete is
// silently dropped.
var ErrRequestAlreadyAnswered = errors.New("actor: request already answered")

// ErrMailboxFull reports a mailbox at capacity. Tell and Ask do not return
// it: they block until the mailbox has room, the caller's context ends, or
// the actor terminates.
var ErrMailboxFull = errors.New("actor: mailbox full")

// Message is the sealed marker every user message type implements, mirroring
// the teacher's BaseMessage idiom so third parties cannot accidentally pass
// an arbitrary value where a typed message is expected.
type Message interface {
	messageMarker()

	// MessageType returns the type name of the message, used only for
	// logging and diagnostics.
	MessageType() string
}

// BaseMessage is embedded by every concrete message type to satisfy Message.
type BaseMessage struct{}

func (BaseMessage) messageMarker() {}

// PriorityMessage is implemented by messages that should be delivered ahead
// of ordinary traffic already queued in the mailbox.
type PriorityMessage interface {
	Message
	HighPriority() bool
}

// Future is the read side of a Promise: the eventual result of a request.
type Future[R any] interface {
	// Await blocks until the result is available or ctx is done.
	Await(ctx context.Context) fn.Result[R]
}

// Promise is the write side of a Future, fulfilled at most once.
type Promise[R any] interface {
	Complete(result fn.Result[R])
}

// BaseActorRef is the type-erased subset of an actor reference: identity
// and the ability to participate in links/monitors, independent of the
// message type it accepts.
type BaseActorRef interface {
	ID() ID
	Address() Address
}

// TellOnlyRef accepts fire-and-forget messages of a single type without
// exposing Ask, matching the teacher's map_input_ref adapter shape.
type TellOnlyRef[M Message] interface {
	BaseActorRef
	Tell(ctx context.Context, msg M) error
}

// ActorRef is a full typed handle to an actor: Tell for fire-and-forget,
// Ask for request/response.
type ActorRef[M Message, R any] interface {
	TellOnlyRef[M]
	Ask(ctx context.Context, msg M) Future[R]
}

// ActorBehavior is supplied by callers to define what an actor does with
// each received message.
type ActorBehavior[M Message, R any] interface {
	Receive(ctx context.Context, msg M) fn.Result[R]
}

// Stoppable is implemented by behaviors that need a hook run once, as the
// actor's final act before its mailbox is torn down.
type Stoppable interface {
	OnStop(ctx context.Context, reason ExitReason)
}

// ActorConfig configures a typed Actor[M,R].
type ActorConfig[M Message, R any] struct {
	Behavior       ActorBehavior[M, R]
	DLO            TellOnlyRef[M]
	MailboxSize    int
	CleanupTimeout fn.Option[time.Duration]
	TrapExit       bool
}
