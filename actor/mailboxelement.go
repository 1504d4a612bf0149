package actor

import "context"

// MailboxElement is the envelope every message travels in once it has been
// enqueued: the raw payload plus the bookkeeping needed to route a reply.
type MailboxElement[M Message, R any] struct {
	Sender  BaseActorRef
	Mid     MessageID
	Payload M

	promise   Promise[R]
	callerCtx context.Context
}

// IsRequest reports whether this element expects a reply.
func (e MailboxElement[M, R]) IsRequest() bool { return e.Mid.IsRequest() }
