package actor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/latticeforge/actorcore/nodeid"
)

// mergeContexts creates a context that cancels when either parent context
// cancels, so an Ask-style request respects both the actor's own lifecycle
// and the caller's deadline. The merged context carries the earlier of the
// two deadlines. A background goroutine watches both parents and cancels
// the merged context as soon as either fires; it exits as soon as that
// happens, so no goroutine outlives a single request.
func mergeContexts(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	deadline1, hasDeadline1 := ctx1.Deadline()
	deadline2, hasDeadline2 := ctx2.Deadline()

	baseCtx := ctx1
	if hasDeadline2 && (!hasDeadline1 || deadline2.Before(deadline1)) {
		baseCtx = ctx2
	}

	mergedCtx, cancel := context.WithCancel(baseCtx)

	go func() {
		select {
		case <-ctx1.Done():
			cancel()
		case <-ctx2.Done():
			cancel()
		case <-mergedCtx.Done():
		}
	}()

	return mergedCtx, cancel
}

// Actor is a concrete, typed actor: a behavior driven by messages arriving
// on its mailbox, processed one at a time on a dedicated goroutine. It
// embeds Base so it participates in the type-erased identity/link/monitor
// machinery shared with pools, decorators, and group brokers.
type Actor[M Message, R any] struct {
	*Base

	behavior ActorBehavior[M, R]
	mailbox  *ChannelMailbox[M, R]

	ctx    context.Context
	cancel context.CancelFunc

	dlo TellOnlyRef[M]

	wg *sync.WaitGroup

	cleanupTimeout time.Duration

	startOnce sync.Once
	stopOnce  sync.Once

	ref ActorRef[M, R]
}

// NewActor allocates a new actor bound to id/node, wiring its Base cleanup
// hook to cancel its own context so Cleanup() and Stop() converge on the
// same shutdown path regardless of which one is triggered first (an
// external Kill versus the actor's own context.Context being cancelled by
// its owner).
func NewActor[M Message, R any](
	id ID, node nodeid.ID, cfg ActorConfig[M, R], wg *sync.WaitGroup,
) (*Actor[M, R], StrongHandle) {
	ctx, cancel := context.WithCancel(context.Background())

	mailboxCapacity := cfg.MailboxSize
	if mailboxCapacity <= 0 {
		mailboxCapacity = 1
	}

	a := &Actor[M, R]{
		behavior:       cfg.Behavior,
		mailbox:        NewChannelMailbox[M, R](ctx, mailboxCapacity),
		ctx:            ctx,
		cancel:         cancel,
		dlo:            cfg.DLO,
		wg:             wg,
		cleanupTimeout: cfg.CleanupTimeout.UnwrapOr(5 * time.Second),
	}

	base, handle := NewBase(id, node, a)
	a.Base = base
	a.SetTrapExit(cfg.TrapExit)
	a.Base.SetOnCleanup(func(ExitReason) {
		a.cancel()
	})

	a.ref = &actorRefImpl[M, R]{actor: a}

	return a, handle
}

// Start launches the actor's message processing loop. Safe to call more
// than once; only the first call has effect.
func (a *Actor[M, R]) Start() {
	a.startOnce.Do(func() {
		log.DebugS(a.ctx, "Starting actor", "actor_id", a.ID())

		if a.wg != nil {
			a.wg.Add(1)
		}
		go a.process()

		// Without trap-exit, the first ExitMessage a link delivers ends
		// this actor with the same reason; with it, ExitMessages stay on
		// ExitSignals for the owner to read. The flag is read here, once.
		if !a.Flags().Has(FlagTrapExit) {
			go func() {
				select {
				case m := <-a.ExitSignals():
					a.Kill(m.Reason)
				case <-a.ctx.Done():
				}
			}()
		}
	})
}

// process is the actor's main loop: receive, dispatch to behavior,
// complete any pending promise, repeat until the actor's context is
// cancelled, then drain the mailbox to the DLO and run Cleanup.
func (a *Actor[M, R]) process() {
	if a.wg != nil {
		defer a.wg.Done()
	}

	for elem := range a.mailbox.Receive(a.ctx) {
		var processCtx context.Context
		var cancel context.CancelFunc
		if elem.IsRequest() {
			processCtx, cancel = mergeContexts(a.ctx, elem.callerCtx)
		} else {
			processCtx, cancel = a.ctx, func() {}
		}

		log.TraceS(processCtx, "Actor processing message",
			"actor_id", a.ID(),
			"msg_type", elem.Payload.MessageType(),
			"is_ask", elem.IsRequest())

		result := a.invokeBehavior(processCtx, elem.Payload)

		cancel()

		if elem.promise != nil {
			elem.promise.Complete(result)
		}
	}

	a.mailbox.Close()

	drained := 0
	for elem := range a.mailbox.Drain() {
		drained++

		log.TraceS(a.ctx, "Draining message from terminated actor",
			"actor_id", a.ID(),
			"msg_type", elem.Payload.MessageType())

		if a.dlo != nil {
			a.dlo.Tell(context.Background(), elem.Payload) //nolint:errcheck
		}
		if elem.promise != nil {
			elem.promise.Complete(fn.Err[R](ErrActorTerminated))
		}
	}

	if stoppable, ok := a.behavior.(Stoppable); ok {
		cleanupCtx, cancel := context.WithTimeout(
			context.Background(), a.cleanupTimeout,
		)
		stoppable.OnStop(cleanupCtx, a.ExitReason())
		cancel()
	}

	a.Base.Cleanup(a.ExitReason())

	log.DebugS(a.ctx, "Actor terminated",
		"actor_id", a.ID(), "drained_messages", drained)
}

// invokeBehavior runs the behavior, recovering from a panic and converting
// it into a user-defined exit reason so a single misbehaving actor cannot
// crash the process it shares a goroutine pool with.
func (a *Actor[M, R]) invokeBehavior(
	ctx context.Context, msg M,
) (result fn.Result[R]) {
	defer func() {
		if r := recover(); r != nil {
			reason := UserDefinedExit(fmt.Sprintf("panic: %v", r))
			a.Base.mu.Lock()
			a.Base.exitReason = reason
			a.Base.mu.Unlock()
			result = fn.Err[R](fmt.Errorf("actor panic: %v", r))
			a.cancel()
		}
	}()

	return a.behavior.Receive(ctx, msg)
}

// Stop requests termination by cancelling the actor's context. Safe to call
// more than once.
func (a *Actor[M, R]) Stop() {
	a.stopOnce.Do(func() {
		a.cancel()
	})
}

// Kill immediately tears down the actor with the given exit reason,
// bypassing the normal "drain then stop" request — used by the registry
// and supervisors for forced termination.
func (a *Actor[M, R]) Kill(reason ExitReason) {
	a.Base.mu.Lock()
	a.Base.exitReason = reason
	a.Base.mu.Unlock()
	a.cancel()
}

// Ref returns a full typed handle for sending messages to this actor.
func (a *Actor[M, R]) Ref() ActorRef[M, R] { return a.ref }

// TellRef returns a fire-and-forget-only handle for this actor.
func (a *Actor[M, R]) TellRef() TellOnlyRef[M] { return a.ref }

// actorRefImpl is the concrete ActorRef backing an Actor[M,R].
type actorRefImpl[M Message, R any] struct {
	actor *Actor[M, R]
}

func (ref *actorRefImpl[M, R]) ID() ID             { return ref.actor.ID() }
func (ref *actorRefImpl[M, R]) Address() Address   { return ref.actor.Address() }

func highPriorityOf(msg Message) bool {
	pm, ok := msg.(PriorityMessage)
	return ok && pm.HighPriority()
}

// Tell sends a fire-and-forget message. If delivery fails because the
// actor has terminated (rather than because the caller's own context was
// cancelled), the message is routed to the configured DLO instead of being
// silently dropped.
func (ref *actorRefImpl[M, R]) Tell(ctx context.Context, msg M) error {
	log.TraceS(ctx, "Sending Tell message",
		"actor_id", ref.actor.ID(), "msg_type", msg.MessageType())

	elem := MailboxElement[M, R]{
		Mid:       NewMessageID(false, highPriorityOf(msg)),
		Payload:   msg,
		callerCtx: ctx,
	}
	if ref.actor.mailbox.Send(ctx, elem) {
		return nil
	}

	if ctx.Err() == nil || ref.actor.ctx.Err() != nil {
		log.DebugS(ctx, "Tell failed, routing to DLO",
			"actor_id", ref.actor.ID(), "msg_type", msg.MessageType())
		ref.trySendToDLO(msg)
		return ErrActorTerminated
	}

	log.TraceS(ctx, "Tell failed, caller cancelled",
		"actor_id", ref.actor.ID(), "msg_type", msg.MessageType())
	return ctx.Err()
}

// Ask sends a request and returns a Future completed with the behavior's
// response, or an error if the send could not be delivered at all.
func (ref *actorRefImpl[M, R]) Ask(ctx context.Context, msg M) Future[R] {
	log.TraceS(ctx, "Sending Ask message",
		"actor_id", ref.actor.ID(), "msg_type", msg.MessageType())

	prom, fut := NewPromise[R]()

	if ref.actor.ctx.Err() != nil {
		log.DebugS(ctx, "Ask failed, actor already terminated",
			"actor_id", ref.actor.ID(), "msg_type", msg.MessageType())
		prom.Complete(fn.Err[R](ErrActorTerminated))
		return fut
	}

	elem := MailboxElement[M, R]{
		Mid:       NewMessageID(true, highPriorityOf(msg)),
		Payload:   msg,
		promise:   prom,
		callerCtx: ctx,
	}

	if !ref.actor.mailbox.Send(ctx, elem) {
		if ref.actor.ctx.Err() != nil {
			prom.Complete(fn.Err[R](ErrActorTerminated))
		} else {
			err := ctx.Err()
			if err == nil {
				err = ErrActorTerminated
			}
			prom.Complete(fn.Err[R](err))
		}
	}

	return fut
}

func (ref *actorRefImpl[M, R]) trySendToDLO(msg M) {
	if ref.actor.dlo != nil {
		ref.actor.dlo.Tell(context.Background(), msg) //nolint:errcheck
	}
}
