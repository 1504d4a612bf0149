package actor

import "context"

// Resumable is anything a Scheduler can run: a unit of work that processes
// one batch of queued messages and returns. Concrete actor types that want
// to run on a shared scheduler pool (rather than a dedicated goroutine,
// i.e. FlagDetached) implement this instead of driving their own process
// loop.
//
// This package only defines the contract a scheduler consumes; the
// implementation is scheduler.Pool.
type Resumable interface {
	AbstractActor

	// Resume runs on the calling ExecutionUnit's goroutine, processing
	// queued work until the mailbox is empty or unit.ShouldPreempt
	// reports true. It returns the number of messages processed.
	Resume(ctx context.Context, unit ExecutionUnit) int
}

// ExecutionUnit is the minimal surface a Scheduler's worker presents to the
// Resumable it is running, letting the actor cooperatively yield instead of
// running to completion on a single worker.
type ExecutionUnit interface {
	// ShouldPreempt reports whether the running Resumable should stop
	// processing and return control to the scheduler, e.g. because a
	// higher-priority unit is waiting.
	ShouldPreempt() bool

	// Enqueue hands a now-runnable Resumable back to the scheduler that
	// owns this execution unit, e.g. after a message arrives for an
	// actor that had drained its mailbox and been descheduled.
	Enqueue(r Resumable)
}

// Scheduler assigns Resumables to ExecutionUnits. It is a consumed
// interface: concrete actor and decorator types are written against it,
// but no implementation is provided here.
type Scheduler interface {
	// Submit schedules r to run, either immediately on an idle execution
	// unit or enqueued for the next one that becomes available.
	Submit(r Resumable)

	// Shutdown stops accepting new work and waits for in-flight Resume
	// calls to return, up to ctx's deadline.
	Shutdown(ctx context.Context) error
}
