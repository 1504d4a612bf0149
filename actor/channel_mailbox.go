package actor

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"
)

// ChannelMailbox is a Mailbox implementation backed by a pair of Go
// channels: one for ordinary traffic and one for high-priority traffic
// (PriorityMessage payloads and internal system control messages). Receive
// always drains the priority channel first, matching CAF's urgent-queue
// precedence over the regular mailbox.
type ChannelMailbox[M Message, R any] struct {
	normal   chan MailboxElement[M, R]
	priority chan MailboxElement[M, R]

	closed atomic.Bool

	// mu protects send operations to prevent sending to a closed channel.
	mu sync.RWMutex

	closeOnce sync.Once

	// actorCtx is the context governing the actor's lifecycle. When this
	// context is cancelled, receive operations will terminate.
	actorCtx context.Context
}

// NewChannelMailbox creates a new channel-based mailbox with the given
// capacity and actor context. If capacity is 0 or negative, it defaults to
// 1 to ensure the mailbox is buffered. The priority channel is sized to
// match, since system control traffic (exit/down/get/put) is expected to be
// rare relative to ordinary messages.
func NewChannelMailbox[M Message, R any](
	actorCtx context.Context, capacity int,
) *ChannelMailbox[M, R] {
	if capacity <= 0 {
		capacity = 1
	}

	return &ChannelMailbox[M, R]{
		normal:   make(chan MailboxElement[M, R], capacity),
		priority: make(chan MailboxElement[M, R], capacity),
		actorCtx: actorCtx,
	}
}

// Send attempts to send an element to the mailbox, routing it to the
// priority queue when its MessageID marks it high-priority. It blocks until
// either the element is accepted, the caller's context is cancelled, or the
// actor's context is cancelled.
func (m *ChannelMailbox[M, R]) Send(
	ctx context.Context, elem MailboxElement[M, R],
) bool {
	if ctx.Err() != nil {
		return false
	}
	if m.actorCtx.Err() != nil {
		return false
	}

	// Hold the read lock for the entire send operation to prevent
	// send-on-closed-channel panics: Close() cannot acquire the write
	// lock, and therefore cannot close either channel, while any read
	// lock is outstanding.
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return false
	}

	ch := m.normal
	if elem.Mid.IsHighPriority() {
		ch = m.priority
	}

	select {
	case ch <- elem:
		log.TraceS(ctx, "Mailbox send succeeded",
			"high_priority", elem.Mid.IsHighPriority())
		return true

	case <-ctx.Done():
		log.TraceS(ctx, "Mailbox send failed, caller context cancelled")
		return false

	case <-m.actorCtx.Done():
		log.TraceS(ctx, "Mailbox send failed, actor context cancelled")
		return false
	}
}

// TrySend attempts to send an element to the mailbox without blocking.
func (m *ChannelMailbox[M, R]) TrySend(elem MailboxElement[M, R]) bool {
	if m.actorCtx.Err() != nil {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return false
	}

	ch := m.normal
	if elem.Mid.IsHighPriority() {
		ch = m.priority
	}

	select {
	case ch <- elem:
		return true
	default:
		return false
	}
}

// Receive returns an iterator over elements in the mailbox. Every pending
// priority element is yielded before any normal element becomes eligible
// again, matching CAF's urgent-queue-first dequeue order. The iterator
// stops when ctx is cancelled or as soon as it sees the mailbox closed;
// elements still queued at that point are left for Drain.
func (m *ChannelMailbox[M, R]) Receive(
	ctx context.Context,
) iter.Seq[MailboxElement[M, R]] {
	return func(yield func(MailboxElement[M, R]) bool) {
		for {
			if ctx.Err() != nil {
				return
			}

			// Non-blocking priority check first, so a steady trickle of
			// normal traffic never starves urgent control messages.
			select {
			case elem, ok := <-m.priority:
				if !ok {
					return
				}
				if !yield(elem) {
					return
				}
				continue
			default:
			}

			select {
			case elem, ok := <-m.priority:
				if !ok {
					return
				}
				if !yield(elem) {
					return
				}

			case elem, ok := <-m.normal:
				if !ok {
					return
				}
				if !yield(elem) {
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}
}

// Close closes the mailbox, preventing any further sends. Safe to call more
// than once; only the first call has any effect.
func (m *ChannelMailbox[M, R]) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		log.DebugS(m.actorCtx, "Mailbox closing",
			"remaining_normal", len(m.normal),
			"remaining_priority", len(m.priority))

		m.closed.Store(true)
		close(m.normal)
		close(m.priority)
	})
}

// IsClosed returns true if the mailbox has been closed.
func (m *ChannelMailbox[M, R]) IsClosed() bool {
	return m.closed.Load()
}

// Drain returns an iterator over any remaining elements, priority first.
// Only valid after Close(); otherwise it yields nothing.
func (m *ChannelMailbox[M, R]) Drain() iter.Seq[MailboxElement[M, R]] {
	return func(yield func(MailboxElement[M, R]) bool) {
		if !m.IsClosed() {
			return
		}

		drainOne := func(ch chan MailboxElement[M, R]) bool {
			for {
				select {
				case elem, ok := <-ch:
					if !ok {
						return true
					}
					if !yield(elem) {
						return false
					}
				default:
					return true
				}
			}
		}

		if !drainOne(m.priority) {
			return
		}
		drainOne(m.normal)
	}
}
