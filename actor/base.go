package actor

import (
	"sync"

	"github.com/latticeforge/actorcore/nodeid"
	"github.com/latticeforge/actorcore/spinlock"
)

// Base is the non-generic identity/lifecycle substrate every concrete actor
// type in this module embeds: typed Actor[M,R], pool, sequencer, splitter,
// adapter, and group broker alike. It owns the control block, the
// attachables list (links/monitors), exit bookkeeping, and the flags
// bitset. It deliberately carries no knowledge of message types, mirroring
// CAF's monitorable_actor sitting below the templated actor handle layer.
//
// Base is safe for concurrent use.
type Base struct {
	cb   *controlBlock
	addr Address

	// guards flags, exitReason, attachables, and the cleaned-up bit
	// together so Cleanup() observes a consistent snapshot.
	mu spinlock.SharedSpinlock

	flags       ActorFlags
	exitReason  ExitReason
	cleanedUp   bool
	attachables []attachEntry

	onCleanup []func(reason ExitReason)

	// downCh/exitCh are the default delivery sinks for monitors and links:
	// a non-blocking send, with a bounded buffer, so a slow or absent
	// consumer cannot stall the terminating actor's Cleanup call. Concrete
	// actor types that want in-band delivery select on these alongside
	// their own mailbox.
	downCh chan DownMessage
	exitCh chan ExitMessage
}

// signalBacklog bounds the default down/exit channel buffers. Consumers
// that fall behind by more than this many signals silently lose the newest
// notifications (the send is skipped; signals already buffered stay); this
// mirrors the "attachables are best-effort once terminated"
// character of the rest of the cleanup sequence.
const signalBacklog = 32

// NewBase allocates a Base bound to a freshly minted control block. self is
// the concrete actor value (the owner embedding this Base) that the control
// block's body pointer resolves to; it must not be nil and the owner must
// not publish its own address to other actors until after NewBase returns.
func NewBase(id ID, node nodeid.ID, self AbstractActor) (*Base, StrongHandle) {
	cb := newControlBlock(id, node, self)
	b := &Base{
		cb:     cb,
		addr:   Address{cb: cb},
		downCh: make(chan DownMessage, signalBacklog),
		exitCh: make(chan ExitMessage, signalBacklog),
	}
	return b, newStrongHandle(cb)
}

// DownSignals returns the channel monitors of this actor's peers are
// notified on. Read-only: only Base itself ever sends to it.
func (b *Base) DownSignals() <-chan DownMessage { return b.downCh }

// ExitSignals returns the channel this actor's links deliver ExitMessages
// on.
func (b *Base) ExitSignals() <-chan ExitMessage { return b.exitCh }

// pushDown is the default DownMessage sink used by monitorAttachable; it is
// promoted (unexported, package-qualified) so peers in any package can
// reach it through a narrow interface assertion, the same idiom
// detachMatching uses.
func (b *Base) pushDown(m DownMessage) {
	select {
	case b.downCh <- m:
	default:
	}
}

// pushExit is the default ExitMessage sink used by linkAttachable.
func (b *Base) pushExit(m ExitMessage) {
	select {
	case b.exitCh <- m:
	default:
	}
}

// SetOnCleanup registers a callback invoked when Cleanup succeeds, in
// registration order, alongside any callback already registered. The
// owning concrete actor type registers its own hook first (e.g. to
// cancel its context); callers that layer additional bookkeeping on top
// (a registry entry, a group membership) append rather than replace it.
func (b *Base) SetOnCleanup(fn func(reason ExitReason)) {
	b.mu.Lock()
	b.onCleanup = append(b.onCleanup, fn)
	b.mu.Unlock()
}

// ID returns this actor's id.
func (b *Base) ID() ID { return b.cb.id }

// Node returns this actor's home node id.
func (b *Base) Node() nodeid.ID { return b.cb.node }

// Address returns this actor's weak address.
func (b *Base) Address() Address { return b.addr }

// Flags returns a snapshot of the current flag bitset.
func (b *Base) Flags() ActorFlags {
	b.mu.RLock()
	f := b.flags
	b.mu.RUnlock()
	return f
}

// SetFlags ORs the given bits into the flag bitset.
func (b *Base) SetFlags(bits ActorFlags) {
	b.mu.Lock()
	b.flags |= bits
	b.mu.Unlock()
}

// ClearFlags ANDs the complement of the given bits out of the flag bitset.
func (b *Base) ClearFlags(bits ActorFlags) {
	b.mu.Lock()
	b.flags &^= bits
	b.mu.Unlock()
}

// SetTrapExit toggles whether incoming exit notifications from links are
// delivered as ordinary messages instead of cascading this actor's own
// termination. Actor reads the flag once, when Start runs.
func (b *Base) SetTrapExit(trap bool) {
	if trap {
		b.SetFlags(FlagTrapExit)
	} else {
		b.ClearFlags(FlagTrapExit)
	}
}

// IsTerminated reports whether Cleanup has already run.
func (b *Base) IsTerminated() bool {
	return b.Flags().Has(FlagTerminated)
}

// ExitReason returns the reason Cleanup was (or will be) called with. Before
// termination this returns the zero ExitReason.
func (b *Base) ExitReason() ExitReason {
	b.mu.RLock()
	r := b.exitReason
	b.mu.RUnlock()
	return r
}

// Attach registers an Attachable to be notified exactly once when this
// actor terminates. If the actor has already terminated, a is notified
// synchronously and an invalid (zero) token is returned.
func (b *Base) Attach(a Attachable) AttachToken {
	b.mu.Lock()
	if b.cleanedUp {
		reason := b.exitReason
		b.mu.Unlock()
		a.ActorExited(reason)
		return 0
	}
	tok := nextAttachToken()
	b.attachables = append(b.attachables, attachEntry{token: tok, item: a})
	b.mu.Unlock()
	return tok
}

// Detach removes a previously attached Attachable by token, returning the
// number of remaining attachables. An unknown token is a no-op that still
// returns the current count; a zero token is a no-op that returns -1.
func (b *Base) Detach(tok AttachToken) int {
	if tok == 0 {
		return -1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.attachables {
		if e.token == tok {
			b.attachables = append(b.attachables[:i], b.attachables[i+1:]...)
			break
		}
	}
	return len(b.attachables)
}

// detachMatching removes every attachable matching addr (used to tear down
// a link/monitor by peer identity rather than by token), returning the
// number removed.
func (b *Base) detachMatching(addr Address) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.attachables[:0]
	removed := 0
	for _, e := range b.attachables {
		if e.item.MatchesDownHandle(addr) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	b.attachables = kept
	return removed
}

// exitPusher is satisfied by any Base (promoted through embedding,
// regardless of which package the embedding type lives in — unexported
// method identifiers stay qualified by their declaring package, so this
// still only matches a genuine *Base).
type exitPusher interface {
	pushExit(ExitMessage)
}

type downPusher interface {
	pushDown(DownMessage)
}

// LinkTo establishes a bidirectional link: each side attaches a
// linkAttachable for the other, so either actor's non-normal termination
// delivers an ExitMessage to the peer's default exit channel (or cascades
// its own termination, unless the peer traps exits — trap-exit handling is
// the concrete actor type's responsibility when consuming ExitSignals).
func (b *Base) LinkTo(peer AbstractActor) {
	if peer == nil || peer.Address().Equal(b.addr) {
		return
	}
	peerPusher, ok := peer.(exitPusher)
	if !ok {
		return
	}
	peerAddr := peer.Address()
	b.Attach(&linkAttachable{peer: peerAddr, deliver: func(m ExitMessage) {
		peerPusher.pushExit(ExitMessage{Source: b.addr, Reason: m.Reason})
	}})
	peer.Attach(&linkAttachable{peer: b.addr, deliver: func(m ExitMessage) {
		b.pushExit(ExitMessage{Source: peerAddr, Reason: m.Reason})
	}})
}

// UnlinkFrom tears down both sides of a link established via LinkTo.
func (b *Base) UnlinkFrom(peer AbstractActor) {
	if peer == nil {
		return
	}
	b.detachMatching(peer.Address())
	if da, ok := peer.(interface{ detachMatching(Address) int }); ok {
		da.detachMatching(b.addr)
	}
}

// Monitor attaches a monitorAttachable to peer so this actor's default
// DownSignals channel is notified when peer terminates.
func (b *Base) Monitor(peer AbstractActor) {
	if peer == nil {
		return
	}
	peer.Attach(&monitorAttachable{observer: b.addr, target: peer.Address(), deliver: b.pushDown})
}

// Demonitor removes a prior Monitor registration on peer.
func (b *Base) Demonitor(peer AbstractActor) {
	if peer == nil {
		return
	}
	if da, ok := peer.(interface{ detachMatching(Address) int }); ok {
		da.detachMatching(b.addr)
	}
}

var _ downPusher = (*Base)(nil)

// Cleanup runs this actor's termination sequence: it is idempotent (the
// first call wins; later calls return false), sets FlagTerminated, notifies
// every attachable exactly once in attach order, then invokes onCleanup.
// reason.IsNormal() attachables (links) are notified but do not propagate;
// monitors are always notified regardless of reason.
func (b *Base) Cleanup(reason ExitReason) bool {
	b.mu.Lock()
	if b.cleanedUp {
		b.mu.Unlock()
		return false
	}
	b.cleanedUp = true
	b.exitReason = reason
	b.flags |= FlagTerminated | FlagCleanedUp
	attachables := b.attachables
	b.attachables = nil
	callbacks := b.onCleanup
	b.onCleanup = nil
	b.mu.Unlock()

	for _, e := range attachables {
		e.item.ActorExited(reason)
	}

	for _, cb := range callbacks {
		cb(reason)
	}

	return true
}

// ensureSingleCleanup is a convenience embeddable guard for concrete actor
// types that need to run Cleanup from more than one code path (e.g. both a
// panic recovery and a normal process-loop exit) without duplicating the
// sync.Once boilerplate every caller would otherwise repeat.
type ensureSingleCleanup struct {
	once sync.Once
}

func (g *ensureSingleCleanup) Do(fn func()) { g.once.Do(fn) }
