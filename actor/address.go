package actor

import (
	"bytes"
	"sync/atomic"

	"github.com/latticeforge/actorcore/nodeid"
)

// AbstractActor is the type-erased handle surface every addressable actor
// implements: plain user actors, pools, sequencers, splitters, adapters,
// and group brokers alike. Statically typed message passing (Tell/Ask) is
// layered separately on top via ActorRef[M,R] — this interface only carries
// the identity/lifecycle contract spec §6 calls out as the "actor handle
// operations" surface.
type AbstractActor interface {
	ID() ID
	Node() nodeid.ID
	Address() Address
	Attach(a Attachable) AttachToken
	Detach(tok AttachToken) int
	LinkTo(peer AbstractActor)
	UnlinkFrom(peer AbstractActor)
	Cleanup(reason ExitReason) bool
	ExitReason() ExitReason
	Flags() ActorFlags
}

// controlBlock is the heap cell backing every actor address: identity, home
// node, reference counts, and the (possibly-cleared) body pointer. Handles
// never touch the body directly except through Body(), which only succeeds
// while a strong reference is outstanding.
type controlBlock struct {
	id   ID
	node nodeid.ID

	strong atomic.Int64
	weak   atomic.Int64

	body atomic.Pointer[bodyHolder]
}

type bodyHolder struct {
	actor AbstractActor
}

// newControlBlock allocates a control block with strong=1, weak=1, per
// spec §4.2 ("Creation atomically allocates the block with strong=1,
// weak=1").
func newControlBlock(id ID, node nodeid.ID, body AbstractActor) *controlBlock {
	cb := &controlBlock{id: id, node: node}
	cb.strong.Store(1)
	cb.weak.Store(1)
	cb.body.Store(&bodyHolder{actor: body})
	return cb
}

// Address is a weak, hashable, totally-ordered identity for an actor. It
// carries no ownership of the actor body.
type Address struct {
	cb *controlBlock
}

// ZeroAddress is the null address; it compares less than every valid
// address and never resolves to a body.
var ZeroAddress = Address{}

// IsZero reports whether this is the null address.
func (a Address) IsZero() bool { return a.cb == nil }

// ID returns the actor id this address refers to, or 0 for the zero
// address.
func (a Address) ID() ID {
	if a.cb == nil {
		return 0
	}
	return a.cb.id
}

// Node returns the home node id this address refers to.
func (a Address) Node() nodeid.ID {
	if a.cb == nil {
		return nodeid.ID{}
	}
	return a.cb.node
}

// Equal reports whether two addresses refer to the same control block.
func (a Address) Equal(other Address) bool { return a.cb == other.cb }

// Compare orders addresses by (node_id, actor_id); the zero address sorts
// before every non-zero address.
func (a Address) Compare(other Address) int {
	switch {
	case a.cb == nil && other.cb == nil:
		return 0
	case a.cb == nil:
		return -1
	case other.cb == nil:
		return 1
	}

	if c := nodeid.Compare(a.cb.node, other.cb.node); c != 0 {
		return c
	}

	switch {
	case a.cb.id < other.cb.id:
		return -1
	case a.cb.id > other.cb.id:
		return 1
	default:
		return 0
	}
}

// Hash returns a value suitable for use as a map key component. Addresses
// that compare Equal always hash equal.
func (a Address) Hash() uint64 {
	if a.cb == nil {
		return 0
	}
	var buf bytes.Buffer
	buf.Write(a.cb.node.Host[:])
	return uint64(a.cb.id) ^ uint64(a.cb.node.Pid)<<32 ^ fnv(buf.Bytes())
}

func fnv(b []byte) uint64 {
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	h := uint64(offset)
	for _, c := range b {
		h ^= uint64(c)
		h *= prime
	}
	return h
}

// StrongHandle is an owning reference to a control block. While any strong
// handle is outstanding, the actor body is guaranteed reachable via Body.
type StrongHandle struct {
	cb *controlBlock
}

// newStrongHandle wraps a freshly allocated control block without adjusting
// its counts (the control block already starts at strong=1, weak=1).
func newStrongHandle(cb *controlBlock) StrongHandle {
	return StrongHandle{cb: cb}
}

// IsZero reports whether this handle refers to nothing.
func (h StrongHandle) IsZero() bool { return h.cb == nil }

// Address returns the weak address this handle refers to.
func (h StrongHandle) Address() Address { return Address{cb: h.cb} }

// ID returns the actor id, or 0 for a zero handle.
func (h StrongHandle) ID() ID {
	if h.cb == nil {
		return 0
	}
	return h.cb.id
}

// Body returns the actor body while it remains reachable. ok is false once
// the strong count has dropped to zero and the body has been released.
func (h StrongHandle) Body() (AbstractActor, bool) {
	if h.cb == nil {
		return nil, false
	}
	holder := h.cb.body.Load()
	if holder == nil {
		return nil, false
	}
	return holder.actor, true
}

// Clone increments both counts and returns an independent strong handle to
// the same control block.
func (h StrongHandle) Clone() StrongHandle {
	if h.cb == nil {
		return StrongHandle{}
	}
	h.cb.strong.Add(1)
	h.cb.weak.Add(1)
	return StrongHandle{cb: h.cb}
}

// Weak downgrades this handle to a weak handle, incrementing the weak
// count. The caller's strong handle is unaffected.
func (h StrongHandle) Weak() WeakHandle {
	if h.cb == nil {
		return WeakHandle{}
	}
	h.cb.weak.Add(1)
	return WeakHandle{cb: h.cb}
}

// Release drops this strong handle. When the strong count reaches zero the
// body pointer is cleared, so subsequent Body()/Upgrade() calls fail; the
// control block cell itself persists until the weak count also reaches
// zero.
func (h StrongHandle) Release() {
	if h.cb == nil {
		return
	}
	if h.cb.strong.Add(-1) == 0 {
		h.cb.body.Store(nil)
	}
	h.cb.weak.Add(-1)
}

// WeakHandle is a non-owning reference to a control block: it keeps the
// cell itself alive but does not guarantee the body is reachable.
type WeakHandle struct {
	cb *controlBlock
}

// IsZero reports whether this handle refers to nothing.
func (w WeakHandle) IsZero() bool { return w.cb == nil }

// Address returns the address this weak handle refers to.
func (w WeakHandle) Address() Address { return Address{cb: w.cb} }

// Upgrade attempts to produce a strong handle via a compare-and-increment
// loop on the strong counter, succeeding iff the counter is currently > 0.
func (w WeakHandle) Upgrade() (StrongHandle, bool) {
	if w.cb == nil {
		return StrongHandle{}, false
	}
	for {
		cur := w.cb.strong.Load()
		if cur <= 0 {
			return StrongHandle{}, false
		}
		if w.cb.strong.CompareAndSwap(cur, cur+1) {
			w.cb.weak.Add(1)
			return StrongHandle{cb: w.cb}, true
		}
	}
}

// Release drops this weak handle's hold on the control block cell.
func (w WeakHandle) Release() {
	if w.cb == nil {
		return
	}
	w.cb.weak.Add(-1)
}
