// Package registry implements the directory an actor system consults to resolve an id or a registered name back to a strong
// handle, and to track how many non-hidden actors are currently alive.
//
// Grounded on actor_registry.cpp: a "swap into a local variable, then
// erase" idiom avoids releasing the last strong reference to an actor
// while still holding the registry's lock (releasing it can re-enter
// erase via the actor's own cleanup attachable, which would deadlock on a
// non-reentrant lock).
package registry

import (
	"sync"

	"github.com/latticeforge/actorcore/actor"
	"github.com/latticeforge/actorcore/spinlock"
)

// Registry is an actor system's id/name directory plus its liveness
// counter. The zero value is not usable; construct with New.
type Registry struct {
	entryMu spinlock.SharedSpinlock
	entries map[actor.ID]actor.StrongHandle

	namedMu spinlock.SharedSpinlock
	named   map[string]actor.StrongHandle

	nextID uint64 // guarded by entryMu

	running   int64
	runningMu sync.Mutex
	runningCV *sync.Cond
}

// New constructs an empty registry.
func New() *Registry {
	r := &Registry{
		entries: make(map[actor.ID]actor.StrongHandle),
		named:   make(map[string]actor.StrongHandle),
	}
	r.runningCV = sync.NewCond(&r.runningMu)
	return r
}

// NextID allocates the next actor id of this registry. IDs start at 1;
// 0 is reserved for actor.ID's "none" sentinel. Each Registry counts on
// its own, so ids are unique per registry, not across the process.
func (r *Registry) NextID() actor.ID {
	r.entryMu.Lock()
	r.nextID++
	id := r.nextID
	r.entryMu.Unlock()
	return actor.ID(id)
}

// Put registers handle under its own id. A zero handle is a no-op. The
// second registration for the same id is ignored, matching CAF's
// emplace-or-ignore semantics — the first registrant wins.
func (r *Registry) Put(handle actor.StrongHandle) {
	if handle.IsZero() {
		return
	}
	id := handle.ID()

	r.entryMu.Lock()
	if _, exists := r.entries[id]; exists {
		r.entryMu.Unlock()
		return
	}
	r.entries[id] = handle
	r.entryMu.Unlock()
}

// Get resolves an id to a strong handle, returning ok=false if the id is
// not (or no longer) registered.
func (r *Registry) Get(id actor.ID) (actor.StrongHandle, bool) {
	r.entryMu.RLock()
	h, ok := r.entries[id]
	r.entryMu.RUnlock()
	return h, ok
}

// Erase removes an id's entry and releases the removed handle after the
// registry's lock is dropped — releasing the last strong reference to an
// actor can re-enter Erase via that actor's own cleanup attachable, so the
// entry is swapped out of the map under the lock and released only once
// the lock is no longer held.
func (r *Registry) Erase(id actor.ID) {
	r.entryMu.Lock()
	h, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.entryMu.Unlock()

	if ok {
		h.Release()
	}
}

// PutNamed registers handle under name, overwriting any previous
// registration for that name.
func (r *Registry) PutNamed(name string, handle actor.StrongHandle) {
	if handle.IsZero() {
		r.EraseNamed(name)
		return
	}
	r.namedMu.Lock()
	r.named[name] = handle
	r.namedMu.Unlock()
}

// PutNamedIfAbsent claims name for handle only if no entry already exists,
// returning false without modifying the directory if the name is taken.
// Used by callers that need "register or fail" rather than PutNamed's
// unconditional rebind.
func (r *Registry) PutNamedIfAbsent(name string, handle actor.StrongHandle) bool {
	r.namedMu.Lock()
	defer r.namedMu.Unlock()

	if _, exists := r.named[name]; exists {
		return false
	}
	r.named[name] = handle
	return true
}

// GetNamed resolves a registered name to a strong handle.
func (r *Registry) GetNamed(name string) (actor.StrongHandle, bool) {
	r.namedMu.RLock()
	h, ok := r.named[name]
	r.namedMu.RUnlock()
	return h, ok
}

// EraseNamed removes a name registration, releasing the stored handle
// after the lock is dropped for the same reentrancy reason as Erase.
func (r *Registry) EraseNamed(name string) {
	r.namedMu.Lock()
	h, ok := r.named[name]
	if ok {
		delete(r.named, name)
	}
	r.namedMu.Unlock()

	if ok {
		h.Release()
	}
}

// NamedActors returns a snapshot copy of the name -> handle directory.
func (r *Registry) NamedActors() map[string]actor.StrongHandle {
	r.namedMu.RLock()
	defer r.namedMu.RUnlock()

	out := make(map[string]actor.StrongHandle, len(r.named))
	for k, v := range r.named {
		out[k] = v
	}
	return out
}

// IncRunning increments the count of live, non-hidden actors. Called when
// a non-FlagHidden actor starts.
func (r *Registry) IncRunning() {
	r.runningMu.Lock()
	r.running++
	r.runningMu.Unlock()
}

// DecRunning decrements the live count and wakes any AwaitRunningCountEqual
// waiters once the count reaches 0 or 1, mirroring CAF's wake-on-boundary
// behavior (the only two counts anything ever waits for).
func (r *Registry) DecRunning() {
	r.runningMu.Lock()
	r.running--
	newVal := r.running
	r.runningMu.Unlock()

	if newVal <= 1 {
		r.runningMu.Lock()
		r.runningCV.Broadcast()
		r.runningMu.Unlock()
	}
}

// Running returns the current live, non-hidden actor count.
func (r *Registry) Running() int64 {
	r.runningMu.Lock()
	defer r.runningMu.Unlock()
	return r.running
}

// AwaitRunningCountEqual blocks until the running count equals expected,
// which must be 0 or 1 — the only two thresholds an actor system shutdown
// sequence ever waits on (0: fully quiesced; 1: only the system's own
// bookkeeping actor remains).
func (r *Registry) AwaitRunningCountEqual(expected int64) {
	r.runningMu.Lock()
	defer r.runningMu.Unlock()
	for r.running != expected {
		r.runningCV.Wait()
	}
}
