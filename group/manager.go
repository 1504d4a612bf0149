package group

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/latticeforge/actorcore/actor"
	"github.com/latticeforge/actorcore/nodeid"
	"github.com/latticeforge/actorcore/spinlock"
)

// Manager owns every LocalGroup created for a single message type on
// this node, keyed by identifier, and mints anonymous, unreachable-by-
// name groups on request. Grounded on group_manager's local-module
// bookkeeping. Manager is the local module only: remote groups are
// resolved by the separate RemoteModule type, and there is no registry
// that looks group modules up by name.
type Manager[M actor.Message] struct {
	mu        spinlock.SharedSpinlock
	node      nodeid.ID
	instances map[string]*LocalGroup[M]
	handles   map[string]actor.StrongHandle
	nextID    uint64

	anonCounter atomic.Uint64
}

// NewManager constructs an empty group manager for node.
func NewManager[M actor.Message](node nodeid.ID) *Manager[M] {
	return &Manager[M]{
		node:      node,
		instances: make(map[string]*LocalGroup[M]),
		handles:   make(map[string]actor.StrongHandle),
	}
}

// Get returns the group named id, creating it (and its broker) on first
// use. Grounded on local_group_module::get's upgrade-lock double-check.
func (m *Manager[M]) Get(id string) *LocalGroup[M] {
	m.mu.RLock()
	if g, ok := m.instances[id]; ok {
		m.mu.RUnlock()
		return g
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if g, ok := m.instances[id]; ok {
		return g
	}

	m.nextID++
	g, handle := newLocalGroup[M](id, m.node, actor.ID(m.nextID))
	m.instances[id] = g
	m.handles[id] = handle
	log.DebugS(context.Background(), "Group created", "group_id", id)
	return g
}

// Anonymous mints a group with a unique, unpublished identifier — useful
// for ad hoc fan-out that has no reason to be discoverable by name.
// Grounded on group_manager::anonymous.
func (m *Manager[M]) Anonymous() *LocalGroup[M] {
	n := m.anonCounter.Add(1)
	return m.Get("__#" + itoa(n))
}

// Stop tears down every group this manager owns. Instances are swapped
// out from under the lock before their brokers are cleaned up, the same
// reentrancy-safe pattern group_manager::stop and the registry's Erase
// use: a broker's cleanup can in principle touch manager state again
// (e.g. via its own exit handlers), so nothing is stopped while the lock
// is held.
func (m *Manager[M]) Stop() {
	log.DebugS(context.Background(), "Group manager stopping")
	m.mu.Lock()
	instances := m.instances
	handles := m.handles
	m.instances = make(map[string]*LocalGroup[M])
	m.handles = make(map[string]actor.StrongHandle)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, g := range instances {
		wg.Add(1)
		go func(g *LocalGroup[M]) {
			defer wg.Done()
			g.Stop()
		}(g)
	}
	wg.Wait()

	for _, h := range handles {
		h.Release()
	}
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
