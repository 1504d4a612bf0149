// Package group implements publish/subscribe groups: a named mailbox
// fan-out where any number of actors can subscribe and any sender can
// publish a single message to the whole membership.
//
// Grounded on group_manager.cpp's anonymous-namespace local_group,
// local_broker, local_group_proxy and local_group_module, and on
// abstract_group.cpp for the subscribe/unsubscribe contract they all
// satisfy. Every group is statically typed over one message type, the
// same simplification ActorPool already makes: CAF routes group traffic
// through one type-erased mailbox because group membership spans actors
// of unrelated types, but a Go group only makes sense among actors that
// already agree on a wire message, so subscription and publish are
// ordinary typed methods rather than message dispatch.
package group

import (
	"context"
	"errors"
	"sync"

	"github.com/latticeforge/actorcore/actor"
	"github.com/latticeforge/actorcore/nodeid"
	"github.com/latticeforge/actorcore/spinlock"
)

// ErrNoSuchModule mirrors sec::no_such_group_module.
var ErrNoSuchModule = errors.New("group: no module with that name")

// LocalGroup is a single named group living on this node: any subscriber
// may be told to every message Published to the group, and the group's
// broker tracks acquaintances — subscribers belonging to other nodes in
// a distributed deployment — forwarding traffic to them too. Grounded on
// local_group.
type LocalGroup[M actor.Message] struct {
	mu          spinlock.SharedSpinlock
	id          string
	node        nodeid.ID
	subscribers map[actor.Address]actor.TellOnlyRef[M]
	broker      *LocalBroker[M]
}

func newLocalGroup[M actor.Message](
	id string, node nodeid.ID, brokerID actor.ID,
) (*LocalGroup[M], actor.StrongHandle) {
	g := &LocalGroup[M]{
		id:          id,
		node:        node,
		subscribers: make(map[actor.Address]actor.TellOnlyRef[M]),
	}
	broker, handle := newLocalBroker[M](brokerID, node, g)
	g.broker = broker
	return g, handle
}

// ID returns the group's identifier, unique within its module.
func (g *LocalGroup[M]) ID() string { return g.id }

// Node returns the node this group instance lives on.
func (g *LocalGroup[M]) Node() nodeid.ID { return g.node }

// Broker returns the group's broker, the actor responsible for tracking
// remote acquaintances and forwarding traffic to them.
func (g *LocalGroup[M]) Broker() *LocalBroker[M] { return g.broker }

// Subscribe adds who to the group's membership, returning whether who was
// newly added and the resulting membership size, both computed under the
// same lock so the size can't race a concurrent Subscribe/Unsubscribe.
// added is false if who was already subscribed, matching CAF's
// add_subscriber.
func (g *LocalGroup[M]) Subscribe(who actor.TellOnlyRef[M]) (added bool, size int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	addr := who.Address()
	if _, exists := g.subscribers[addr]; exists {
		return false, len(g.subscribers)
	}
	g.subscribers[addr] = who
	return true, len(g.subscribers)
}

// Unsubscribe removes who from the group's membership, returning whether
// who was actually a member and the resulting membership size, computed
// under the same lock as the erase itself.
func (g *LocalGroup[M]) Unsubscribe(who actor.Address) (removed bool, size int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.subscribers[who]; !exists {
		return false, len(g.subscribers)
	}
	delete(g.subscribers, who)
	return true, len(g.subscribers)
}

// Subscribers returns a snapshot of the group's current local members.
func (g *LocalGroup[M]) Subscribers() []actor.TellOnlyRef[M] {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]actor.TellOnlyRef[M], 0, len(g.subscribers))
	for _, s := range g.subscribers {
		out = append(out, s)
	}
	return out
}

// sendAllSubscribers tells msg to every local member, swallowing
// individual Tell errors the way send_all_subscribers ignores a full
// mailbox on any one recipient rather than aborting the broadcast.
func (g *LocalGroup[M]) sendAllSubscribers(ctx context.Context, msg M) {
	for _, s := range g.Subscribers() {
		_ = s.Tell(ctx, msg)
	}
}

// Publish broadcasts msg to every local subscriber and every acquaintance
// known to the group's broker. Grounded on local_group::enqueue.
func (g *LocalGroup[M]) Publish(ctx context.Context, msg M) {
	g.sendAllSubscribers(ctx, msg)
	g.broker.forwardToAcquaintances(ctx, msg)
}

// Stop tears down the group's broker.
func (g *LocalGroup[M]) Stop() {
	g.broker.Base.Cleanup(actor.ExitNormal)
}

// LocalBroker tracks the out-of-node actors ("acquaintances") subscribed
// to a group through a remote proxy, forwarding published traffic to
// them and evicting any that go down. Grounded on local_group.cpp's
// local_broker, with join/leave reduced from message handlers to guarded
// methods for the reasons documented on the package itself.
type LocalBroker[M actor.Message] struct {
	*actor.Base

	mu            spinlock.SharedSpinlock
	group         *LocalGroup[M]
	acquaintances map[actor.Address]acquaintance[M]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type acquaintance[M actor.Message] struct {
	ref    actor.TellOnlyRef[M]
	handle actor.StrongHandle
}

func newLocalBroker[M actor.Message](
	id actor.ID, node nodeid.ID, group *LocalGroup[M],
) (*LocalBroker[M], actor.StrongHandle) {
	ctx, cancel := context.WithCancel(context.Background())

	b := &LocalBroker[M]{
		group:         group,
		acquaintances: make(map[actor.Address]acquaintance[M]),
		ctx:           ctx,
		cancel:        cancel,
	}
	base, handle := actor.NewBase(id, node, b)
	b.Base = base
	b.Base.SetOnCleanup(func(actor.ExitReason) {
		b.cancel()
	})

	b.wg.Add(1)
	go b.watchAcquaintances()

	return b, handle
}

func (b *LocalBroker[M]) watchAcquaintances() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			return

		case down := <-b.Base.DownSignals():
			b.mu.Lock()
			delete(b.acquaintances, down.Source)
			b.mu.Unlock()
		}
	}
}

// Join adds other as an acquaintance, monitoring it so a later crash
// evicts it automatically. Grounded on local_broker's join_atom handler.
func (b *LocalBroker[M]) Join(other actor.TellOnlyRef[M], handle actor.StrongHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	addr := other.Address()
	if _, exists := b.acquaintances[addr]; exists {
		return
	}
	if body, ok := handle.Body(); ok {
		b.Base.Monitor(body)
	}
	b.acquaintances[addr] = acquaintance[M]{ref: other, handle: handle}
}

// Leave removes addr from the acquaintance set, demonitoring it.
func (b *LocalBroker[M]) Leave(addr actor.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()

	a, exists := b.acquaintances[addr]
	if !exists {
		return
	}
	if body, ok := a.handle.Body(); ok {
		b.Base.Demonitor(body)
	}
	delete(b.acquaintances, addr)
}

func (b *LocalBroker[M]) forwardToAcquaintances(ctx context.Context, msg M) {
	b.mu.RLock()
	acqs := make([]acquaintance[M], 0, len(b.acquaintances))
	for _, a := range b.acquaintances {
		acqs = append(acqs, a)
	}
	b.mu.RUnlock()

	for _, a := range acqs {
		_ = a.ref.Tell(ctx, msg)
	}
}

// Forward publishes what to the broker's group and to its acquaintances,
// as if a remote proxy had relayed it in. Grounded on local_broker's
// forward_atom handler.
func (b *LocalBroker[M]) Forward(ctx context.Context, what M) {
	b.group.sendAllSubscribers(ctx, what)
	b.forwardToAcquaintances(ctx, what)
}

// LocalGroupProxy stands in for a group that actually lives on another
// node: local subscribers join/leave the proxy instead of the real
// group, and the proxy relays membership changes and traffic directly to
// the other node's broker, joining and leaving only when the local
// subscriber count transitions to/from zero. Grounded on
// local_group_proxy; the wire encoding and transport a real distributed
// deployment would need are out of scope, so "remote" here means another
// node identity reachable as an in-process *LocalBroker, not a network
// hop.
type LocalGroupProxy[M actor.Message] struct {
	*LocalGroup[M]

	self         actor.TellOnlyRef[M]
	selfHandle   actor.StrongHandle
	remoteBroker *LocalBroker[M]
}

// NewLocalGroupProxy wraps remoteBroker as the group identified by
// id/node, as seen from this node. self/selfHandle identify this proxy
// to the remote broker's join/leave bookkeeping.
func NewLocalGroupProxy[M actor.Message](
	id string, node nodeid.ID, brokerID actor.ID,
	remoteBroker *LocalBroker[M], self actor.TellOnlyRef[M], selfHandle actor.StrongHandle,
) (*LocalGroupProxy[M], actor.StrongHandle) {
	g, handle := newLocalGroup[M](id, node, brokerID)
	return &LocalGroupProxy[M]{
		LocalGroup:   g,
		self:         self,
		selfHandle:   selfHandle,
		remoteBroker: remoteBroker,
	}, handle
}

// Subscribe joins the proxy's local membership, and on the first local
// subscriber, joins the remote broker's acquaintance set.
func (p *LocalGroupProxy[M]) Subscribe(who actor.TellOnlyRef[M]) (bool, int) {
	added, size := p.LocalGroup.Subscribe(who)
	if added && size == 1 {
		p.remoteBroker.Join(p.self, p.selfHandle)
	}
	return added, size
}

// Unsubscribe leaves the proxy's local membership, and once no local
// subscriber remains, leaves the remote broker's acquaintance set.
func (p *LocalGroupProxy[M]) Unsubscribe(who actor.Address) (bool, int) {
	removed, size := p.LocalGroup.Unsubscribe(who)
	if removed && size == 0 {
		p.remoteBroker.Leave(p.selfHandle.Address())
	}
	return removed, size
}

// Publish forwards msg to the remote broker rather than broadcasting
// locally, matching local_group_proxy::enqueue's "forward to the
// broker" override.
func (p *LocalGroupProxy[M]) Publish(ctx context.Context, msg M) {
	p.remoteBroker.Forward(ctx, msg)
}
