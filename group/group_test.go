package group_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/actorcore/actor"
	"github.com/latticeforge/actorcore/group"
	"github.com/latticeforge/actorcore/nodeid"
)

type chatMsg struct {
	actor.BaseMessage
	text string
}

func (chatMsg) MessageType() string { return "chat" }

type recorder struct {
	addr actor.Address
	ch   chan chatMsg
}

func (r *recorder) ID() actor.ID           { return 0 }
func (r *recorder) Address() actor.Address { return r.addr }
func (r *recorder) Tell(_ context.Context, msg chatMsg) error {
	r.ch <- msg
	return nil
}

func newRecorder(addr actor.Address) *recorder {
	return &recorder{addr: addr, ch: make(chan chatMsg, 8)}
}

func TestGroupPublishReachesAllSubscribers(t *testing.T) {
	t.Parallel()

	node := nodeid.New()
	mgr := group.NewManager[chatMsg](node)
	g := mgr.Get("room-1")

	a, _ := newTestBase(t, 1, node)
	b, _ := newTestBase(t, 2, node)
	r1 := newRecorder(a.Address())
	r2 := newRecorder(b.Address())

	added, size := g.Subscribe(r1)
	require.True(t, added)
	require.Equal(t, 1, size)

	added, size = g.Subscribe(r2)
	require.True(t, added)
	require.Equal(t, 2, size)

	added, size = g.Subscribe(r1)
	require.False(t, added, "re-subscribing the same member should fail")
	require.Equal(t, 2, size)

	g.Publish(context.Background(), chatMsg{text: "hi"})

	select {
	case m := <-r1.ch:
		require.Equal(t, "hi", m.text)
	case <-time.After(time.Second):
		t.Fatal("r1 never received the broadcast")
	}
	select {
	case m := <-r2.ch:
		require.Equal(t, "hi", m.text)
	case <-time.After(time.Second):
		t.Fatal("r2 never received the broadcast")
	}
}

func TestGroupUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	node := nodeid.New()
	mgr := group.NewManager[chatMsg](node)
	g := mgr.Get("room-2")

	a, _ := newTestBase(t, 1, node)
	r1 := newRecorder(a.Address())
	added, size := g.Subscribe(r1)
	require.True(t, added)
	require.Equal(t, 1, size)

	removed, size := g.Unsubscribe(r1.Address())
	require.True(t, removed)
	require.Equal(t, 0, size)
	g.Publish(context.Background(), chatMsg{text: "ignored"})

	select {
	case <-r1.ch:
		t.Fatal("unsubscribed member should not receive further broadcasts")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestGetReturnsSameGroupForSameID(t *testing.T) {
	t.Parallel()

	mgr := group.NewManager[chatMsg](nodeid.New())
	g1 := mgr.Get("same")
	g2 := mgr.Get("same")
	require.Same(t, g1, g2)
}

func TestAnonymousGroupsAreDistinct(t *testing.T) {
	t.Parallel()

	mgr := group.NewManager[chatMsg](nodeid.New())
	g1 := mgr.Anonymous()
	g2 := mgr.Anonymous()
	require.NotEqual(t, g1.ID(), g2.ID())
}

func TestBrokerJoinLeaveTracksAcquaintances(t *testing.T) {
	t.Parallel()

	node := nodeid.New()
	mgr := group.NewManager[chatMsg](node)
	g := mgr.Get("room-3")

	other, handle := newTestBase(t, 99, node)
	acquaintance := newRecorder(other.Address())

	g.Broker().Join(acquaintance, handle)
	g.Publish(context.Background(), chatMsg{text: "to-acquaintance"})

	select {
	case m := <-acquaintance.ch:
		require.Equal(t, "to-acquaintance", m.text)
	case <-time.After(time.Second):
		t.Fatal("acquaintance never received the forwarded broadcast")
	}

	g.Broker().Leave(acquaintance.Address())
	g.Publish(context.Background(), chatMsg{text: "after-leave"})

	select {
	case <-acquaintance.ch:
		t.Fatal("acquaintance should stop receiving broadcasts after leaving")
	case <-time.After(20 * time.Millisecond):
	}
}
