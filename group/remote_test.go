package group_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/latticeforge/actorcore/group"
	"github.com/latticeforge/actorcore/nodeid"
)

func TestParseIdentifierValid(t *testing.T) {
	t.Parallel()

	id, err := group.ParseIdentifier("room-1@10.0.0.1:9000")
	require.NoError(t, err)
	require.Equal(t, "room-1", id.Name)
	require.Equal(t, "10.0.0.1:9000", id.Authority)
	require.Equal(t, "room-1@10.0.0.1:9000", id.String())
}

func TestParseIdentifierRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"no-at-sign", "@host:1", "name@", "name@hostonly"} {
		_, err := group.ParseIdentifier(s)
		require.Error(t, err, s)
	}
}

type fakeConn struct {
	brokers map[string]*group.LocalBroker[chatMsg]
	dials   *int
	down    chan struct{}
}

func (f *fakeConn) GetGroup(
	_ context.Context, _ uuid.UUID, name string,
) (*group.LocalBroker[chatMsg], error) {
	b, ok := f.brokers[name]
	if !ok {
		return nil, errors.New("no such group")
	}
	return b, nil
}

func (f *fakeConn) Down() <-chan struct{} { return f.down }

type fakeDialer struct {
	conn  *fakeConn
	err   error
	dials int
}

func (d *fakeDialer) Dial(
	_ context.Context, _ string,
) (group.NameserverConn[chatMsg], error) {
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func TestRemoteModuleResolvesAndForwardsTraffic(t *testing.T) {
	t.Parallel()

	remoteNode := nodeid.New()
	remoteMgr := group.NewManager[chatMsg](remoteNode)
	remoteGroup := remoteMgr.Get("room-1")

	upstreamBase, _ := newTestBase(t, 9001, remoteNode)
	upstream := newRecorder(upstreamBase.Address())
	added, _ := remoteGroup.Subscribe(upstream)
	require.True(t, added)

	dialer := &fakeDialer{conn: &fakeConn{
		brokers: map[string]*group.LocalBroker[chatMsg]{"room-1": remoteGroup.Broker()},
		down:    make(chan struct{}),
	}}

	localNode := nodeid.New()
	mod := group.NewRemoteModule[chatMsg](localNode, dialer)

	ident := group.Identifier{Name: "room-1", Authority: "peer:7777"}
	proxy, err := mod.Get(context.Background(), ident)
	require.NoError(t, err)
	require.NotNil(t, proxy)

	proxy2, err := mod.Get(context.Background(), ident)
	require.NoError(t, err)
	require.Same(t, proxy, proxy2)
	require.Equal(t, 1, dialer.dials, "second Get should reuse the cached connection")

	downstreamBase, _ := newTestBase(t, 1, localNode)
	downstream := newRecorder(downstreamBase.Address())
	added2, _ := proxy.Subscribe(downstream)
	require.True(t, added2)

	remoteGroup.Publish(context.Background(), chatMsg{text: "from-remote"})

	select {
	case m := <-downstream.ch:
		require.Equal(t, "from-remote", m.text)
	case <-time.After(time.Second):
		t.Fatal("proxy subscriber never received traffic forwarded from the remote group")
	}

	// upstream subscribes to remoteGroup directly, so the "from-remote"
	// publish above reached it as well.
	select {
	case m := <-upstream.ch:
		require.Equal(t, "from-remote", m.text)
	case <-time.After(time.Second):
		t.Fatal("remote group subscriber never received the remote publish")
	}

	proxy.Publish(context.Background(), chatMsg{text: "from-local"})
	select {
	case m := <-upstream.ch:
		require.Equal(t, "from-local", m.text)
	case <-time.After(time.Second):
		t.Fatal("remote group never received traffic published through the proxy")
	}
}

func TestRemoteModuleCachesLookupFailure(t *testing.T) {
	t.Parallel()

	dialer := &fakeDialer{conn: &fakeConn{
		brokers: map[string]*group.LocalBroker[chatMsg]{},
		down:    make(chan struct{}),
	}}
	mod := group.NewRemoteModule[chatMsg](nodeid.New(), dialer)

	ident := group.Identifier{Name: "missing", Authority: "peer:7777"}
	_, err := mod.Get(context.Background(), ident)
	require.Error(t, err)

	_, err = mod.Get(context.Background(), ident)
	require.Error(t, err)
	require.Equal(t, 1, dialer.dials, "a failed lookup should not re-dial on every call")
}

func TestRemoteModuleDialerErrorWithoutConnection(t *testing.T) {
	t.Parallel()

	dialer := &fakeDialer{err: errors.New("connection refused")}
	mod := group.NewRemoteModule[chatMsg](nodeid.New(), dialer)

	_, err := mod.Get(context.Background(), group.Identifier{Name: "x", Authority: "peer:1"})
	require.Error(t, err)
}

func TestRemoteModuleNameserverDownFailsCachedProxies(t *testing.T) {
	t.Parallel()

	remoteNode := nodeid.New()
	remoteMgr := group.NewManager[chatMsg](remoteNode)
	remoteGroup := remoteMgr.Get("room-1")

	downCh := make(chan struct{})
	dialer := &fakeDialer{conn: &fakeConn{
		brokers: map[string]*group.LocalBroker[chatMsg]{"room-1": remoteGroup.Broker()},
		down:    downCh,
	}}

	mod := group.NewRemoteModule[chatMsg](nodeid.New(), dialer)
	ident := group.Identifier{Name: "room-1", Authority: "peer:7777"}

	_, err := mod.Get(context.Background(), ident)
	require.NoError(t, err)

	close(downCh)

	require.Eventually(t, func() bool {
		_, err := mod.Get(context.Background(), ident)
		return err != nil
	}, time.Second, 5*time.Millisecond, "proxy should be failed once its nameserver connection goes down")
}
