package group

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/latticeforge/actorcore/actor"
	"github.com/latticeforge/actorcore/nodeid"
	"github.com/latticeforge/actorcore/spinlock"
)

// ErrNoNameserver is returned when a RemoteModule has no cached or dialable
// connection for an identifier's authority.
var ErrNoNameserver = errors.New("group: no nameserver connection for authority")

// Identifier is a parsed "name@host:port" remote group reference, mirroring
// how CAF's group::get parses a string id into a module name plus a
// module-specific identifier — here the module is always "remote" and the
// identifier splits into a group name and the authority that hosts it.
type Identifier struct {
	Name      string
	Authority string
}

// ParseIdentifier splits s of the form "name@host:port" into its group name
// and authority. Grounded on the "name@host:port" remote group syntax.
func ParseIdentifier(s string) (Identifier, error) {
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return Identifier{}, fmt.Errorf("group: malformed remote identifier %q, want name@host:port", s)
	}
	name, authority := s[:at], s[at+1:]
	if !strings.Contains(authority, ":") {
		return Identifier{}, fmt.Errorf("group: malformed authority %q in %q, want host:port", authority, s)
	}
	return Identifier{Name: name, Authority: authority}, nil
}

func (id Identifier) String() string { return id.Name + "@" + id.Authority }

// NameserverConn is a cached connection to one authority's nameserver: the
// sole gateway a RemoteModule uses to resolve group names hosted there.
// Grounded on local_group_module's get_remote_group, generalized behind an
// interface since the wire protocol a real nameserver would speak is out of
// scope here — "connection" means whatever dial-once, reuse-many handle a
// caller's transport needs, not a concrete socket.
type NameserverConn[M actor.Message] interface {
	// GetGroup resolves name to the broker backing it, correlating the
	// request with requestID the way a real nameserver round-trip would
	// tag its request/response pair for deduplication and logging.
	GetGroup(ctx context.Context, requestID uuid.UUID, name string) (*LocalBroker[M], error)

	// Down reports when this connection itself has failed, e.g. the
	// nameserver process exited or the transport dropped.
	Down() <-chan struct{}
}

// Dialer opens a NameserverConn for a given authority. Grounded on the
// connect-on-demand, cache-per-authority behavior local_group_module uses
// for its remote_groups map of middleman connections.
type Dialer[M actor.Message] interface {
	Dial(ctx context.Context, authority string) (NameserverConn[M], error)
}

type proxyEntry[M actor.Message] struct {
	proxy  *LocalGroupProxy[M]
	handle actor.StrongHandle
	err    error
}

// RemoteModule resolves "name@host:port" identifiers into LocalGroupProxy
// instances, caching both the per-authority nameserver connection and the
// per-identifier proxy (successes and failures alike, so a bad lookup
// doesn't retry a downed nameserver on every Publish). Grounded on
// local_group_module's remote-group half: connection caching by authority,
// get_group request/response correlated by an id, and evicting every proxy
// under an authority once that authority's connection goes down.
type RemoteModule[M actor.Message] struct {
	node   nodeid.ID
	dialer Dialer[M]

	mu      spinlock.SharedSpinlock
	conns   map[string]NameserverConn[M]
	proxies map[Identifier]proxyEntry[M]

	nextID uint64

	relayWg sync.WaitGroup
}

// NewRemoteModule constructs a RemoteModule that dials nameserver
// connections through dialer for actors running on node.
func NewRemoteModule[M actor.Message](node nodeid.ID, dialer Dialer[M]) *RemoteModule[M] {
	return &RemoteModule[M]{
		node:    node,
		dialer:  dialer,
		conns:   make(map[string]NameserverConn[M]),
		proxies: make(map[Identifier]proxyEntry[M]),
	}
}

// Get resolves ident to a proxy for its remote group, dialing the
// authority's nameserver on first use and caching the result — success or
// failure — for every later call. A cached failure is returned again
// without retrying until the authority's connection is evicted by Down
// handling, matching local_group_module's fail-fast-until-reconnect
// behavior.
func (r *RemoteModule[M]) Get(ctx context.Context, ident Identifier) (*LocalGroupProxy[M], error) {
	r.mu.RLock()
	if e, ok := r.proxies[ident]; ok {
		r.mu.RUnlock()
		return e.proxy, e.err
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.proxies[ident]; ok {
		return e.proxy, e.err
	}

	conn, err := r.connFor(ctx, ident.Authority)
	if err != nil {
		r.proxies[ident] = proxyEntry[M]{err: err}
		return nil, err
	}

	reqID := uuid.New()
	broker, err := conn.GetGroup(ctx, reqID, ident.Name)
	if err != nil {
		r.proxies[ident] = proxyEntry[M]{err: err}
		return nil, err
	}

	proxy, handle := r.newProxy(ident, broker)
	r.proxies[ident] = proxyEntry[M]{proxy: proxy, handle: handle}
	log.DebugS(ctx, "Remote group resolved", "identifier", ident.String(), "request_id", reqID)
	return proxy, nil
}

// connFor returns the cached connection for authority, dialing and
// watching a new one if none exists yet. Callers must hold r.mu.
func (r *RemoteModule[M]) connFor(ctx context.Context, authority string) (NameserverConn[M], error) {
	if c, ok := r.conns[authority]; ok {
		return c, nil
	}

	if r.dialer == nil {
		return nil, ErrNoNameserver
	}

	conn, err := r.dialer.Dial(ctx, authority)
	if err != nil {
		return nil, err
	}

	r.conns[authority] = conn
	go r.watchDown(authority, conn)
	return conn, nil
}

// watchDown evicts authority's connection and every proxy cached under it
// once the connection reports down, matching local_group_module's reaction
// to a middleman's down message: every group_down observer under that
// authority is failed rather than left pointing at a dead connection.
func (r *RemoteModule[M]) watchDown(authority string, conn NameserverConn[M]) {
	<-conn.Down()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conns[authority] != conn {
		return
	}
	delete(r.conns, authority)
	log.DebugS(context.Background(), "Nameserver connection down", "authority", authority)

	for ident, e := range r.proxies {
		if ident.Authority != authority {
			continue
		}
		if e.proxy != nil {
			e.proxy.Stop()
			e.handle.Release()
		}
		r.proxies[ident] = proxyEntry[M]{err: fmt.Errorf("group: nameserver for %q is down", authority)}
	}
}

// relayTarget is the "self" actor a LocalGroupProxy hands its remote
// broker so traffic addressed to this node's acquaintance lands back on
// the proxy's own local subscribers.
type relayTarget[M actor.Message] struct {
	proxy *LocalGroupProxy[M]
}

func (t *relayTarget[M]) Receive(ctx context.Context, msg M) fn.Result[any] {
	t.proxy.sendAllSubscribers(ctx, msg)
	return fn.Ok[any](nil)
}

func (r *RemoteModule[M]) newID() actor.ID {
	r.nextID++
	return actor.ID(r.nextID)
}

func (r *RemoteModule[M]) newProxy(
	ident Identifier, broker *LocalBroker[M],
) (*LocalGroupProxy[M], actor.StrongHandle) {
	relayID := r.newID()
	target := &relayTarget[M]{}
	relay, relayHandle := actor.NewActor[M, any](relayID, r.node, actor.ActorConfig[M, any]{
		Behavior:    target,
		MailboxSize: 16,
	}, &r.relayWg)
	relay.Start()

	proxyID := r.newID()
	proxy, handle := NewLocalGroupProxy[M](
		ident.String(), r.node, proxyID, broker, relay.Ref(), relayHandle,
	)
	target.proxy = proxy

	proxy.Broker().Base.SetOnCleanup(func(actor.ExitReason) {
		relay.Stop()
	})

	return proxy, handle
}

// Stop releases every cached proxy and stops every relay actor backing
// them, the local half of tearing down a remote module.
func (r *RemoteModule[M]) Stop() {
	r.mu.Lock()
	proxies := r.proxies
	r.proxies = make(map[Identifier]proxyEntry[M])
	r.mu.Unlock()

	for _, e := range proxies {
		if e.proxy == nil {
			continue
		}
		e.proxy.Stop()
		e.handle.Release()
	}

	r.relayWg.Wait()
}
