package actor_test

import (
	"testing"

	"github.com/latticeforge/actorcore/actor"
	"github.com/latticeforge/actorcore/nodeid"
)

// stubActor is the minimal AbstractActor wrapper needed to mint a
// StrongHandle for tests that only exercise identity/link/monitor/cleanup
// behavior and never touch message processing.
//
// It embeds the Base so link and monitor peers can reach the Base's own
// delivery and detach hooks through it.
type stubActor struct {
	*actor.Base
	base *actor.Base
}

func (s *stubActor) ID() actor.ID                               { return s.base.ID() }
func (s *stubActor) Node() nodeid.ID                             { return s.base.Node() }
func (s *stubActor) Address() actor.Address                     { return s.base.Address() }
func (s *stubActor) Attach(a actor.Attachable) actor.AttachToken { return s.base.Attach(a) }
func (s *stubActor) Detach(tok actor.AttachToken) int            { return s.base.Detach(tok) }
func (s *stubActor) LinkTo(peer actor.AbstractActor)             { s.base.LinkTo(peer) }
func (s *stubActor) UnlinkFrom(peer actor.AbstractActor)         { s.base.UnlinkFrom(peer) }
func (s *stubActor) Cleanup(reason actor.ExitReason) bool        { return s.base.Cleanup(reason) }
func (s *stubActor) ExitReason() actor.ExitReason                { return s.base.ExitReason() }
func (s *stubActor) Flags() actor.ActorFlags                     { return s.base.Flags() }

func newTestBase(t *testing.T, id actor.ID, node nodeid.ID) (*stubActor, actor.StrongHandle) {
	t.Helper()
	s := &stubActor{}
	base, handle := actor.NewBase(id, node, s)
	s.Base = base
	s.base = base
	return s, handle
}
