package actor

import "sync/atomic"

// AttachToken identifies a previously attached Attachable so it can be
// detached again without scanning by identity.
type AttachToken uint64

var attachTokenCounter atomic.Uint64

func nextAttachToken() AttachToken {
	return AttachToken(attachTokenCounter.Add(1))
}

// Attachable is anything an actor's cleanup sequence notifies once, exactly
// once, when the actor terminates. Monitors and links are both implemented
// as Attachables, matching CAF's monitorable_actor::attach model.
type Attachable interface {
	// ActorExited is invoked at most once, during Cleanup, with the
	// terminating actor's exit reason.
	ActorExited(reason ExitReason)

	// MatchesDownHandle reports whether this attachable was registered for
	// the given peer address, letting DemonitorHandle / UnlinkFrom remove
	// it by identity instead of by token.
	MatchesDownHandle(addr Address) bool
}

type attachEntry struct {
	token AttachToken
	item  Attachable
}

// monitorAttachable delivers a DownMessage for one peer to a channel-backed
// observer when the monitored actor exits. observer identifies the
// monitoring actor, used only to find this attachable again on Demonitor;
// target is the monitored actor's own address, the one that belongs on the
// delivered DownMessage's Source.
type monitorAttachable struct {
	observer Address
	target   Address
	deliver  func(DownMessage)
}

// DownMessage is delivered to every monitor when the monitored actor exits.
type DownMessage struct {
	Source Address
	Reason ExitReason
}

func (m *monitorAttachable) ActorExited(reason ExitReason) {
	m.deliver(DownMessage{Source: m.target, Reason: reason})
}

func (m *monitorAttachable) MatchesDownHandle(addr Address) bool {
	return m.observer.Equal(addr)
}

// linkAttachable propagates a non-normal termination through deliver. peer
// identifies the other side of the link (UnlinkFrom matches on it); the
// deliver functions LinkTo installs hand the peer an ExitMessage whose
// Source is the terminated actor.
type linkAttachable struct {
	peer    Address
	deliver func(ExitMessage)
}

// ExitMessage is delivered to every linked peer when a linked actor exits
// with a non-normal reason.
type ExitMessage struct {
	Source Address
	Reason ExitReason
}

func (l *linkAttachable) ActorExited(reason ExitReason) {
	if reason.IsNormal() {
		return
	}
	l.deliver(ExitMessage{Source: l.peer, Reason: reason})
}

func (l *linkAttachable) MatchesDownHandle(addr Address) bool {
	return l.peer.Equal(addr)
}
