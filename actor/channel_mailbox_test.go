package actor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/actorcore/actor"
)

type plainMsg struct {
	actor.BaseMessage
	n int
}

func (plainMsg) MessageType() string { return "plain" }

func TestChannelMailboxPriorityBeforeNormal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mb := actor.NewChannelMailbox[plainMsg, any](ctx, 4)

	require.True(t, mb.TrySend(actor.MailboxElement[plainMsg, any]{
		Mid:     actor.NewMessageID(false, false),
		Payload: plainMsg{n: 1},
	}))
	require.True(t, mb.TrySend(actor.MailboxElement[plainMsg, any]{
		Mid:     actor.NewMessageID(false, true),
		Payload: plainMsg{n: 2},
	}))

	recvCtx, cancel := context.WithCancel(context.Background())
	var seen []int
	for elem := range mb.Receive(recvCtx) {
		seen = append(seen, elem.Payload.n)
		if len(seen) == 2 {
			cancel()
		}
	}

	require.Equal(t, []int{2, 1}, seen, "a high-priority element must be delivered before an already-queued normal one")
}

func TestChannelMailboxCloseThenDrain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mb := actor.NewChannelMailbox[plainMsg, any](ctx, 4)

	require.True(t, mb.TrySend(actor.MailboxElement[plainMsg, any]{
		Mid: actor.NewMessageID(false, false), Payload: plainMsg{n: 1},
	}))
	require.True(t, mb.TrySend(actor.MailboxElement[plainMsg, any]{
		Mid: actor.NewMessageID(false, true), Payload: plainMsg{n: 2},
	}))

	mb.Close()
	require.True(t, mb.IsClosed())
	require.False(t, mb.TrySend(actor.MailboxElement[plainMsg, any]{
		Mid: actor.NewMessageID(false, false), Payload: plainMsg{n: 3},
	}), "sending to a closed mailbox must fail")

	var drained []int
	for elem := range mb.Drain() {
		drained = append(drained, elem.Payload.n)
	}
	require.Equal(t, []int{2, 1}, drained)
}

func TestChannelMailboxSendRespectsCallerContextCancellation(t *testing.T) {
	t.Parallel()

	actorCtx := context.Background()
	mb := actor.NewChannelMailbox[plainMsg, any](actorCtx, 0)
	require.True(t, mb.TrySend(actor.MailboxElement[plainMsg, any]{
		Mid: actor.NewMessageID(false, false), Payload: plainMsg{n: 1},
	}), "capacity 0 defaults to a buffer of 1")

	callerCtx, cancel := context.WithCancel(context.Background())
	cancel()

	ok := mb.Send(callerCtx, actor.MailboxElement[plainMsg, any]{
		Mid: actor.NewMessageID(false, false), Payload: plainMsg{n: 2},
	})
	require.False(t, ok, "Send must fail once the caller's context is already cancelled")
}

func TestChannelMailboxReceiveStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mb := actor.NewChannelMailbox[plainMsg, any](ctx, 2)

	recvCtx, cancel := context.WithCancel(context.Background())
	cancel()

	count := 0
	for range mb.Receive(recvCtx) {
		count++
	}
	require.Zero(t, count)
}
