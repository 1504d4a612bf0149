package actor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/actorcore/actor"
)

func TestNewMessageIDFlags(t *testing.T) {
	t.Parallel()

	tell := actor.NewMessageID(false, false)
	require.True(t, tell.Valid())
	require.False(t, tell.IsRequest())
	require.False(t, tell.IsHighPriority())
	require.False(t, tell.IsAnswered())

	ask := actor.NewMessageID(true, true)
	require.True(t, ask.IsRequest())
	require.True(t, ask.IsHighPriority())
}

func TestMessageIDSequenceIncreasesMonotonically(t *testing.T) {
	t.Parallel()

	a := actor.NewMessageID(false, false)
	b := actor.NewMessageID(false, false)

	require.Less(t, a.Sequence(), b.Sequence())
}

func TestMarkAnsweredAndResponseID(t *testing.T) {
	t.Parallel()

	req := actor.NewMessageID(true, false)
	require.False(t, req.IsAnswered())

	answered := req.MarkAnswered()
	require.True(t, answered.IsAnswered())
	require.True(t, answered.IsRequest(), "marking answered must not clear the request bit")

	resp := req.ResponseID()
	require.False(t, resp.IsRequest())
	require.True(t, resp.IsAnswered(), "a response id must carry the answered bit")
	require.Equal(t, req.Sequence(), resp.Sequence())
}
