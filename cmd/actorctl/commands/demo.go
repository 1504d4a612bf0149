package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/spf13/cobra"

	"github.com/latticeforge/actorcore/actor"
	"github.com/latticeforge/actorcore/decorator"
	"github.com/latticeforge/actorcore/pool"
	"github.com/latticeforge/actorcore/system"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a short end-to-end exercise of the actor substrate",
	Long: `demo spawns a handful of actors under a managed system, fans
work out to them through a pool and a group, chains two of them with a
sequencer and an adapter, and prints the results as they come back.`,
	RunE: runDemo,
}

// echoMsg is the request every worker in this demo accepts.
type echoMsg struct {
	actor.BaseMessage
	text string
}

func (echoMsg) MessageType() string { return "actorctl.echo" }

// upperResult is the reply a worker sends back — itself a Message, so it
// can be forwarded as the next stage's input by a Sequencer.
type upperResult struct {
	actor.BaseMessage
	text string
}

func (upperResult) MessageType() string { return "actorctl.upper_result" }

type upperBehavior struct{}

func (upperBehavior) Receive(_ context.Context, msg echoMsg) fn.Result[upperResult] {
	return fn.Ok(upperResult{text: strings.ToUpper(msg.text)})
}

// countMsg is the word-counter's own request shape, reached from
// upperResult through an Adapter.
type countMsg struct {
	actor.BaseMessage
	text string
}

func (countMsg) MessageType() string { return "actorctl.word_count" }

type wordCountBehavior struct{}

func (wordCountBehavior) Receive(_ context.Context, msg countMsg) fn.Result[int] {
	return fn.Ok(len(strings.Fields(msg.text)))
}

func runDemo(cmd *cobra.Command, args []string) error {
	sys := system.New(system.DefaultConfig())
	defer sys.Shutdown(context.Background()) //nolint:errcheck

	ctx := context.Background()

	echoPool, _ := pool.New[echoMsg, upperResult](
		sys.Registry().NextID(), sys.Node(), pool.RoundRobin[echoMsg, upperResult](),
	)
	defer func() {
		echoPool.Stop()
		echoPool.Wait()
	}()
	for i := 0; i < 3; i++ {
		ref, handle, err := system.Spawn[echoMsg, upperResult](sys, "", upperBehavior{})
		if err != nil {
			return err
		}
		echoPool.PutWorker(ref, handle)
	}

	fmt.Println("-- pool: round-robin Tell across 3 workers --")
	for i := 0; i < 3; i++ {
		if err := echoPool.Tell(ctx, echoMsg{text: fmt.Sprintf("message %d", i)}); err != nil {
			fmt.Println("tell error:", err)
		}
	}

	fmt.Println("-- pool: Ask returns the first selected worker's reply --")
	res := echoPool.Ask(ctx, echoMsg{text: "hello from the pool"}).Await(ctx)
	if val, err := res.Unpack(); err == nil {
		fmt.Println("pool reply:", val.text)
	}

	fmt.Println("-- group: publish to every subscriber --")
	mgr := system.NewGroupManager[echoMsg](sys)
	room := mgr.Get("demo-room")
	for _, w := range echoPool.Workers() {
		room.Subscribe(w)
	}
	room.Publish(ctx, echoMsg{text: "broadcast to the room"})
	time.Sleep(20 * time.Millisecond)

	fmt.Println("-- sequencer + adapter: uppercase, translate, then count --")
	upperActor, _, err := system.Spawn[echoMsg, upperResult](sys, "", upperBehavior{})
	if err != nil {
		return err
	}
	counterActor, _, err := system.Spawn[countMsg, int](sys, "", wordCountBehavior{})
	if err != nil {
		return err
	}
	toCount := decorator.NewAdapter[upperResult, countMsg, int](counterActor, func(u upperResult) countMsg {
		return countMsg{text: u.text}
	})
	seq := decorator.NewSequencer[echoMsg, upperResult, int](upperActor, toCount)
	seqRes := seq.Ask(ctx, echoMsg{text: "the quick brown fox"}).Await(ctx)
	if words, err := seqRes.Unpack(); err == nil {
		fmt.Println("word count after uppercasing:", words)
	}

	fmt.Println("-- splitter: fan out and collect every reply --")
	splitter := decorator.NewSplitter[echoMsg, upperResult](echoPool.Workers()...)
	splitRes := splitter.Ask(ctx, echoMsg{text: "fan me out"}).Await(ctx)
	if replies, err := splitRes.Unpack(); err == nil {
		texts := make([]string, len(replies))
		for i, r := range replies {
			texts[i] = r.text
		}
		fmt.Println("splitter replies:", texts)
	}

	return nil
}
