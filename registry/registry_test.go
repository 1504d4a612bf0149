package registry_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/latticeforge/actorcore/nodeid"
	"github.com/latticeforge/actorcore/registry"
)

func TestPutGetErase(t *testing.T) {
	t.Parallel()

	r := registry.New()
	id := r.NextID()
	require.NotZero(t, id)

	node := nodeid.New()
	_, handle := newTestBase(t, id, node)

	r.Put(handle)

	got, ok := r.Get(id)
	require.True(t, ok)
	require.Equal(t, id, got.ID())

	r.Erase(id)
	_, ok = r.Get(id)
	require.False(t, ok)
}

func TestNamedRegistration(t *testing.T) {
	t.Parallel()

	r := registry.New()
	node := nodeid.New()
	_, handle := newTestBase(t, r.NextID(), node)

	r.PutNamed("svc.echo", handle)
	got, ok := r.GetNamed("svc.echo")
	require.True(t, ok)
	require.Equal(t, handle.ID(), got.ID())

	names := r.NamedActors()
	require.Contains(t, names, "svc.echo")

	r.EraseNamed("svc.echo")
	_, ok = r.GetNamed("svc.echo")
	require.False(t, ok)
}

func TestAwaitRunningCountEqual(t *testing.T) {
	t.Parallel()

	r := registry.New()
	r.IncRunning()
	r.IncRunning()

	done := make(chan struct{})
	go func() {
		r.AwaitRunningCountEqual(0)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("await returned before running count reached 0")
	case <-time.After(20 * time.Millisecond):
	}

	r.DecRunning()
	r.DecRunning()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("await did not return after running count reached 0")
	}
}

func TestConcurrentPutErase(t *testing.T) {
	t.Parallel()

	r := registry.New()
	node := nodeid.New()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := r.NextID()
			_, handle := newTestBase(t, id, node)
			r.Put(handle)
			_, ok := r.Get(id)
			require.True(t, ok)
			r.Erase(id)
		}()
	}
	wg.Wait()
}
