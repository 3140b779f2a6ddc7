package reclaim

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/go-reclaim/internal/registry"
	"github.com/stretchr/testify/require"
)

// S6, adapted for Go: a short-lived goroutine constructs one handle and
// exits without the reclamation worker ever running, and without calling
// Shutdown. Go cannot hook goroutine exit the way a C++ thread_local
// object's destructor can (see SPEC_FULL.md section 4.4), so this
// documents the adapted guarantee: the pooled default ingress still
// destroys the payload, because the registry isn't alive yet (never
// started), and Delegate falls back to synchronous destruction in that
// case - not because of any goroutine-exit hook.
func TestShortLivedGoroutineExitsWithoutWorker(t *testing.T) {
	reg := registry.New(nil) // deliberately never Start()ed

	var destructed int64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ref := NewIn[counter, uint32](reg, counter{destructed: &destructed})
		ref.Drop()
	}()
	wg.Wait()

	require.Equal(t, int64(1), atomic.LoadInt64(&destructed))
}

// TestExplicitProducerPerGoroutine exercises the advanced path (a
// long-lived goroutine binding its handles to one explicit *Producer,
// avoiding the pooled default's contention) and confirms Producer.Close
// drains anything still pending.
func TestExplicitProducerPerGoroutine(t *testing.T) {
	reg := registry.New(nil)
	require.NoError(t, reg.Start(time.Hour)) // long period: only Close's drain should run

	p := reg.NewProducer()

	var destructed int64
	const n = 50
	for i := 0; i < n; i++ {
		ref := NewIn[counter, uint32](reg, counter{destructed: &destructed}).WithProducer(p)
		ref.Drop()
	}

	require.Equal(t, int64(0), atomic.LoadInt64(&destructed), "worker period hasn't elapsed yet")

	p.Close()
	require.Equal(t, int64(n), atomic.LoadInt64(&destructed), "Close must drain its page")

	reg.Shutdown()
}
