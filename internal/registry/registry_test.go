package registry

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/go-reclaim/internal/destroyer"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestDelegateBeforeStartRunsSynchronously(t *testing.T) {
	r := New(nil)
	var n int32
	p := r.NewProducer()
	p.Delegate(destroyer.New(func() { atomic.AddInt32(&n, 1) }))
	require.Equal(t, int32(1), n)
}

// TestStartDrainsOnTick uses the timeNewTicker/timeNow seam (mirroring
// catrate's TestLimiter_worker) to drive the worker off a fake ticker
// channel instead of a real timer, so the drain is deterministic rather than
// a race against wall-clock sleeps.
func TestStartDrainsOnTick(t *testing.T) {
	oldTimeNow := timeNow
	defer func() { timeNow = oldTimeNow }()
	oldTimeNewTicker := timeNewTicker
	defer func() { timeNewTicker = oldTimeNewTicker }()

	tickerC := make(chan time.Time, 1)
	timeNewTicker = func(d time.Duration) *time.Ticker {
		tk := time.NewTicker(d)
		tk.C = tickerC
		return tk
	}
	fakeNow := time.Unix(100, 0)
	timeNow = func() time.Time { return fakeNow }

	r := New(nil)
	require.NoError(t, r.Start(time.Hour)) // never fires on its own; only tickerC drives it
	defer r.Shutdown()

	var n int32
	p := r.NewProducer()
	p.Delegate(destroyer.New(func() { atomic.AddInt32(&n, 1) }))

	tickerC <- time.Unix(101, 0)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&n) == 1
	}, time.Second, time.Millisecond)
	require.Equal(t, fakeNow, r.LastRunAt())
}

func TestDoubleStartIsIdempotent(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Start(50*time.Millisecond))
	defer r.Shutdown()
	require.ErrorIs(t, r.Start(50*time.Millisecond), ErrAlreadyStarted)
}

func TestSuggestRunWakesWorker(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Start(time.Hour)) // long period: only SuggestRun should trigger a drain
	defer r.Shutdown()

	var n int32
	p := r.NewProducer()
	p.Delegate(destroyer.New(func() { atomic.AddInt32(&n, 1) }))

	require.NoError(t, r.SuggestRun())
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&n) == 1
	}, time.Second, time.Millisecond)
}

// TestPauseResume also drives the worker off the fake ticker seam, so a
// tick arriving while paused is provably a no-op rather than something that
// merely didn't happen to land within a sleep window.
func TestPauseResume(t *testing.T) {
	oldTimeNewTicker := timeNewTicker
	defer func() { timeNewTicker = oldTimeNewTicker }()

	tickerC := make(chan time.Time, 1)
	timeNewTicker = func(d time.Duration) *time.Ticker {
		tk := time.NewTicker(d)
		tk.C = tickerC
		return tk
	}

	r := New(nil)
	require.NoError(t, r.Start(time.Hour))
	defer r.Shutdown()

	require.NoError(t, r.Pause())
	require.True(t, r.IsPaused())

	var n int32
	p := r.NewProducer()
	p.Delegate(destroyer.New(func() { atomic.AddInt32(&n, 1) }))

	tickerC <- time.Now()
	require.Never(t, func() bool {
		return atomic.LoadInt32(&n) == 1
	}, 50*time.Millisecond, time.Millisecond, "paused worker must not drain")

	require.NoError(t, r.Resume())
	require.False(t, r.IsPaused())

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&n) == 1
	}, time.Second, time.Millisecond)
}

func TestShutdownDrainsEverythingAndIsIdempotent(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Start(time.Hour))

	var n int32
	const count = 1000
	p := r.NewProducer()
	for i := 0; i < count; i++ {
		p.Delegate(destroyer.New(func() { atomic.AddInt32(&n, 1) }))
	}

	r.Shutdown()
	require.Equal(t, int32(count), n)

	require.NotPanics(t, func() {
		r.Shutdown() // idempotent
	})
}

func TestPostShutdownDelegateRunsSynchronously(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Start(time.Hour))
	p := r.NewProducer()
	r.Shutdown()

	var n int32
	p.Delegate(destroyer.New(func() { atomic.AddInt32(&n, 1) }))
	require.Equal(t, int32(1), n)
}

func TestConcurrencyStress(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping stress test in -short mode")
	}

	r := New(nil)
	require.NoError(t, r.Start(5*time.Millisecond))

	const workers = 32
	const perWorker = 4096

	var destroyedCount int64
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			p := r.NewProducer()
			defer p.Close()
			for i := 0; i < perWorker; i++ {
				p.Delegate(destroyer.New(func() {
					atomic.AddInt64(&destroyedCount, 1)
				}))
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	r.Shutdown()

	require.Equal(t, int64(workers*perWorker), destroyedCount)
	require.Empty(t, r.pages)
}
