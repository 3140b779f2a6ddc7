package pagebuf

import (
	"sync"
	"testing"

	"github.com/joeycumines/go-reclaim/internal/destroyer"
	"github.com/stretchr/testify/require"
)

func TestAddAndClearDestroysEverything(t *testing.T) {
	p := New(nil)
	require.True(t, p.Empty())

	var n int
	const count = 100
	for i := 0; i < count; i++ {
		p.Add(destroyer.New(func() { n++ }))
	}
	require.Equal(t, count, p.Size())
	require.False(t, p.Empty())

	p.Clear()
	require.Equal(t, count, n)
	require.True(t, p.Empty())
}

func TestClearCompactsToOneSegment(t *testing.T) {
	p := New(nil)
	for i := 0; i < Capacity+1; i++ {
		p.Add(destroyer.New(func() {}))
	}
	require.Equal(t, Capacity+1, p.Size())
	require.Equal(t, 2, len(p.segments))

	p.Clear()
	require.Equal(t, 1, len(p.segments))
	require.Equal(t, 0, p.Size())
}

// TestOverflowBoundaryIsTransparent verifies that appending the
// Capacity+1-th item works with no observable difference to the caller -
// spec section 8's boundary behavior.
func TestOverflowBoundaryIsTransparent(t *testing.T) {
	p := New(nil)
	var destroyedCount int
	for i := 0; i < Capacity+1; i++ {
		p.Add(destroyer.New(func() { destroyedCount++ }))
	}
	require.Equal(t, Capacity+1, p.Size())
	p.Clear()
	require.Equal(t, Capacity+1, destroyedCount)
}

// TestConcurrentAddIsLinearizableWithClear exercises many goroutines
// appending concurrently, then calls Clear once after they have all
// finished: every Destroyer added before that Clear call has run by the
// time Clear returns, and none of the concurrent appends is lost.
func TestConcurrentAddIsLinearizableWithClear(t *testing.T) {
	p := New(nil)

	var mu sync.Mutex
	total := 0

	var wg sync.WaitGroup
	const producers = 16
	const perProducer = 2000
	wg.Add(producers)
	for i := 0; i < producers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				p.Add(destroyer.New(func() {
					mu.Lock()
					total++
					mu.Unlock()
				}))
			}
		}()
	}
	wg.Wait()

	p.Clear()
	require.Equal(t, producers*perProducer, total)
	require.True(t, p.Empty())
}
