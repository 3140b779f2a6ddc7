package ctrlblock

import "sync/atomic"

// atomicCounter wraps atomic.Uint64, giving the decrement-to-zero operation
// the acquire/release ordering spec section 4.6 and 5 require: the writer
// that takes the count to zero must observe every prior write to the
// payload, which Go's atomic.Uint64 (sequentially consistent) guarantees.
type atomicCounter struct {
	v atomic.Uint64
}

func (a *atomicCounter) store(n uint64) { a.v.Store(n) }

func (a *atomicCounter) add(delta uint64) uint64 { return a.v.Add(delta) }

func (a *atomicCounter) load() uint64 { return a.v.Load() }
