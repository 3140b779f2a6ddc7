// Package ctrlblock implements the control block at the core of the
// deferred-reclamation engine: the record that owns a handle's payload and
// its atomic strong-reference count.
//
// A Block is one of three variants (Inline, Boxed, Array), matching the
// three storage shapes a handle may adopt. Destroying a Block invokes the
// payload's destroy hook (if it implements Destroyable) and releases the
// Block's hold on the payload so the Go garbage collector can reclaim the
// backing memory; see SPEC_FULL.md section 3 for why "destruction" in this
// engine means "run the destroy hook," not "free memory" directly.
package ctrlblock

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Width constrains the atomic counter's nominal bit width, using
// constraints.Unsigned from the same constraints package whose Ordered
// bound catrate's ringBuffer uses for its elements. Go's sync/atomic package has no
// Uint8/Uint16 atomic primitives, so the counter is always backed by a
// uint64 internally; Width still governs the saturation ceiling used to
// catch runaway fan-out early, which is the practical value the original
// design gets from a narrow counter.
type Width interface {
	constraints.Unsigned
}

func maxOf[C Width]() uint64 {
	var v C
	switch any(v).(type) {
	case uint8:
		return math.MaxUint8
	case uint16:
		return math.MaxUint16
	case uint32:
		return math.MaxUint32
	default:
		return math.MaxUint64
	}
}

// Destroyable is implemented by payload types that need explicit cleanup
// (closing a file descriptor, releasing an external resource) beyond what
// the Go garbage collector does automatically.
type Destroyable interface {
	Destroy()
}

// Kind identifies which of the three storage variants a Block uses.
type Kind uint8

const (
	// KindInline embeds the payload directly in the Block: the common case
	// of "construct a new T behind a handle."
	KindInline Kind = iota
	// KindBoxed wraps an externally allocated *T.
	KindBoxed
	// KindArray wraps an externally allocated, or from-init-copied, []T.
	KindArray
)

// Block is the polymorphic control block: owner of the payload and the
// atomic strong count. T is the payload element type; C selects the
// counter's nominal width.
type Block[T any, C Width] struct {
	kind      Kind
	inline    T
	ptr       *T
	arr       []T
	count     counter[C]
	destroyed bool
}

// NewInline constructs a Block owning v directly, with counter = 1.
func NewInline[T any, C Width](v T) *Block[T, C] {
	b := &Block[T, C]{kind: KindInline, inline: v}
	b.count.reset(1)
	return b
}

// NewBoxed constructs a Block adopting an externally allocated ptr, with
// counter = 1. Panics if ptr is nil.
func NewBoxed[T any, C Width](ptr *T) *Block[T, C] {
	if ptr == nil {
		panic("ctrlblock: NewBoxed given a nil pointer")
	}
	b := &Block[T, C]{kind: KindBoxed, ptr: ptr}
	b.count.reset(1)
	return b
}

// NewArray constructs a Block owning items as an array payload, with
// counter = 1. A nil or empty items is permitted (spec's zero-length
// RefArray boundary case).
func NewArray[T any, C Width](items []T) *Block[T, C] {
	b := &Block[T, C]{kind: KindArray, arr: items}
	b.count.reset(1)
	return b
}

// Kind reports which storage variant this Block uses.
func (b *Block[T, C]) Kind() Kind { return b.kind }

// Retain atomically increments the strong count. Asserts (panics) if the
// configured width C would overflow.
func (b *Block[T, C]) Retain() { b.count.inc() }

// Release atomically decrements the strong count and reports whether it
// reached zero, i.e. whether the caller was the terminating handle.
func (b *Block[T, C]) Release() (terminal bool) { return b.count.dec() }

// Len returns the length of the array payload. Panics for non-array Blocks.
func (b *Block[T, C]) Len() int {
	if b.kind != KindArray {
		panic("ctrlblock: Len called on a non-array block")
	}
	return len(b.arr)
}

// Payload returns a pointer to the scalar payload (Inline or Boxed).
// Panics for KindArray or after Destroy.
func (b *Block[T, C]) Payload() *T {
	if b.destroyed {
		panic("ctrlblock: Payload called on a destroyed block")
	}
	switch b.kind {
	case KindInline:
		return &b.inline
	case KindBoxed:
		return b.ptr
	default:
		panic("ctrlblock: Payload called on an array block")
	}
}

// At returns a pointer to the array element at i, with bounds checking.
// Panics for non-array Blocks or after Destroy.
func (b *Block[T, C]) At(i int) *T {
	if b.destroyed {
		panic("ctrlblock: At called on a destroyed block")
	}
	if b.kind != KindArray {
		panic("ctrlblock: At called on a non-array block")
	}
	return &b.arr[i]
}

// AtUnchecked is a thin wrapper over At. The "unchecked" name documents
// intent for callers migrating from the reference implementation's
// unchecked accessor - Go slice indexing cannot skip its bounds check
// without an unsafe escape hatch, so this still panics on out-of-range.
func (b *Block[T, C]) AtUnchecked(i int) *T { return b.At(i) }

// Range iterates the array payload in order, stopping early if fn returns
// false. Panics for non-array Blocks.
func (b *Block[T, C]) Range(fn func(i int, v *T) bool) {
	if b.kind != KindArray {
		panic("ctrlblock: Range called on a non-array block")
	}
	for i := range b.arr {
		if !fn(i, &b.arr[i]) {
			return
		}
	}
}

// Destroy invokes the payload's destroy hook, if any, then releases the
// Block's references to the payload. Idempotent: a second call is a no-op.
// Required to never panic to its caller; the Destroyer layer above is
// responsible for catching a panicking user destroy hook (see
// internal/destroyer), so this method itself does not recover - it is only
// ever invoked through that boundary.
func (b *Block[T, C]) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true

	switch b.kind {
	case KindInline:
		if d, ok := any(&b.inline).(Destroyable); ok {
			d.Destroy()
		}
		var zero T
		b.inline = zero
	case KindBoxed:
		if d, ok := any(b.ptr).(Destroyable); ok {
			d.Destroy()
		}
		b.ptr = nil
	case KindArray:
		for i := range b.arr {
			if d, ok := any(&b.arr[i]).(Destroyable); ok {
				d.Destroy()
			}
		}
		b.arr = nil
	}
}

// counter is the atomic strong-reference counter, generic over its nominal
// width C for saturation checking. The backing storage is always a uint64,
// because sync/atomic has no narrower atomic integer types; see Width's
// doc comment.
type counter[C Width] struct {
	n atomicCounter
}

func (c *counter[C]) reset(initial uint64) { c.n.store(initial) }

func (c *counter[C]) inc() {
	n := c.n.add(1)
	if n > maxOf[C]() {
		panic("ctrlblock: strong count overflowed the configured counter width")
	}
}

// dec decrements the counter and reports whether it reached zero.
func (c *counter[C]) dec() (terminal bool) {
	n := c.n.add(^uint64(0)) // -1
	return n == 0
}

func (c *counter[C]) load() uint64 { return c.n.load() }
