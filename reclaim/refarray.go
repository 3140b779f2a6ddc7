package reclaim

import (
	"github.com/joeycumines/go-reclaim/internal/ctrlblock"
	"github.com/joeycumines/go-reclaim/internal/destroyer"
	"github.com/joeycumines/go-reclaim/internal/registry"
)

// RefArray is a shared-ownership handle to a fixed-length array of T,
// otherwise identical in contract to Ref - see its doc comment for the
// copy/Clone caveat.
type RefArray[T any, C ctrlblock.Width] struct {
	block    *ctrlblock.Block[T, C]
	reg      *registry.Registry
	producer *registry.Producer
}

// RefArray32 is the ergonomic default: a RefArray with a 32-bit strong
// count.
type RefArray32[T any] = RefArray[T, uint32]

// RefArray64 selects a 64-bit strong count.
type RefArray64[T any] = RefArray[T, uint64]

// NewArray constructs a new RefArray32 owning a freshly allocated array of
// the given length, with counter = 1. A length of 0 is permitted (spec's
// zero-length RefArray boundary case).
func NewArray[T any](length int) *RefArray32[T] {
	return NewArrayIn[T, uint32](defaultRegistry, make([]T, length))
}

// NewArrayFrom constructs a new RefArray32 by copying items into a freshly
// allocated backing array it then owns - the caller's items slice is left
// untouched and unreferenced.
func NewArrayFrom[T any](items []T) *RefArray32[T] {
	cp := make([]T, len(items))
	copy(cp, items)
	return NewArrayIn[T, uint32](defaultRegistry, cp)
}

// NewArrayIn is NewArray against an explicit registry, adopting items
// directly (no defensive copy) - used by NewArray/NewArrayFrom, and
// available directly for callers constructing the backing slice themselves.
func NewArrayIn[T any, C ctrlblock.Width](reg *registry.Registry, items []T) *RefArray[T, C] {
	return &RefArray[T, C]{block: ctrlblock.NewArray[T, C](items), reg: reg}
}

// WithProducer binds r to an explicit *registry.Producer; see
// Ref.WithProducer.
func (r *RefArray[T, C]) WithProducer(p *registry.Producer) *RefArray[T, C] {
	r.producer = p
	return r
}

// Clone atomically increments the strong count and returns a new handle
// value sharing the same block. Panics if r is empty.
func (r *RefArray[T, C]) Clone() *RefArray[T, C] {
	r.checkNotEmpty()
	r.block.Retain()
	return &RefArray[T, C]{block: r.block, reg: r.reg, producer: r.producer}
}

// Len returns the array's length. Panics if r is empty.
func (r *RefArray[T, C]) Len() int {
	r.checkNotEmpty()
	return r.block.Len()
}

// At returns a pointer to the element at index i, bounds-checked. Panics if
// r is empty or i is out of range.
func (r *RefArray[T, C]) At(i int) *T {
	r.checkNotEmpty()
	return r.block.At(i)
}

// AtUnchecked is the "unchecked" variant from spec section 4.7: a thin
// wrapper over At, provided for callers migrating from the reference
// implementation's unchecked accessor. Go slice indexing cannot skip its
// bounds check without an unsafe escape hatch, so this still panics if r is
// empty or i is out of range - the name documents intent, not a removed
// check.
func (r *RefArray[T, C]) AtUnchecked(i int) *T {
	r.checkNotEmpty()
	return r.block.AtUnchecked(i)
}

// Range iterates the array's elements in order, stopping early if fn
// returns false. Panics if r is empty. A zero-length RefArray invokes fn
// zero times.
func (r *RefArray[T, C]) Range(fn func(i int, v *T) bool) {
	r.checkNotEmpty()
	r.block.Range(fn)
}

// Empty reports whether r has already been dropped (or is the zero value).
func (r *RefArray[T, C]) Empty() bool { return r.block == nil }

// Drop atomically decrements the strong count, delegating the block to the
// ingress on the terminating decrement. A no-op if r is already empty.
func (r *RefArray[T, C]) Drop() {
	if r.block == nil {
		return
	}
	block := r.block
	r.block = nil

	if !block.Release() {
		return
	}

	d := destroyer.New(block.Destroy)
	if r.producer != nil {
		r.producer.Delegate(d)
		return
	}
	r.reg.DelegateDefault(d)
}

func (r *RefArray[T, C]) checkNotEmpty() {
	if r.block == nil {
		panic("reclaim: use of an empty RefArray")
	}
}
