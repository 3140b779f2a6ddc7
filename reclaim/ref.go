package reclaim

import (
	"github.com/joeycumines/go-reclaim/internal/ctrlblock"
	"github.com/joeycumines/go-reclaim/internal/destroyer"
	"github.com/joeycumines/go-reclaim/internal/registry"
)

// Ref is a shared-ownership handle to a single T, backed by a control block
// whose destruction is deferred to the reclamation worker. C selects the
// nominal width of the atomic strong count (see internal/ctrlblock.Width);
// most callers should use the Ref32/Ref64 aliases or the New/FromRaw
// constructors, which default to C = uint32.
//
// A Ref must not be copied by value after construction - copying the struct
// aliases the same block without incrementing the count, silently violating
// the shared-ownership contract. Use Clone.
type Ref[T any, C ctrlblock.Width] struct {
	block    *ctrlblock.Block[T, C]
	reg      *registry.Registry
	producer *registry.Producer
}

// Ref32 is the ergonomic default: a Ref with a 32-bit strong count, ample
// for any fan-out short of four billion live clones of one block.
type Ref32[T any] = Ref[T, uint32]

// Ref64 selects a 64-bit strong count, for handles expected to be cloned
// at extreme fan-out.
type Ref64[T any] = Ref[T, uint64]

// New constructs a new Ref32 owning v inline, with counter = 1, delegating
// to the package-level default registry on drop.
func New[T any](v T) *Ref32[T] { return NewIn[T, uint32](defaultRegistry, v) }

// NewIn is New, against an explicit registry - primarily useful for tests
// that want an isolated worker instance.
func NewIn[T any, C ctrlblock.Width](reg *registry.Registry, v T) *Ref[T, C] {
	return &Ref[T, C]{block: ctrlblock.NewInline[T, C](v), reg: reg}
}

// FromRaw wraps an externally allocated *T in a new Ref32, with counter = 1.
// Panics if ptr is nil.
func FromRaw[T any](ptr *T) *Ref32[T] { return FromRawIn[T, uint32](defaultRegistry, ptr) }

// FromRawIn is FromRaw against an explicit registry.
func FromRawIn[T any, C ctrlblock.Width](reg *registry.Registry, ptr *T) *Ref[T, C] {
	return &Ref[T, C]{block: ctrlblock.NewBoxed[T, C](ptr), reg: reg}
}

// WithProducer binds r to an explicit *registry.Producer, so its drop path
// delegates to that producer's page directly rather than the pooled
// default. Useful for a long-lived goroutine that wants genuine
// per-goroutine ingress (no pool contention); see SPEC_FULL.md section 4.4.
func (r *Ref[T, C]) WithProducer(p *registry.Producer) *Ref[T, C] {
	r.producer = p
	return r
}

// Clone atomically increments the strong count and returns a new handle
// value sharing the same block. Panics if r is empty (post-Drop, or the
// zero value).
func (r *Ref[T, C]) Clone() *Ref[T, C] {
	r.checkNotEmpty()
	r.block.Retain()
	return &Ref[T, C]{block: r.block, reg: r.reg, producer: r.producer}
}

// Get returns a pointer to the payload. Panics if r is empty.
func (r *Ref[T, C]) Get() *T {
	r.checkNotEmpty()
	return r.block.Payload()
}

// Empty reports whether r has already been dropped (or is the zero value).
func (r *Ref[T, C]) Empty() bool { return r.block == nil }

// Drop atomically decrements the strong count. If this was the terminating
// decrement, the block is handed to the ingress as a destroyer.D - either
// this Ref's bound Producer, or the pooled ingress of the registry this Ref
// was constructed against (the default registry for New/FromRaw). A
// no-op if r is already empty.
func (r *Ref[T, C]) Drop() {
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

func (r *Ref[T, C]) checkNotEmpty() {
	if r.block == nil {
		panic("reclaim: use of an empty Ref")
	}
}
