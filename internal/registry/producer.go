package registry

import (
	"sync/atomic"

	"github.com/joeycumines/go-reclaim/internal/destroyer"
	"github.com/joeycumines/go-reclaim/internal/pagebuf"
)

// Producer is this repo's adaptation of spec section 4.4's thread-local
// ingress. Go cannot hook goroutine exit the way a C++ thread_local
// object's destructor can, so a Producer's lifetime is explicit: obtain one
// per long-lived goroutine and Close it when that goroutine is done, or use
// DelegateDefault (below) for the common case of a short-lived or unknown
// producer, which checks a Producer out of a pool for the duration of a
// single delegate call. See SPEC_FULL.md section 4.4 for the full
// rationale.
type Producer struct {
	reg    *Registry
	page   *pagebuf.Page
	closed atomic.Bool
}

// NewProducer creates a new Page, registers it, and returns a Producer
// bound to it. Mirrors spec 4.4's "on first call, construct a Page, lock
// the registry, register &page, unlock."
func (r *Registry) NewProducer() *Producer {
	return r.newProducerLocked()
}

func (r *Registry) newProducerLocked() *Producer {
	page := pagebuf.New(&r.logger)
	r.register(page)
	return &Producer{reg: r, page: page}
}

// Delegate queues d on this producer's page, or - once Close has been
// called - destroys it synchronously, since a closed Producer's page is no
// longer registered for draining.
func (p *Producer) Delegate(d destroyer.D) {
	if p.closed.Load() {
		d.Destroy()
		return
	}
	p.reg.Delegate(p.page, d)
}

// Close deregisters and drains this producer's page, matching spec 4.4's
// "on thread exit... deregister; then destroy the page (which drains it
// under its own lock)." Idempotent.
func (p *Producer) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.reg.deregister(p.page)
	p.page.Clear()
}

// pooledProducer checks out a Producer for exactly one delegate call. Safe
// under concurrent use from many goroutines: sync.Pool never hands the same
// instance to two concurrent Gets, and Page.Add is independently
// mutex-guarded regardless.
func (r *Registry) pooledProducer() *Producer {
	return r.producerPool.Get().(*Producer)
}

func (r *Registry) releaseProducer(p *Producer) {
	r.producerPool.Put(p)
}

// DelegateDefault is the package-level drop path's ingress: it checks out a
// pooled Producer, delegates d, and returns the Producer to the pool. This
// is the adapted equivalent of spec 4.4's "each thread that ever releases
// the last reference to a handle lazily creates its own page" for handles
// that don't carry an explicit *Producer.
func (r *Registry) DelegateDefault(d destroyer.D) {
	p := r.pooledProducer()
	p.Delegate(d)
	r.releaseProducer(p)
}
