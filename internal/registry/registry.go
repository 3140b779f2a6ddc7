// Package registry implements the global page registry and the background
// reclamation worker: the process-wide state that periodically drains every
// registered Page. See SPEC_FULL.md sections 4.4, 4.5 and 6.
//
// The worker's wait/wake loop is grounded in catrate.Limiter.worker (a
// lazily-started background goroutine gated by a CompareAndSwap flag,
// waiting on a ticker) and in microbatch.Batcher.run (a select-driven loop
// juggling a timeout, an explicit wake signal, and a stop signal, with a
// sync.Once-guarded, idempotent stop). Go has no condition variable
// equivalent to a blocking wait-with-timeout-and-notify primitive as
// convenient as select-over-channels, so the spec's "collector condition
// variable" becomes a buffered size-1 "wake" channel: sends are
// non-blocking (a pending wake coalesces with one already queued), which is
// exactly the semantics spec 4.5's suggest_run wants ("notifies... no-op
// otherwise").
package registry

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-reclaim/internal/destroyer"
	"github.com/joeycumines/go-reclaim/internal/pagebuf"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultPeriod is the worker's nominal wake interval when Start is called
// with a non-positive period, matching the reference implementation's
// 200-250ms band (spec section 4.5).
const DefaultPeriod = 200 * time.Millisecond

// timeNow and timeNewTicker are package vars so tests can substitute
// deterministic stand-ins for the worker's timing, mirroring catrate's
// timeNow/timeNewTicker seam.
var (
	timeNow       = time.Now
	timeNewTicker = time.NewTicker
)

var (
	// ErrAlreadyStarted is returned by every call to Start after the first,
	// including calls made after Shutdown (a Registry's worker is never
	// restarted). Per spec section 7, double-start remains an
	// idempotent no-op regardless: callers may ignore this error.
	ErrAlreadyStarted = errors.New("registry: already started")

	// ErrNotStarted is returned by SuggestRun, Pause, and Resume when
	// called before any successful Start. It is a diagnostic, not a
	// correctness signal - none of those operations are required to
	// succeed before Start per spec.
	ErrNotStarted = errors.New("registry: not started")
)

// Config models optional construction parameters for New, following the
// corpus's zero-value-means-default convention (see longpoll.ChannelConfig
// and microbatch.BatcherConfig).
type Config struct {
	// Logger receives structured lifecycle events (worker start/stop, run
	// counts, overflow fallbacks). Defaults to the global zerolog logger if
	// nil.
	Logger *zerolog.Logger
}

// Registry holds every live Page plus the synchronization primitives and
// flags driving the background reclamation worker.
type Registry struct {
	logger zerolog.Logger

	mu    sync.RWMutex
	pages []*pagebuf.Page

	producerPool sync.Pool

	alive     atomic.Bool
	paused    atomic.Bool
	runCount  atomic.Uint64
	lastRunNs atomic.Int64

	period    time.Duration
	wake      chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// New constructs a Registry. cfg may be nil.
func New(cfg *Config) *Registry {
	r := &Registry{}
	if cfg != nil && cfg.Logger != nil {
		r.logger = *cfg.Logger
	} else {
		r.logger = log.Logger
	}
	r.producerPool.New = func() any { return r.newProducerLocked() }
	return r
}

// Start spawns the background worker with the given period (DefaultPeriod
// if period <= 0). Idempotent: a second call returns ErrAlreadyStarted and
// does not spawn a second worker.
func (r *Registry) Start(period time.Duration) error {
	if period <= 0 {
		period = DefaultPeriod
	}

	started := false
	r.startOnce.Do(func() {
		started = true
		r.period = period
		r.wake = make(chan struct{}, 1)
		r.done = make(chan struct{})
		r.paused.Store(false)
		r.alive.Store(true)
		r.wg.Add(1)
		go r.run()
		r.logger.Info().Dur("period", period).Msg("reclaim: worker started")
	})
	if !started {
		return ErrAlreadyStarted
	}
	return nil
}

// IsStarted reports whether the worker is currently running. False both
// before Start and after Shutdown.
func (r *Registry) IsStarted() bool { return r.alive.Load() }

// SuggestRun wakes the worker if it is waiting; a no-op if it is already
// about to run, or paused (the wait predicate still requires not-paused).
func (r *Registry) SuggestRun() error {
	if r.wake == nil {
		return ErrNotStarted
	}
	select {
	case r.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pause sets the paused flag. Does not wait for any in-flight run to
// finish; takes effect at the worker's next wait-wake cycle.
func (r *Registry) Pause() error {
	if r.wake == nil {
		return ErrNotStarted
	}
	r.paused.Store(true)
	return nil
}

// Resume clears the paused flag and wakes the worker.
func (r *Registry) Resume() error {
	if r.wake == nil {
		return ErrNotStarted
	}
	r.paused.Store(false)
	select {
	case r.wake <- struct{}{}:
	default:
	}
	return nil
}

// IsPaused reports the current paused flag.
func (r *Registry) IsPaused() bool { return r.paused.Load() }

// RunCount returns the number of completed worker runs, a diagnostic only.
func (r *Registry) RunCount() uint64 { return r.runCount.Load() }

// LastRunAt returns the time of the most recently completed worker run, or
// the zero time if the worker has never run. Diagnostic only.
func (r *Registry) LastRunAt() time.Time {
	ns := r.lastRunNs.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Shutdown stops the worker (if running) and performs a final drain of
// every registered page. Idempotent: a second call is a no-op.
func (r *Registry) Shutdown() {
	r.stopOnce.Do(func() {
		r.paused.Store(false)
		r.alive.Store(false)
		if r.done != nil {
			close(r.done)
		}
		r.wg.Wait()

		r.mu.Lock()
		for _, p := range r.pages {
			p.Clear()
		}
		r.pages = nil
		r.mu.Unlock()

		r.logger.Info().Uint64("runs", r.runCount.Load()).Msg("reclaim: worker shut down, final drain complete")
	})
}

func (r *Registry) run() {
	defer r.wg.Done()

	ticker := timeNewTicker(r.period)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.maybeRun()
		case <-r.wake:
			r.maybeRun()
		}
	}
}

func (r *Registry) maybeRun() {
	if r.paused.Load() {
		return
	}

	// Lock order is always registry-then-page: the shared registry lock is
	// held for the whole iteration, and each page's own mutex (acquired
	// inside Clear) is a leaf - nothing acquires the registry lock while
	// holding a page lock, so this can never deadlock against register or
	// deregister.
	r.mu.RLock()
	for _, p := range r.pages {
		p.Clear()
	}
	r.mu.RUnlock()

	r.runCount.Add(1)
	r.lastRunNs.Store(timeNow().UnixNano())
}

// register adds p to the live-page list under the registry's write lock.
func (r *Registry) register(p *pagebuf.Page) {
	r.mu.Lock()
	r.pages = append(r.pages, p)
	r.mu.Unlock()
}

// deregister removes p from the live-page list under the registry's write
// lock. A no-op if p is not present.
func (r *Registry) deregister(p *pagebuf.Page) {
	r.mu.Lock()
	for i, q := range r.pages {
		if q == p {
			r.pages = append(r.pages[:i], r.pages[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
}

// Delegate hands d to p for deferred destruction, unless the registry is
// not alive (never started, or shut down), in which case d is destroyed
// synchronously - per spec 4.8/7, there is no worker left to drain it.
func (r *Registry) Delegate(p *pagebuf.Page, d destroyer.D) {
	if !r.alive.Load() {
		d.Destroy()
		return
	}
	p.Add(d)
}
