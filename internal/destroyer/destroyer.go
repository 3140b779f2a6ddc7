// Package destroyer implements the move-only transport unit that carries
// one control block's destruction obligation from a producer goroutine to
// the reclamation worker (or, on the synchronous fallback path, runs it in
// place). See SPEC_FULL.md section 4.2.
//
// Go has no move constructors, so "armed"/"disarmed" is modeled as a struct
// holding a destroy thunk that gets nilled out on transfer; D deliberately
// exposes no public field, so the only supported way to move ownership is
// Take.
package destroyer

// D owns exactly one pending destruction. The zero value is disarmed.
type D struct {
	fn func()
}

// New returns an armed D wrapping fn, the block's own Destroy. Panics if fn
// is nil - there is never a reason to hand off a no-op obligation.
func New(fn func()) D {
	if fn == nil {
		panic("destroyer: New given a nil destroy func")
	}
	return D{fn: fn}
}

// Armed reports whether d currently owns a pending destruction.
func (d D) Armed() bool { return d.fn != nil }

// Take transfers d's obligation to the returned value and disarms the
// receiver. This is the Go equivalent of a C++ move constructor: the
// caller must not use d's prior obligation again (only the returned value
// owns it now).
func (d *D) Take() D {
	taken := D{fn: d.fn}
	d.fn = nil
	return taken
}

// Destroy runs the owned destroy thunk exactly once, swallowing any panic
// it raises - reclamation must never propagate a user destructor's fault
// to the worker goroutine. A disarmed D is a no-op. Idempotent: a second
// call does nothing, since the thunk is cleared before it runs.
func (d *D) Destroy() {
	fn := d.fn
	d.fn = nil
	if fn == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	fn()
}
