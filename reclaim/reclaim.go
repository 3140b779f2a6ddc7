package reclaim

import (
	"time"

	"github.com/joeycumines/go-reclaim/internal/registry"
)

// defaultRegistry backs the package-level lifecycle API and the handle
// constructors that don't take an explicit *registry.Registry (New,
// FromRaw, NewArray, NewArrayFrom). Tests and callers that want an isolated
// instance should use NewIn/FromRawIn/etc. against their own
// registry.New(nil).
var defaultRegistry = registry.New(nil)

// Start spawns the background reclamation worker with the given wake
// period; 0 (or any non-positive value) selects registry.DefaultPeriod.
// Idempotent: a second call returns registry.ErrAlreadyStarted without
// spawning a second worker, per spec section 7.
func Start(period time.Duration) error { return defaultRegistry.Start(period) }

// SuggestRun wakes the worker if it is currently waiting; a no-op
// otherwise, including while paused.
func SuggestRun() error { return defaultRegistry.SuggestRun() }

// Pause prevents the worker from draining pages on its next wake, without
// waiting for any in-flight run to finish.
func Pause() error { return defaultRegistry.Pause() }

// Resume clears the paused flag and wakes the worker.
func Resume() error { return defaultRegistry.Resume() }

// IsPaused reports the current paused flag.
func IsPaused() bool { return defaultRegistry.IsPaused() }

// Shutdown stops the worker and performs a final drain of every registered
// page, freeing every block still pending reclamation. Idempotent.
func Shutdown() { defaultRegistry.Shutdown() }

// RunCount returns the number of completed reclamation runs. Diagnostic
// only.
func RunCount() uint64 { return defaultRegistry.RunCount() }
