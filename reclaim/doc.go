// Package reclaim provides Ref and RefArray, shared-ownership handles whose
// backing control block is destroyed not at the instant the last handle
// drops, but asynchronously by a background reclamation worker - amortizing
// destructor cost off the dropping goroutine's critical path and batching
// reclamation across many short-lived objects in highly concurrent
// workloads.
//
// # Lifecycle
//
// Start the background worker once, typically at process startup:
//
//	reclaim.Start(0) // 0 selects the default ~200ms period
//	defer reclaim.Shutdown()
//
// Handles work without a running worker too: every Drop whose terminating
// decrement happens while the worker is stopped (never started, or already
// shut down) destroys its control block synchronously, on the dropping
// goroutine, rather than losing the destruction - see SPEC_FULL.md section
// 4.8.
//
// # What this engine does not do
//
// No cycle collection - handles holding each other in a cycle leak. No weak
// references. No moving or compacting allocator. No real-time bound on
// reclamation latency. No cross-process or persistent state. See
// SPEC_FULL.md section 1.
package reclaim
