// Package timer provides one-shot timer scheduling with hardware abstraction.
// The real implementation uses time.AfterFunc.
// The fake implementation gives tests a manually advanced clock.
package timer

import "time"

// Handle is a cancellable reference to a scheduled callback.
type Handle interface {
	// Cancel stops the callback from firing.
	// Canceling an already-fired or already-canceled handle is a no-op.
	Cancel()
}

// Scheduler schedules callbacks and reports the current time.
type Scheduler interface {
	// AfterFunc runs fn once after delay d and returns a cancellable handle.
	AfterFunc(d time.Duration, fn func()) Handle

	// Now returns the scheduler's current time.
	Now() time.Time
}
