package timer

import "time"

// RealScheduler schedules callbacks on the runtime timer heap.
type RealScheduler struct{}

// NewRealScheduler creates a Scheduler backed by time.AfterFunc.
func NewRealScheduler() *RealScheduler {
	return &RealScheduler{}
}

type realHandle struct {
	t *time.Timer
}

// Cancel stops the underlying timer. Safe to call more than once.
func (h *realHandle) Cancel() {
	h.t.Stop()
}

// AfterFunc runs fn on its own goroutine after d.
func (s *RealScheduler) AfterFunc(d time.Duration, fn func()) Handle {
	return &realHandle{t: time.AfterFunc(d, fn)}
}

// Now returns the wall clock time.
func (s *RealScheduler) Now() time.Time {
	return time.Now()
}
