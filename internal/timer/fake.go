package timer

import (
	"sort"
	"time"
)

// FakeScheduler is a test double with a manually advanced clock.
// Callbacks fire synchronously from Advance, in deadline order, so tests
// are fully deterministic. Not safe for concurrent use.
type FakeScheduler struct {
	now     time.Time
	seq     int
	pending []*fakeTimer
}

type fakeTimer struct {
	deadline time.Time
	seq      int
	fn       func()
	canceled bool
	fired    bool
}

// Cancel marks the timer as canceled. Idempotent.
func (t *fakeTimer) Cancel() {
	t.canceled = true
}

// NewFakeScheduler creates a FakeScheduler starting at the given time.
func NewFakeScheduler(start time.Time) *FakeScheduler {
	return &FakeScheduler{now: start}
}

// Now returns the fake clock's current time.
func (s *FakeScheduler) Now() time.Time {
	return s.now
}

// AfterFunc registers fn to fire when the clock reaches now + d.
func (s *FakeScheduler) AfterFunc(d time.Duration, fn func()) Handle {
	t := &fakeTimer{
		deadline: s.now.Add(d),
		seq:      s.seq,
		fn:       fn,
	}
	s.seq++
	s.pending = append(s.pending, t)
	return t
}

// Advance moves the clock forward by d, firing every due timer in
// (deadline, registration) order. Callbacks may schedule further timers;
// those also fire if they fall due within the advance window.
func (s *FakeScheduler) Advance(d time.Duration) {
	target := s.now.Add(d)
	for {
		next := s.nextDue(target)
		if next == nil {
			break
		}
		if next.deadline.After(s.now) {
			s.now = next.deadline
		}
		next.fired = true
		next.fn()
	}
	s.now = target
}

// AdvanceTo moves the clock forward to the given instant.
func (s *FakeScheduler) AdvanceTo(t time.Time) {
	if t.Before(s.now) {
		return
	}
	s.Advance(t.Sub(s.now))
}

// Pending returns the number of timers that are armed and not yet fired.
func (s *FakeScheduler) Pending() int {
	n := 0
	for _, t := range s.pending {
		if !t.canceled && !t.fired {
			n++
		}
	}
	return n
}

// NextDeadline returns the earliest live deadline and whether one exists.
func (s *FakeScheduler) NextDeadline() (time.Time, bool) {
	live := s.live()
	if len(live) == 0 {
		return time.Time{}, false
	}
	return live[0].deadline, true
}

func (s *FakeScheduler) nextDue(target time.Time) *fakeTimer {
	live := s.live()
	if len(live) == 0 || live[0].deadline.After(target) {
		return nil
	}
	return live[0]
}

func (s *FakeScheduler) live() []*fakeTimer {
	var live []*fakeTimer
	for _, t := range s.pending {
		if !t.canceled && !t.fired {
			live = append(live, t)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		if !live[i].deadline.Equal(live[j].deadline) {
			return live[i].deadline.Before(live[j].deadline)
		}
		return live[i].seq < live[j].seq
	})
	return live
}
