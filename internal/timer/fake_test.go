package timer

import (
	"testing"
	"time"
)

func TestFakeSchedulerFiresInOrder(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewFakeScheduler(start)

	var order []string
	s.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	s.AfterFunc(1*time.Second, func() { order = append(order, "a") })
	s.AfterFunc(2*time.Second, func() { order = append(order, "b") })

	s.Advance(5 * time.Second)

	if len(order) != 3 {
		t.Fatalf("expected 3 firings, got %d", len(order))
	}
	if order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("expected firing order a,b,c, got %v", order)
	}
	if !s.Now().Equal(start.Add(5 * time.Second)) {
		t.Errorf("expected now at +5s, got %v", s.Now())
	}
}

func TestFakeSchedulerClockDuringCallback(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewFakeScheduler(start)

	var seen time.Time
	s.AfterFunc(2*time.Second, func() { seen = s.Now() })

	s.Advance(10 * time.Second)

	// The clock must read the timer's deadline when the callback runs,
	// not the end of the advance window.
	if !seen.Equal(start.Add(2 * time.Second)) {
		t.Errorf("expected callback to see +2s, got %v", seen)
	}
}

func TestFakeSchedulerCancel(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewFakeScheduler(start)

	fired := false
	h := s.AfterFunc(time.Second, func() { fired = true })
	h.Cancel()
	h.Cancel() // idempotent

	s.Advance(2 * time.Second)

	if fired {
		t.Error("canceled timer fired")
	}
	if s.Pending() != 0 {
		t.Errorf("expected 0 pending, got %d", s.Pending())
	}
}

func TestFakeSchedulerRescheduleFromCallback(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewFakeScheduler(start)

	var times []time.Duration
	var rearm func()
	rearm = func() {
		times = append(times, s.Now().Sub(start))
		if len(times) < 3 {
			s.AfterFunc(time.Second, rearm)
		}
	}
	s.AfterFunc(time.Second, rearm)

	s.Advance(10 * time.Second)

	if len(times) != 3 {
		t.Fatalf("expected 3 firings, got %d", len(times))
	}
	for i, want := range []time.Duration{time.Second, 2 * time.Second, 3 * time.Second} {
		if times[i] != want {
			t.Errorf("firing %d: expected %v, got %v", i, want, times[i])
		}
	}
}

func TestFakeSchedulerTieBreaksByRegistration(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewFakeScheduler(start)

	var order []int
	s.AfterFunc(time.Second, func() { order = append(order, 1) })
	s.AfterFunc(time.Second, func() { order = append(order, 2) })

	s.Advance(time.Second)

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("expected registration order 1,2 on equal deadlines, got %v", order)
	}
}

func TestFakeSchedulerNextDeadline(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewFakeScheduler(start)

	if _, ok := s.NextDeadline(); ok {
		t.Error("expected no deadline on empty scheduler")
	}

	s.AfterFunc(5*time.Second, func() {})
	s.AfterFunc(2*time.Second, func() {})

	d, ok := s.NextDeadline()
	if !ok {
		t.Fatal("expected a deadline")
	}
	if !d.Equal(start.Add(2 * time.Second)) {
		t.Errorf("expected earliest deadline +2s, got %v", d)
	}
}
