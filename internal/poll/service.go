package poll

import (
	"log"
	"sync"
	"time"

	"github.com/sweeney/gps-poller/internal/events"
	"github.com/sweeney/gps-poller/internal/lease"
	"github.com/sweeney/gps-poller/internal/provider"
	"github.com/sweeney/gps-poller/internal/timer"
)

// Failure descriptions carried by LocationFailed events.
const (
	errNoLocation    = "No location received"
	errServiceDenied = "Location service denied"
)

// Service coordinates the interval and immediate polls against the single
// shared sensor. All state transitions run under one mutex, so finalize and
// arm sequences never interleave; timer callbacks re-enter through the same
// lock.
type Service struct {
	mu sync.Mutex

	opts      Options
	provider  provider.LocationProvider
	publisher events.Publisher
	leases    lease.Manager
	timers    timer.Scheduler

	state     serviceState
	interval  *intervalRequest
	immediate *immediateRequest
	wake      *wakeCycle

	monitoringSignificant bool

	// currentAccuracy is the merged desired accuracy while powered up.
	// It rests at the coarse default when idle.
	currentAccuracy float64

	handles [numTimerRoles]timer.Handle

	counts        EventCounts
	lastFix       *provider.Fix
	startTime     time.Time
	lastHeartbeat time.Time
}

// New creates a Service wired to the given collaborators. Call
// p.SetCallbacks(service) before driving it, so sensor output reaches the
// arbiter.
func New(p provider.LocationProvider, pub events.Publisher, lm lease.Manager, ts timer.Scheduler, opts Options) *Service {
	now := ts.Now()
	return &Service{
		opts:            opts.withDefaults(),
		provider:        p,
		publisher:       pub,
		leases:          lm,
		timers:          ts,
		currentAccuracy: provider.AccuracyThreeKilometers,
		startTime:       now,
		lastHeartbeat:   now,
	}
}

// StartUpdatingLocationWithInterval begins a recurring poll: one bounded
// poll now, then one every interval. A second call replaces the running
// schedule.
func (s *Service) StartUpdatingLocationWithInterval(interval time.Duration, accuracy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearIntervalLocked()
	s.interval = &intervalRequest{
		interval:          interval,
		accuracyThreshold: accuracy,
	}
	s.startIntervalPollLocked()
}

// StopUpdatingLocationWithInterval tears down the recurring poll. The
// sensor powers down unless an immediate poll still holds it.
func (s *Service) StopUpdatingLocationWithInterval() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearIntervalLocked()
	s.maybePowerDownLocked()
}

// GetLocationWithAccuracy runs a single bounded poll. The poll finalizes
// early as soon as a fix at or within the threshold arrives, otherwise on
// timeout. A second call while one is pending restarts the poll with the
// new threshold.
func (s *Service) GetLocationWithAccuracy(accuracy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.immediate = &immediateRequest{accuracyThreshold: accuracy}
	s.state.wantingImmediate = true
	s.powerUpLocked(accuracy)
	s.ensureUpdatingLocked()
	s.armLocked(roleImmediateTimeout, s.opts.LocationUpdateTimeout, s.onImmediateTimeout)
}

// StartMonitoringSignificantLocationChanges enables the sensor's low-power
// significant-change delivery. Fixes delivered while no poll is in flight
// are still ignored by the arbiter.
func (s *Service) StartMonitoringSignificantLocationChanges() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.monitoringSignificant {
		return
	}
	s.monitoringSignificant = true
	s.provider.StartMonitoringSignificant()
}

// StopMonitoringSignificantLocationChanges disables significant-change
// delivery. Request state is untouched.
func (s *Service) StopMonitoringSignificantLocationChanges() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.monitoringSignificant {
		return
	}
	s.monitoringSignificant = false
	s.provider.StopMonitoringSignificant()
}

// OnFixes is the arbiter: it rejects stale fixes and retains, per active
// request, only the most accurate valid candidate. Implements
// provider.Callbacks.
func (s *Service) OnFixes(fixes []provider.Fix) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.wantingImmediate && !s.state.wantingInterval {
		return
	}

	now := s.timers.Now()
	for _, fix := range fixes {
		if now.Sub(fix.Timestamp) > s.opts.LocationUpdateTimeout {
			continue // stale
		}

		if s.state.wantingInterval && s.interval != nil &&
			betterCandidate(s.interval.candidate, fix) {
			f := fix
			s.interval.candidate = &f
		}

		if s.state.wantingImmediate && s.immediate != nil &&
			betterCandidate(s.immediate.candidate, fix) {
			f := fix
			s.immediate.candidate = &f
			if fix.HorizontalAccuracy <= s.immediate.accuracyThreshold {
				// Early accept: the threshold is met, no need to wait
				// out the timer.
				s.finalizeImmediateLocked()
			}
		}
	}
}

// OnError absorbs non-authorization sensor errors; only authorization
// transitions surface failures. Implements provider.Callbacks.
func (s *Service) OnError(code int, message string) {
	log.Printf("poll: sensor error %d: %s", code, message)
}

// OnAuthorizationChanged stops continuous updates and signals
// unavailability when access is revoked mid-flight. In-flight timers still
// fire and finalize with whatever candidate was captured before the stop.
// Implements provider.Callbacks.
func (s *Service) OnAuthorizationChanged(status provider.AuthorizationStatus) {
	if !status.Forbidden() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.publishFailureLocked(errServiceDenied)
	if s.state.updatingLocation {
		s.provider.StopUpdating()
		s.state.updatingLocation = false
	}
}

// Snapshot returns a copy of the observable service state.
func (s *Service) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StateSnapshot{
		PoweredUp:             s.state.gpsPoweredUp,
		Updating:              s.state.updatingLocation,
		WantingInterval:       s.state.wantingInterval,
		WantingImmediate:      s.state.wantingImmediate,
		MonitoringSignificant: s.monitoringSignificant,
		DesiredAccuracy:       s.currentAccuracy,
		Counts:                s.counts,
	}
	if s.lastFix != nil {
		f := *s.lastFix
		snap.LastFix = &f
	}
	return snap
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since
// the last heartbeat (or startup). Returns nil if the interval has not
// elapsed or if interval is <= 0 (disabled).
func (s *Service) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastHeartbeat) < interval {
		return nil
	}
	s.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(s.startTime),
		Counts:    s.counts,
	}
}

// ---- power controller ----

// powerUpLocked marks the sensor powered and merges the new demand into the
// effective accuracy: the numerically smaller (stricter) value always wins,
// so a concurrent request never degrades another's precision. The distance
// filter reports every movement while any request is active.
func (s *Service) powerUpLocked(desiredAccuracy float64) {
	s.state.gpsPoweredUp = true
	if desiredAccuracy < s.currentAccuracy {
		s.currentAccuracy = desiredAccuracy
	}
	s.provider.SetDesiredAccuracy(s.currentAccuracy)
	s.provider.SetDistanceFilter(provider.DistanceFilterNone)
}

// powerDownLocked resets the sensor to its coarse idle configuration to
// minimize power draw. Continuous delivery itself is left to the
// authorization path; the coarse settings make it near-free.
func (s *Service) powerDownLocked() {
	s.state.gpsPoweredUp = false
	s.currentAccuracy = provider.AccuracyThreeKilometers
	s.provider.SetDesiredAccuracy(provider.AccuracyThreeKilometers)
	s.provider.SetDistanceFilter(provider.DistanceFilterMax)
}

// maybePowerDownLocked applies the shared release rule: power is held only
// while some request wants it.
func (s *Service) maybePowerDownLocked() {
	if s.state.gpsPoweredUp && !s.state.wantingImmediate && !s.state.wantingInterval {
		s.powerDownLocked()
	}
}

// ---- shared sensor activation ----

func (s *Service) ensureUpdatingLocked() {
	if s.state.updatingLocation {
		return
	}

	status := s.provider.AuthorizationStatus()
	if status.Forbidden() {
		s.publishFailureLocked(errServiceDenied)
		return
	}
	if status == provider.AuthNotDetermined {
		s.provider.RequestAuthorization()
	}
	// Start regardless: the provider delivers once authorization resolves.
	s.provider.StartUpdating()
	s.state.updatingLocation = true
}

// ---- interval scheduler ----

func (s *Service) startIntervalPollLocked() {
	req := s.interval
	if req == nil {
		return
	}

	// The wake this poll was waiting on is complete.
	s.releaseWakeLocked()

	s.state.wantingInterval = true
	req.cycleStart = s.timers.Now()
	req.candidate = nil
	s.powerUpLocked(req.accuracyThreshold)
	s.ensureUpdatingLocked()
	s.armLocked(roleIntervalTimeout, s.opts.LocationUpdateTimeout, s.onIntervalTimeout)
}

func (s *Service) onIntervalTimeout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizeIntervalLocked()
}

func (s *Service) finalizeIntervalLocked() {
	req := s.interval
	if req == nil || !s.state.wantingInterval {
		return
	}

	candidate := req.candidate
	req.candidate = nil
	s.state.wantingInterval = false
	s.cancelLocked(roleIntervalTimeout)

	s.scheduleNextStartLocked()
	s.maybePowerDownLocked()

	if candidate == nil {
		// Silent miss: the cycle simply continues.
		s.counts.SilentMisses++
		return
	}
	s.lastFix = candidate
	s.counts.IntervalUpdates++
	s.publishFixLocked(events.LocationUpdated, *candidate)
	s.publishFixLocked(events.IntervalLocationUpdated, *candidate)
}

// scheduleNextStartLocked arms whatever brings the next poll: an immediate
// re-poll when the cycle overran, a keep-alive round when the gap exceeds
// the lease budget, or a direct start timer otherwise.
func (s *Service) scheduleNextStartLocked() {
	req := s.interval
	if req == nil {
		return
	}

	elapsed := s.timers.Now().Sub(req.cycleStart)
	remaining := req.interval - elapsed

	switch {
	case remaining < 0:
		s.startIntervalPollLocked()
	case remaining > s.opts.KeepAliveTime:
		delay := s.opts.KeepAliveTime - s.opts.KeepAliveTimerTimeout
		s.acquireWakeLocked(delay)
		s.armLocked(roleKeepAlive, delay, s.onKeepAlive)
	default:
		s.acquireWakeLocked(remaining)
		s.armLocked(roleIntervalStart, remaining, s.onIntervalStart)
	}
}

func (s *Service) onIntervalStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startIntervalPollLocked()
}

// onKeepAlive powers the sensor briefly at best accuracy, only to hold the
// process alive while the lease renews; no fix is collected.
func (s *Service) onKeepAlive() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interval == nil {
		s.releaseWakeLocked()
		return
	}
	s.cancelLocked(roleKeepAlive)
	s.cancelLocked(roleKeepAliveTimeout)
	s.powerUpLocked(provider.AccuracyBest)
	s.armLocked(roleKeepAliveTimeout, s.opts.KeepAliveTimerTimeout, s.onKeepAliveTimeout)
}

func (s *Service) onKeepAliveTimeout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.maybePowerDownLocked()
	s.releaseWakeLocked()
	// Time has passed; re-derive whether another keep-alive round or a
	// direct start timer is needed.
	s.scheduleNextStartLocked()
}

func (s *Service) clearIntervalLocked() {
	s.state.wantingInterval = false
	s.interval = nil
	s.cancelLocked(roleIntervalTimeout)
	s.cancelLocked(roleIntervalStart)
	s.cancelLocked(roleKeepAlive)
	s.cancelLocked(roleKeepAliveTimeout)
	s.releaseWakeLocked()
}

// ---- immediate request handler ----

func (s *Service) onImmediateTimeout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizeImmediateLocked()
}

func (s *Service) finalizeImmediateLocked() {
	req := s.immediate
	if req == nil || !s.state.wantingImmediate {
		return
	}

	s.immediate = nil
	s.state.wantingImmediate = false
	s.cancelLocked(roleImmediateTimeout)
	s.maybePowerDownLocked()

	if req.candidate == nil {
		s.publishFailureLocked(errNoLocation)
		return
	}
	s.lastFix = req.candidate
	s.counts.ImmediateUpdates++
	s.publishFixLocked(events.LocationUpdated, *req.candidate)
	s.publishFixLocked(events.ImmediateLocationUpdated, *req.candidate)
}

// ---- lease handling ----

// acquireWakeLocked takes a background lease for the gap until the armed
// wake fires. Skipped when another request is powering the sensor — the
// process is awake anyway.
func (s *Service) acquireWakeLocked(gap time.Duration) {
	if s.wake != nil {
		return
	}
	if s.state.gpsPoweredUp && s.state.wantingImmediate {
		return
	}
	deadline := s.timers.Now().Add(gap)
	s.wake = &wakeCycle{
		handle: s.leases.Acquire(func() {
			log.Printf("poll: background lease expired before wake at %v", deadline)
		}),
		deadline: deadline,
	}
}

func (s *Service) releaseWakeLocked() {
	if s.wake == nil {
		return
	}
	s.leases.Release(s.wake.handle)
	s.wake = nil
}

// ---- timers ----

func (s *Service) armLocked(role timerRole, d time.Duration, fn func()) {
	s.cancelLocked(role)
	s.handles[role] = s.timers.AfterFunc(d, fn)
}

func (s *Service) cancelLocked(role timerRole) {
	if h := s.handles[role]; h != nil {
		h.Cancel()
		s.handles[role] = nil
	}
}

// ---- publishing ----

func (s *Service) publishFixLocked(name events.Name, fix provider.Fix) {
	if err := s.publisher.Publish(name, events.Payload{Fix: &fix}); err != nil {
		log.Printf("poll: publish %s: %v", name, err)
		// Don't crash on publish failure
	}
}

func (s *Service) publishFailureLocked(description string) {
	s.counts.Failures++
	if err := s.publisher.Publish(events.LocationFailed, events.Payload{Error: description}); err != nil {
		log.Printf("poll: publish %s: %v", events.LocationFailed, err)
	}
}

// betterCandidate reports whether next should replace current: any fix
// beats no candidate, and ties replace so the most recent equal-accuracy
// fix wins.
func betterCandidate(current *provider.Fix, next provider.Fix) bool {
	return current == nil || next.HorizontalAccuracy <= current.HorizontalAccuracy
}
