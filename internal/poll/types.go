// Package poll contains the location polling scheduler: it decides when the
// sensor is powered, merges competing accuracy demands, bounds every poll
// with a timeout, retains the best candidate fix per request, and bridges
// long gaps between interval polls with short keep-alive wake cycles.
// All transitions are timer-ordered; time comes from the injected scheduler,
// never from time.Now.
package poll

import (
	"time"

	"github.com/sweeney/gps-poller/internal/lease"
	"github.com/sweeney/gps-poller/internal/provider"
)

// Default timing knobs.
const (
	// DefaultLocationUpdateTimeout bounds each poll and doubles as the
	// staleness horizon for incoming fixes.
	DefaultLocationUpdateTimeout = 5 * time.Second

	// DefaultKeepAliveTimerTimeout is how long the sensor stays powered
	// during a keep-alive wake.
	DefaultKeepAliveTimerTimeout = 1 * time.Second

	// DefaultKeepAliveTime is the longest gap bridged without a
	// keep-alive wake.
	DefaultKeepAliveTime = 300 * time.Second
)

// Options configures a Service. Zero fields take the defaults above.
type Options struct {
	LocationUpdateTimeout time.Duration
	KeepAliveTimerTimeout time.Duration
	KeepAliveTime         time.Duration
}

func (o Options) withDefaults() Options {
	if o.LocationUpdateTimeout <= 0 {
		o.LocationUpdateTimeout = DefaultLocationUpdateTimeout
	}
	if o.KeepAliveTimerTimeout <= 0 {
		o.KeepAliveTimerTimeout = DefaultKeepAliveTimerTimeout
	}
	if o.KeepAliveTime <= 0 {
		o.KeepAliveTime = DefaultKeepAliveTime
	}
	return o
}

// serviceState tracks the shared sensor and request flags.
// Invariant: gpsPoweredUp implies wantingImmediate, wantingInterval, or a
// poll mid-finalization; power is released as soon as neither flag holds.
type serviceState struct {
	gpsPoweredUp     bool
	updatingLocation bool
	wantingImmediate bool
	wantingInterval  bool
}

// intervalRequest is the recurring poll record. The candidate resets at the
// start of every cycle.
type intervalRequest struct {
	interval          time.Duration
	accuracyThreshold float64
	cycleStart        time.Time
	candidate         *provider.Fix
}

// immediateRequest is the one-shot poll record. It is destroyed when the
// poll finalizes.
type immediateRequest struct {
	accuracyThreshold float64
	candidate         *provider.Fix
}

// wakeCycle holds the background lease across a cooldown gap, whether the
// wake is a direct interval start or a keep-alive round.
type wakeCycle struct {
	handle   lease.Handle
	deadline time.Time
}

// timerRole names the logical timers. At most one handle is live per role;
// re-arming a role cancels its previous handle first.
type timerRole int

const (
	roleIntervalTimeout timerRole = iota
	roleIntervalStart
	roleImmediateTimeout
	roleKeepAlive
	roleKeepAliveTimeout
	numTimerRoles
)

// EventCounts tracks published outcomes since startup.
type EventCounts struct {
	IntervalUpdates  int
	ImmediateUpdates int
	Failures         int
	SilentMisses     int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}

// StateSnapshot is a point-in-time copy of the service's observable state.
type StateSnapshot struct {
	PoweredUp             bool
	Updating              bool
	WantingInterval       bool
	WantingImmediate      bool
	MonitoringSignificant bool
	DesiredAccuracy       float64
	LastFix               *provider.Fix
	Counts                EventCounts
}
