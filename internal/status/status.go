// Package status provides a thread-safe status tracker for the gps-poller
// daemon. It is designed to be read by HTTP handlers and system event
// payloads.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/gps-poller/internal/poll"
	"github.com/sweeney/gps-poller/internal/provider"
)

// NetworkInfo contains network state reported by the host helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	IntervalMs         int64
	AccuracyM          float64
	UpdateTimeoutMs    int64
	KeepAliveMs        int64
	KeepAliveTimeoutMs int64
	HeartbeatMs        int64
	Broker             string
	HTTPAddr           string
	Port               string // serial device path
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Poller        poll.StateSnapshot
	Authorization string
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update copies the poller's observable state. Called from the housekeeping
// loop on every tick.
func (t *Tracker) Update(snap poll.StateSnapshot, auth provider.AuthorizationStatus) {
	t.mu.Lock()
	t.snap.Poller = snap
	t.snap.Authorization = auth.String()
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	s := t.snapshotAt(time.Now())
	return s
}

// snapshotAt returns the state with an explicit Now, for tests.
func (t *Tracker) snapshotAt(now time.Time) Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = now
	return s
}
