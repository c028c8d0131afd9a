// Package events publishes location events with abstraction for testing.
package events

import (
	"encoding/json"
	"time"

	"github.com/sweeney/gps-poller/internal/provider"
)

// Topic is the MQTT topic for location events.
const Topic = "location/poller/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "location/poller/system"

// Name identifies a location event.
type Name string

const (
	// LocationUpdated is emitted on any successful finalize with a candidate.
	LocationUpdated Name = "LocationUpdated"

	// IntervalLocationUpdated is emitted on an interval finalize with a
	// candidate, alongside LocationUpdated.
	IntervalLocationUpdated Name = "IntervalLocationUpdated"

	// ImmediateLocationUpdated is emitted on an immediate finalize with a
	// candidate, alongside LocationUpdated.
	ImmediateLocationUpdated Name = "ImmediateLocationUpdated"

	// LocationFailed is emitted when authorization is denied/restricted or
	// an immediate poll times out with no candidate.
	LocationFailed Name = "LocationFailed"
)

// Payload carries the data for a location event: a fix on success, an
// error description on failure.
type Payload struct {
	Fix   *provider.Fix
	Error string
}

// Publisher publishes location events.
type Publisher interface {
	// Publish sends a location event.
	// Returns error if publishing fails (should not crash the process).
	Publish(name Name, payload Payload) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the broker connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Message is the MQTT message payload structure for location events.
type Message struct {
	Location LocationPayload `json:"location"`
}

// LocationPayload contains the event details.
type LocationPayload struct {
	Timestamp string   `json:"timestamp"`
	Event     string   `json:"event"`
	Fix       *FixJSON `json:"fix,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// FixJSON is the wire form of a position sample.
type FixJSON struct {
	Timestamp          string  `json:"timestamp"`
	Latitude           float64 `json:"latitude"`
	Longitude          float64 `json:"longitude"`
	HorizontalAccuracy float64 `json:"horizontal_accuracy_m"`
}

// FormatPayload creates the JSON payload for a location event.
func FormatPayload(now time.Time, name Name, payload Payload) ([]byte, error) {
	msg := Message{
		Location: LocationPayload{
			Timestamp: now.UTC().Format(time.RFC3339),
			Event:     string(name),
			Error:     payload.Error,
		},
	}
	if payload.Fix != nil {
		msg.Location.Fix = &FixJSON{
			Timestamp:          payload.Fix.Timestamp.UTC().Format(time.RFC3339),
			Latitude:           payload.Fix.Latitude,
			Longitude:          payload.Fix.Longitude,
			HorizontalAccuracy: payload.Fix.HorizontalAccuracy,
		}
	}
	return json.Marshal(msg)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
