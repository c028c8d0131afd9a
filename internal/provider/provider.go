// Package provider abstracts the location sensor.
// The real implementation reads NMEA 0183 sentences from a serial GPS.
// The fake implementation allows testing without hardware.
package provider

import (
	"math"
	"time"
)

// Desired accuracy presets, in meters. Smaller is stricter.
const (
	// AccuracyBest asks the sensor for the most precise fixes it can produce.
	AccuracyBest = 0.0

	// AccuracyThreeKilometers is the coarse idle setting used while no
	// request is active, to minimize power draw.
	AccuracyThreeKilometers = 3000.0
)

// Distance filter presets, in meters.
const (
	// DistanceFilterNone reports every movement.
	DistanceFilterNone = 0.0
)

// DistanceFilterMax effectively suppresses movement-based reporting.
var DistanceFilterMax = math.MaxFloat64

// AuthorizationStatus reports whether the process may use the sensor.
type AuthorizationStatus int

const (
	AuthNotDetermined AuthorizationStatus = iota
	AuthAuthorized
	AuthDenied
	AuthRestricted
)

// String returns the status name.
func (s AuthorizationStatus) String() string {
	switch s {
	case AuthNotDetermined:
		return "notDetermined"
	case AuthAuthorized:
		return "authorized"
	case AuthDenied:
		return "denied"
	case AuthRestricted:
		return "restricted"
	}
	return "unknown"
}

// Forbidden reports whether the status rules out location access.
func (s AuthorizationStatus) Forbidden() bool {
	return s == AuthDenied || s == AuthRestricted
}

// Fix is a single sensor-reported position sample.
type Fix struct {
	Timestamp time.Time
	Latitude  float64 // decimal degrees
	Longitude float64 // decimal degrees

	// HorizontalAccuracy is the radius of uncertainty in meters.
	// Smaller is more precise.
	HorizontalAccuracy float64
}

// Callbacks receives sensor output pushed by a provider.
type Callbacks interface {
	// OnFixes delivers one or more position samples.
	OnFixes(fixes []Fix)

	// OnError reports a sensor-level error.
	OnError(code int, message string)

	// OnAuthorizationChanged reports an authorization transition.
	OnAuthorizationChanged(status AuthorizationStatus)
}

// LocationProvider starts and stops continuous sensor updates and exposes
// accuracy/power configuration. Implementations push results through the
// Callbacks set with SetCallbacks.
type LocationProvider interface {
	// SetCallbacks registers the sink for fixes, errors, and authorization
	// changes. Must be called before StartUpdating.
	SetCallbacks(cb Callbacks)

	// StartUpdating begins continuous fix delivery.
	StartUpdating()

	// StopUpdating halts fix delivery.
	StopUpdating()

	// SetDesiredAccuracy configures the sensor's target precision in meters.
	SetDesiredAccuracy(meters float64)

	// SetDistanceFilter configures the minimum movement, in meters, between
	// reported fixes.
	SetDistanceFilter(meters float64)

	// RequestAuthorization asks the environment for permission to use the
	// sensor. The outcome arrives via OnAuthorizationChanged.
	RequestAuthorization()

	// AuthorizationStatus returns the current authorization state.
	AuthorizationStatus() AuthorizationStatus

	// StartMonitoringSignificant enables the sensor's low-power
	// significant-change delivery, independent of continuous updates.
	StartMonitoringSignificant()

	// StopMonitoringSignificant disables significant-change delivery.
	StopMonitoringSignificant()

	// Close releases sensor resources.
	Close() error
}
