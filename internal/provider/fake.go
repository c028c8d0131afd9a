package provider

import "time"

// FakeProvider is a test double that delivers scripted fixes, errors, and
// authorization changes. Calls into the callbacks happen synchronously from
// the Deliver* methods, so tests control ordering exactly.
type FakeProvider struct {
	// Auth is the authorization status reported to the core.
	Auth AuthorizationStatus

	// AuthOnRequest, if set, becomes the status after RequestAuthorization.
	AuthOnRequest AuthorizationStatus

	// Updating tracks whether continuous updates are active.
	Updating bool

	// MonitoringSignificant tracks significant-change delivery.
	MonitoringSignificant bool

	// DesiredAccuracy holds the last value passed to SetDesiredAccuracy.
	DesiredAccuracy float64

	// DistanceFilter holds the last value passed to SetDistanceFilter.
	DistanceFilter float64

	// AccuracyHistory records every SetDesiredAccuracy call.
	AccuracyHistory []float64

	// Call counters.
	StartCalls   int
	StopCalls    int
	AuthRequests int

	// Closed tracks if Close was called.
	Closed bool

	cb Callbacks
}

// NewFakeProvider creates a FakeProvider with the given initial
// authorization status.
func NewFakeProvider(auth AuthorizationStatus) *FakeProvider {
	return &FakeProvider{
		Auth:            auth,
		AuthOnRequest:   AuthAuthorized,
		DesiredAccuracy: AccuracyThreeKilometers,
		DistanceFilter:  DistanceFilterMax,
	}
}

// SetCallbacks registers the delivery sink.
func (f *FakeProvider) SetCallbacks(cb Callbacks) {
	f.cb = cb
}

// StartUpdating marks continuous updates active.
func (f *FakeProvider) StartUpdating() {
	f.StartCalls++
	f.Updating = true
}

// StopUpdating marks continuous updates inactive.
func (f *FakeProvider) StopUpdating() {
	f.StopCalls++
	f.Updating = false
}

// SetDesiredAccuracy records the configured accuracy.
func (f *FakeProvider) SetDesiredAccuracy(meters float64) {
	f.DesiredAccuracy = meters
	f.AccuracyHistory = append(f.AccuracyHistory, meters)
}

// SetDistanceFilter records the configured distance filter.
func (f *FakeProvider) SetDistanceFilter(meters float64) {
	f.DistanceFilter = meters
}

// RequestAuthorization resolves the status to AuthOnRequest. The change is
// not pushed through the callbacks: the core calls this while holding its
// lock, so tests drive notifications explicitly via ChangeAuthorization.
func (f *FakeProvider) RequestAuthorization() {
	f.AuthRequests++
	if f.Auth == AuthNotDetermined {
		f.Auth = f.AuthOnRequest
	}
}

// AuthorizationStatus returns the scripted status.
func (f *FakeProvider) AuthorizationStatus() AuthorizationStatus {
	return f.Auth
}

// StartMonitoringSignificant marks significant-change delivery active.
func (f *FakeProvider) StartMonitoringSignificant() {
	f.MonitoringSignificant = true
}

// StopMonitoringSignificant marks significant-change delivery inactive.
func (f *FakeProvider) StopMonitoringSignificant() {
	f.MonitoringSignificant = false
}

// Close marks the provider as closed.
func (f *FakeProvider) Close() error {
	f.Closed = true
	return nil
}

// DeliverFix pushes a single fix into the registered callbacks.
func (f *FakeProvider) DeliverFix(fix Fix) {
	f.DeliverFixes([]Fix{fix})
}

// DeliverFixes pushes a batch of fixes into the registered callbacks.
func (f *FakeProvider) DeliverFixes(fixes []Fix) {
	if f.cb != nil {
		f.cb.OnFixes(fixes)
	}
}

// DeliverError pushes a sensor error into the registered callbacks.
func (f *FakeProvider) DeliverError(code int, message string) {
	if f.cb != nil {
		f.cb.OnError(code, message)
	}
}

// ChangeAuthorization sets the status and notifies the callbacks.
func (f *FakeProvider) ChangeAuthorization(status AuthorizationStatus) {
	f.Auth = status
	if f.cb != nil {
		f.cb.OnAuthorizationChanged(status)
	}
}

// FixAt builds a Fix with the given timestamp and accuracy at a fixed
// reference coordinate. Convenience for tests.
func FixAt(ts time.Time, accuracy float64) Fix {
	return Fix{
		Timestamp:          ts,
		Latitude:           51.5074,
		Longitude:          -0.1278,
		HorizontalAccuracy: accuracy,
	}
}
