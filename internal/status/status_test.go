package status

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/gps-poller/internal/poll"
	"github.com/sweeney/gps-poller/internal/provider"
)

func testConfig() Config {
	return Config{
		IntervalMs:         60000,
		AccuracyM:          100,
		UpdateTimeoutMs:    5000,
		KeepAliveMs:        300000,
		KeepAliveTimeoutMs: 1000,
		HeartbeatMs:        900000,
		Broker:             "tcp://192.168.1.200:1883",
		HTTPAddr:           ":8080",
		Port:               "/dev/ttyAMA0",
	}
}

func TestTrackerUpdateAndSnapshot(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(start, testConfig())

	fix := provider.Fix{
		Timestamp:          start.Add(3 * time.Second),
		Latitude:           51.5074,
		Longitude:          -0.1278,
		HorizontalAccuracy: 50,
	}
	tracker.Update(poll.StateSnapshot{
		PoweredUp:       true,
		Updating:        true,
		WantingInterval: true,
		DesiredAccuracy: 100,
		LastFix:         &fix,
		Counts:          poll.EventCounts{IntervalUpdates: 2},
	}, provider.AuthAuthorized)
	tracker.SetMQTTConnected(true)

	snap := tracker.snapshotAt(start.Add(90 * time.Second))

	if !snap.Poller.PoweredUp || !snap.Poller.WantingInterval {
		t.Error("expected poller state carried into snapshot")
	}
	if snap.Authorization != "authorized" {
		t.Errorf("authorization = %q, want authorized", snap.Authorization)
	}
	if !snap.MQTTConnected {
		t.Error("expected MQTT connected")
	}
	if snap.Uptime() != 90*time.Second {
		t.Errorf("uptime = %v, want 90s", snap.Uptime())
	}
	if snap.Poller.LastFix == nil || snap.Poller.LastFix.HorizontalAccuracy != 50 {
		t.Errorf("expected last fix in snapshot, got %+v", snap.Poller.LastFix)
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(start, testConfig())
	fix := provider.Fix{
		Timestamp:          start.Add(3 * time.Second),
		Latitude:           51.5074,
		Longitude:          -0.1278,
		HorizontalAccuracy: 50,
	}
	tracker.Update(poll.StateSnapshot{
		PoweredUp:       true,
		DesiredAccuracy: 100,
		LastFix:         &fix,
		Counts:          poll.EventCounts{IntervalUpdates: 2, Failures: 1},
	}, provider.AuthAuthorized)

	data := FormatJSON(tracker.snapshotAt(start.Add(time.Minute)))

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !parsed.Status.PoweredUp {
		t.Error("expected gps_powered_up true")
	}
	if parsed.Status.Authorization != "authorized" {
		t.Errorf("authorization = %q", parsed.Status.Authorization)
	}
	if parsed.Status.UptimeSeconds != 60 {
		t.Errorf("uptime_seconds = %d, want 60", parsed.Status.UptimeSeconds)
	}
	if parsed.Status.Counts.IntervalUpdates != 2 || parsed.Status.Counts.Failures != 1 {
		t.Errorf("counts = %+v", parsed.Status.Counts)
	}
	if parsed.Status.LastFix == nil {
		t.Fatal("expected last_fix in JSON")
	}
	if parsed.Status.LastFix.Timestamp != "2026-01-01T12:00:03Z" {
		t.Errorf("last_fix timestamp = %q", parsed.Status.LastFix.Timestamp)
	}
	if parsed.Status.Config.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("config broker = %q", parsed.Status.Config.Broker)
	}
	if parsed.Status.Event != "" {
		t.Errorf("web JSON should carry no event, got %q", parsed.Status.Event)
	}
}

func TestFormatJSONDefaultsAuthorization(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(start, testConfig())

	data := FormatJSON(tracker.snapshotAt(start))

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Status.Authorization != "notDetermined" {
		t.Errorf("authorization = %q, want notDetermined", parsed.Status.Authorization)
	}
	if parsed.Status.LastFix != nil {
		t.Error("expected no last_fix before any poll")
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(start, testConfig())
	tracker.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.50", Status: "up"})

	data := FormatStatusEvent(tracker.snapshotAt(start), "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("event = %q", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("reason = %q", parsed.Status.Reason)
	}
	if parsed.Status.Network == nil || parsed.Status.Network.IP != "192.168.1.50" {
		t.Errorf("network = %+v", parsed.Status.Network)
	}
}
