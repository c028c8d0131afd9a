package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event                 string       `json:"event,omitempty"`
	Reason                string       `json:"reason,omitempty"`
	PoweredUp             bool         `json:"gps_powered_up"`
	Updating              bool         `json:"updating_location"`
	WantingInterval       bool         `json:"wanting_interval"`
	WantingImmediate      bool         `json:"wanting_immediate"`
	MonitoringSignificant bool         `json:"monitoring_significant"`
	Authorization         string       `json:"authorization"`
	DesiredAccuracyM      float64      `json:"desired_accuracy_m"`
	LastFix               *FixJSON     `json:"last_fix,omitempty"`
	UptimeSeconds         int64        `json:"uptime_seconds"`
	StartTime             string       `json:"start_time"`
	Timestamp             string       `json:"timestamp"`
	MQTT                  MQTTStatus   `json:"mqtt"`
	Counts                CountsJSON   `json:"event_counts"`
	Network               *NetworkJSON `json:"network,omitempty"`
	Config                ConfigJSON   `json:"config"`
}

// FixJSON is the JSON representation of the last published fix.
type FixJSON struct {
	Timestamp          string  `json:"timestamp"`
	Latitude           float64 `json:"latitude"`
	Longitude          float64 `json:"longitude"`
	HorizontalAccuracy float64 `json:"horizontal_accuracy_m"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	IntervalUpdates  int `json:"interval_updates"`
	ImmediateUpdates int `json:"immediate_updates"`
	Failures         int `json:"failures"`
	SilentMisses     int `json:"silent_misses"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	IntervalMs         int64   `json:"interval_ms"`
	AccuracyM          float64 `json:"accuracy_m"`
	UpdateTimeoutMs    int64   `json:"update_timeout_ms"`
	KeepAliveMs        int64   `json:"keep_alive_ms"`
	KeepAliveTimeoutMs int64   `json:"keep_alive_timeout_ms"`
	HeartbeatMs        int64   `json:"heartbeat_ms"`
	Broker             string  `json:"broker"`
	HTTPAddr           string  `json:"http_addr"`
	Port               string  `json:"port"`
}

func buildInner(snap Snapshot) StatusInner {
	auth := snap.Authorization
	if auth == "" {
		auth = "notDetermined"
	}

	inner := StatusInner{
		PoweredUp:             snap.Poller.PoweredUp,
		Updating:              snap.Poller.Updating,
		WantingInterval:       snap.Poller.WantingInterval,
		WantingImmediate:      snap.Poller.WantingImmediate,
		MonitoringSignificant: snap.Poller.MonitoringSignificant,
		Authorization:         auth,
		DesiredAccuracyM:      snap.Poller.DesiredAccuracy,
		UptimeSeconds:         int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:             snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:             snap.Now.UTC().Format(time.RFC3339),
		MQTT:                  MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			IntervalUpdates:  snap.Poller.Counts.IntervalUpdates,
			ImmediateUpdates: snap.Poller.Counts.ImmediateUpdates,
			Failures:         snap.Poller.Counts.Failures,
			SilentMisses:     snap.Poller.Counts.SilentMisses,
		},
		Config: ConfigJSON{
			IntervalMs:         snap.Config.IntervalMs,
			AccuracyM:          snap.Config.AccuracyM,
			UpdateTimeoutMs:    snap.Config.UpdateTimeoutMs,
			KeepAliveMs:        snap.Config.KeepAliveMs,
			KeepAliveTimeoutMs: snap.Config.KeepAliveTimeoutMs,
			HeartbeatMs:        snap.Config.HeartbeatMs,
			Broker:             snap.Config.Broker,
			HTTPAddr:           snap.Config.HTTPAddr,
			Port:               snap.Config.Port,
		},
	}

	if fix := snap.Poller.LastFix; fix != nil {
		inner.LastFix = &FixJSON{
			Timestamp:          fix.Timestamp.UTC().Format(time.RFC3339),
			Latitude:           fix.Latitude,
			Longitude:          fix.Longitude,
			HorizontalAccuracy: fix.HorizontalAccuracy,
		}
	}

	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
