package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.GPS.PortPath != "/dev/ttyACM0" {
		t.Errorf("GPS.PortPath: got %q, want /dev/ttyACM0", cfg.GPS.PortPath)
	}
	if cfg.GPS.BaudRate != 9600 {
		t.Errorf("GPS.BaudRate: got %d, want 9600", cfg.GPS.BaudRate)
	}
	if cfg.Poller.Interval != 60*time.Second {
		t.Errorf("Poller.Interval: got %v, want 60s", cfg.Poller.Interval)
	}
	if cfg.Poller.KeepAlive != 300*time.Second {
		t.Errorf("Poller.KeepAlive: got %v, want 300s", cfg.Poller.KeepAlive)
	}
	if cfg.HTTP.Addr != ":80" {
		t.Errorf("HTTP.Addr: got %q, want :80", cfg.HTTP.Addr)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))

	if cfg.MQTT.Broker != Default().MQTT.Broker {
		t.Errorf("Broker: got %q, want default", cfg.MQTT.Broker)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
gps:
  port_path: /dev/ttyUSB0
  baud_rate: 115200
mqtt:
  broker: tcp://10.0.0.5:1883
poller:
  interval: 2m
  accuracy_m: 50
http:
  addr: ":8080"
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)

	if cfg.GPS.PortPath != "/dev/ttyUSB0" {
		t.Errorf("GPS.PortPath: got %q, want /dev/ttyUSB0", cfg.GPS.PortPath)
	}
	if cfg.GPS.BaudRate != 115200 {
		t.Errorf("GPS.BaudRate: got %d, want 115200", cfg.GPS.BaudRate)
	}
	if cfg.MQTT.Broker != "tcp://10.0.0.5:1883" {
		t.Errorf("MQTT.Broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.Poller.Interval != 2*time.Minute {
		t.Errorf("Poller.Interval: got %v, want 2m", cfg.Poller.Interval)
	}
	if cfg.Poller.Accuracy != 50 {
		t.Errorf("Poller.Accuracy: got %v, want 50", cfg.Poller.Accuracy)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr: got %q, want :8080", cfg.HTTP.Addr)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Poller.UpdateTimeout != 5*time.Second {
		t.Errorf("Poller.UpdateTimeout: got %v, want 5s", cfg.Poller.UpdateTimeout)
	}
}

func TestLoadMalformedFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("gps: [not: a map"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)

	if cfg.GPS.PortPath != Default().GPS.PortPath {
		t.Errorf("GPS.PortPath after malformed file: got %q, want default", cfg.GPS.PortPath)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GPS_PORT", "/dev/ttyAMA0")
	t.Setenv("GPS_BAUD", "38400")
	t.Setenv("MQTT_BROKER", "tcp://127.0.0.1:1883")
	t.Setenv("POLL_INTERVAL", "30s")

	cfg := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	if cfg.GPS.PortPath != "/dev/ttyAMA0" {
		t.Errorf("GPS.PortPath: got %q, want /dev/ttyAMA0", cfg.GPS.PortPath)
	}
	if cfg.GPS.BaudRate != 38400 {
		t.Errorf("GPS.BaudRate: got %d, want 38400", cfg.GPS.BaudRate)
	}
	if cfg.MQTT.Broker != "tcp://127.0.0.1:1883" {
		t.Errorf("MQTT.Broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.Poller.Interval != 30*time.Second {
		t.Errorf("Poller.Interval: got %v, want 30s", cfg.Poller.Interval)
	}
}

func TestEnvOverrideIgnoresBadValues(t *testing.T) {
	t.Setenv("GPS_BAUD", "fast")
	t.Setenv("POLL_INTERVAL", "soon")

	cfg := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	if cfg.GPS.BaudRate != 9600 {
		t.Errorf("GPS.BaudRate: got %d, want default 9600", cfg.GPS.BaudRate)
	}
	if cfg.Poller.Interval != 60*time.Second {
		t.Errorf("Poller.Interval: got %v, want default 60s", cfg.Poller.Interval)
	}
}
