// Package config loads daemon configuration from a YAML file with
// environment variable overrides.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/gps-poller/internal/provider"
)

// Config holds all gps-poller configuration.
type Config struct {
	GPS    provider.NMEAConfig `yaml:"gps"`
	MQTT   MQTTConfig          `yaml:"mqtt"`
	Poller PollerConfig        `yaml:"poller"`
	HTTP   HTTPConfig          `yaml:"http"`
}

// MQTTConfig holds broker settings.
type MQTTConfig struct {
	Broker string `yaml:"broker"`
}

// PollerConfig holds polling cadence and timeouts.
type PollerConfig struct {
	Interval         time.Duration `yaml:"interval"`
	Accuracy         float64       `yaml:"accuracy_m"`
	UpdateTimeout    time.Duration `yaml:"update_timeout"`
	KeepAlive        time.Duration `yaml:"keep_alive"`
	KeepAliveTimeout time.Duration `yaml:"keep_alive_timeout"`
	Heartbeat        time.Duration `yaml:"heartbeat"`
}

// HTTPConfig holds the status server address.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a config with sensible defaults for a Pi deployment.
func Default() Config {
	return Config{
		GPS: provider.NMEAConfig{
			PortPath: "/dev/ttyACM0",
			BaudRate: 9600,
		},
		MQTT: MQTTConfig{
			Broker: "tcp://192.168.1.200:1883",
		},
		Poller: PollerConfig{
			Interval:         60 * time.Second,
			Accuracy:         100,
			UpdateTimeout:    5 * time.Second,
			KeepAlive:        300 * time.Second,
			KeepAliveTimeout: 1 * time.Second,
			Heartbeat:        15 * time.Minute,
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
	}
}

// Load reads config from a YAML file, then applies environment variable
// overrides. Falls back to defaults if the file is missing or malformed.
func Load(path string) Config {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("config: no config at %s, using defaults", path)
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Printf("config: error parsing %s: %v, using defaults", path, err)
		cfg = Default()
	} else {
		log.Printf("config: loaded from %s", path)
	}

	cfg.applyEnvOverrides()
	return cfg
}

// applyEnvOverrides reads environment variables and overrides config values.
// Supported: GPS_PORT, GPS_BAUD, MQTT_BROKER, HTTP_ADDR, POLL_INTERVAL,
// POLL_ACCURACY_M.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GPS_PORT"); v != "" {
		c.GPS.PortPath = v
	}
	if v := os.Getenv("GPS_BAUD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.GPS.BaudRate = n
		}
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Poller.Interval = d
		}
	}
	if v := os.Getenv("POLL_ACCURACY_M"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			c.Poller.Accuracy = n
		}
	}
}
