// Command gps-poller polls a serial GPS on a fixed cadence and publishes
// location fixes to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/gps-poller/internal/config"
	"github.com/sweeney/gps-poller/internal/events"
	"github.com/sweeney/gps-poller/internal/lease"
	"github.com/sweeney/gps-poller/internal/poll"
	"github.com/sweeney/gps-poller/internal/provider"
	"github.com/sweeney/gps-poller/internal/status"
	"github.com/sweeney/gps-poller/internal/timer"
	"github.com/sweeney/gps-poller/internal/web"
)

func main() {
	defaults := config.Default()

	cfgPath := flag.String("config", "/etc/gps-poller/config.yaml", "YAML config file")
	port := flag.String("port", defaults.GPS.PortPath, "GPS serial device")
	baud := flag.Int("baud", defaults.GPS.BaudRate, "GPS serial baud rate")
	broker := flag.String("broker", defaults.MQTT.Broker, "MQTT broker address")
	interval := flag.Duration("interval", defaults.Poller.Interval, "Location polling interval")
	accuracy := flag.Float64("accuracy", defaults.Poller.Accuracy, "Desired accuracy in meters")
	updateTimeout := flag.Duration("update-timeout", defaults.Poller.UpdateTimeout, "Per-poll fix timeout")
	keepAlive := flag.Duration("keep-alive", defaults.Poller.KeepAlive, "Longest timer gap before a wake cycle")
	keepAliveTimeout := flag.Duration("keep-alive-timeout", defaults.Poller.KeepAliveTimeout, "Wake cycle duration")
	heartbeat := flag.Duration("heartbeat", defaults.Poller.Heartbeat, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", defaults.HTTP.Addr, "HTTP status address (empty to disable)")

	flag.Parse()

	cfg := config.Load(*cfgPath)
	applyFlags(&cfg, map[string]func(*config.Config){
		"port":               func(c *config.Config) { c.GPS.PortPath = *port },
		"baud":               func(c *config.Config) { c.GPS.BaudRate = *baud },
		"broker":             func(c *config.Config) { c.MQTT.Broker = *broker },
		"interval":           func(c *config.Config) { c.Poller.Interval = *interval },
		"accuracy":           func(c *config.Config) { c.Poller.Accuracy = *accuracy },
		"update-timeout":     func(c *config.Config) { c.Poller.UpdateTimeout = *updateTimeout },
		"keep-alive":         func(c *config.Config) { c.Poller.KeepAlive = *keepAlive },
		"keep-alive-timeout": func(c *config.Config) { c.Poller.KeepAliveTimeout = *keepAliveTimeout },
		"heartbeat":          func(c *config.Config) { c.Poller.Heartbeat = *heartbeat },
		"http":               func(c *config.Config) { c.HTTP.Addr = *httpAddr },
	})

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// applyFlags overrides config fields for flags the user set explicitly, so
// the precedence is flags over file over defaults.
func applyFlags(cfg *config.Config, overrides map[string]func(*config.Config)) {
	flag.Visit(func(f *flag.Flag) {
		if apply, ok := overrides[f.Name]; ok {
			apply(cfg)
		}
	})
}

func run(cfg config.Config) error {
	prov := provider.NewNMEA(cfg.GPS)
	defer prov.Close()

	publisher, err := events.NewRealPublisher(cfg.MQTT.Broker)
	if err != nil {
		return fmt.Errorf("connect mqtt: %w", err)
	}
	defer publisher.Close()

	svc := poll.New(prov, publisher, lease.NewNopManager(), timer.NewRealScheduler(), poll.Options{
		LocationUpdateTimeout: cfg.Poller.UpdateTimeout,
		KeepAliveTimerTimeout: cfg.Poller.KeepAliveTimeout,
		KeepAliveTime:         cfg.Poller.KeepAlive,
	})
	prov.SetCallbacks(svc)

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		IntervalMs:         cfg.Poller.Interval.Milliseconds(),
		AccuracyM:          cfg.Poller.Accuracy,
		UpdateTimeoutMs:    cfg.Poller.UpdateTimeout.Milliseconds(),
		KeepAliveMs:        cfg.Poller.KeepAlive.Milliseconds(),
		KeepAliveTimeoutMs: cfg.Poller.KeepAliveTimeout.Milliseconds(),
		HeartbeatMs:        cfg.Poller.Heartbeat.Milliseconds(),
		Broker:             cfg.MQTT.Broker,
		HTTPAddr:           cfg.HTTP.Addr,
		Port:               cfg.GPS.PortPath,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.Update(svc.Snapshot(), prov.AuthorizationStatus())
	tracker.SetMQTTConnected(publisher.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := events.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: port=%s interval=%v accuracy=%.0fm broker=%s heartbeat=%v",
		cfg.GPS.PortPath, cfg.Poller.Interval, cfg.Poller.Accuracy, cfg.MQTT.Broker, cfg.Poller.Heartbeat)

	svc.StartUpdatingLocationWithInterval(cfg.Poller.Interval, cfg.Poller.Accuracy)
	defer svc.StopUpdatingLocationWithInterval()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(svc, prov, publisher, publisher, tracker, cfg.Poller.Heartbeat, time.Now, ticker.C, sigCh)
}

// authSource reports the sensor's current authorization, for status updates.
type authSource interface {
	AuthorizationStatus() provider.AuthorizationStatus
}

func runLoop(svc *poll.Service, auth authSource, publisher events.Publisher, mqttStatus events.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			name := signalName(s)
			event := events.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    name,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				tracker.Update(svc.Snapshot(), auth.AuthorizationStatus())
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", name)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()

			// Check for heartbeat
			if hbData := svc.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v interval=%d immediate=%d failures=%d misses=%d",
					hbData.Uptime, hbData.Counts.IntervalUpdates, hbData.Counts.ImmediateUpdates,
					hbData.Counts.Failures, hbData.Counts.SilentMisses)

				hbEvent := events.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					tracker.Update(svc.Snapshot(), auth.AuthorizationStatus())
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(svc.Snapshot(), auth.AuthorizationStatus())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
