package provider

import (
	"bufio"
	"errors"
	"io/fs"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// hdopUERE is the user-equivalent range error, in meters, used to turn HDOP
// into a horizontal accuracy estimate. 5 m is the usual single-frequency
// GPS figure.
const hdopUERE = 5.0

// coarseReportInterval throttles delivery while the desired accuracy is at
// the coarse idle setting, since nothing is waiting on fresh fixes.
const coarseReportInterval = 15 * time.Second

// NMEAConfig holds configuration for the NMEA serial provider.
type NMEAConfig struct {
	PortPath string `yaml:"port_path"`
	BaudRate int    `yaml:"baud_rate"`
}

// NMEAProvider reads standard NMEA 0183 sentences from a UART GPS and
// pushes fixes into the registered callbacks. Compatible with u-blox
// NEO-M8N and any standard NMEA receiver.
type NMEAProvider struct {
	mu  sync.Mutex
	cfg NMEAConfig
	cb  Callbacks

	port     serial.Port
	auth     AuthorizationStatus
	updating bool
	stop     chan struct{}

	desiredAccuracy float64
	distanceFilter  float64

	// Accumulated sentence state. GGA carries quality and HDOP, RMC
	// carries position and validity; a fix needs both.
	quality int
	hdop    float64

	lastReported   *Fix
	lastReportTime time.Time
}

// NewNMEA creates an NMEA serial provider. The port is not opened until
// authorization is requested or updates start.
func NewNMEA(cfg NMEAConfig) *NMEAProvider {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600 // standard NMEA default
	}
	return &NMEAProvider{
		cfg:             cfg,
		auth:            AuthNotDetermined,
		desiredAccuracy: AccuracyThreeKilometers,
		distanceFilter:  DistanceFilterMax,
		hdop:            1.0,
	}
}

// SetCallbacks registers the delivery sink.
func (p *NMEAProvider) SetCallbacks(cb Callbacks) {
	p.mu.Lock()
	p.cb = cb
	p.mu.Unlock()
}

// StartUpdating opens the serial port if necessary and starts the read loop.
func (p *NMEAProvider) StartUpdating() {
	p.mu.Lock()
	if p.updating {
		p.mu.Unlock()
		return
	}
	if p.port == nil {
		p.auth = p.probeLocked()
		if p.port == nil {
			cb := p.cb
			p.mu.Unlock()
			if cb != nil {
				cb.OnError(1, "gps: cannot open "+p.cfg.PortPath)
			}
			return
		}
	}
	p.updating = true
	p.stop = make(chan struct{})
	port, stop := p.port, p.stop
	p.mu.Unlock()

	go p.readLoop(port, stop)
	log.Printf("gps: updating from %s at %d baud", p.cfg.PortPath, p.cfg.BaudRate)
}

// StopUpdating halts the read loop. The port stays open for a later restart.
func (p *NMEAProvider) StopUpdating() {
	p.mu.Lock()
	if !p.updating {
		p.mu.Unlock()
		return
	}
	p.updating = false
	close(p.stop)
	p.mu.Unlock()
}

// SetDesiredAccuracy records the target precision. The receiver has no
// native accuracy knob, so coarse settings throttle delivery instead.
func (p *NMEAProvider) SetDesiredAccuracy(meters float64) {
	p.mu.Lock()
	p.desiredAccuracy = meters
	p.mu.Unlock()
}

// SetDistanceFilter records the minimum movement between reported fixes,
// applied in software against the last delivered position.
func (p *NMEAProvider) SetDistanceFilter(meters float64) {
	p.mu.Lock()
	p.distanceFilter = meters
	p.lastReported = nil
	p.mu.Unlock()
}

// RequestAuthorization probes the serial device and reports the outcome.
func (p *NMEAProvider) RequestAuthorization() {
	p.mu.Lock()
	status := p.probeLocked()
	changed := status != p.auth
	p.auth = status
	cb := p.cb
	p.mu.Unlock()

	// Delivered off the caller's goroutine: the core requests authorization
	// while holding its own lock.
	if changed && cb != nil {
		go cb.OnAuthorizationChanged(status)
	}
}

// AuthorizationStatus returns the current authorization state.
// It is notDetermined until the device has been probed.
func (p *NMEAProvider) AuthorizationStatus() AuthorizationStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.auth
}

// StartMonitoringSignificant has no low-power hardware path on a UART GPS;
// significant-change delivery rides the continuous stream.
func (p *NMEAProvider) StartMonitoringSignificant() {
	p.StartUpdating()
}

// StopMonitoringSignificant is a no-op: continuous updates are owned by
// StartUpdating/StopUpdating.
func (p *NMEAProvider) StopMonitoringSignificant() {}

// Close stops the read loop and releases the serial port.
func (p *NMEAProvider) Close() error {
	p.StopUpdating()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.port != nil {
		err := p.port.Close()
		p.port = nil
		return err
	}
	return nil
}

// probeLocked maps serial device access onto authorization states:
// a missing device node is restricted, a permission failure is denied,
// an open port is authorized.
func (p *NMEAProvider) probeLocked() AuthorizationStatus {
	if p.port != nil {
		return AuthAuthorized
	}
	if _, err := os.Stat(p.cfg.PortPath); err != nil {
		return AuthRestricted
	}

	mode := &serial.Mode{
		BaudRate: p.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(p.cfg.PortPath, mode)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return AuthDenied
		}
		log.Printf("gps: open %s: %v", p.cfg.PortPath, err)
		return AuthDenied
	}
	port.SetReadTimeout(200 * time.Millisecond)
	p.port = port
	return AuthAuthorized
}

func (p *NMEAProvider) readLoop(port serial.Port, stop <-chan struct{}) {
	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		select {
		case <-stop:
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		fix, ok := p.ingest(line, time.Now())
		if !ok {
			continue
		}

		p.mu.Lock()
		cb := p.cb
		p.mu.Unlock()
		if cb != nil {
			cb.OnFixes([]Fix{fix})
		}
	}
	if err := scanner.Err(); err != nil {
		select {
		case <-stop:
		default:
			p.mu.Lock()
			cb := p.cb
			p.mu.Unlock()
			if cb != nil {
				cb.OnError(2, "gps: read: "+err.Error())
			}
		}
	}
}

// ingest parses one sentence and returns a deliverable fix, if any.
// GGA sentences only update quality/HDOP state; RMC sentences produce the
// fix, subject to the distance filter and coarse throttle.
func (p *NMEAProvider) ingest(line string, now time.Time) (Fix, bool) {
	if !strings.HasPrefix(line, "$") || !validChecksum(line) {
		return Fix{}, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case strings.HasPrefix(line, "$GPGGA"), strings.HasPrefix(line, "$GNGGA"):
		p.parseGGALocked(line)
		return Fix{}, false
	case strings.HasPrefix(line, "$GPRMC"), strings.HasPrefix(line, "$GNRMC"):
		return p.parseRMCLocked(line, now)
	}
	return Fix{}, false
}

func (p *NMEAProvider) parseGGALocked(line string) {
	// $GPGGA,hhmmss.ss,llll.ll,a,yyyyy.yy,a,x,xx,x.x,x.x,M,...
	fields := nmeaFields(line)
	if len(fields) < 11 {
		return
	}
	if q, err := strconv.Atoi(fields[6]); err == nil {
		p.quality = q
	}
	if h, err := strconv.ParseFloat(fields[8], 64); err == nil && h > 0 {
		p.hdop = h
	}
}

func (p *NMEAProvider) parseRMCLocked(line string, now time.Time) (Fix, bool) {
	// $GPRMC,hhmmss.ss,A,llll.ll,a,yyyyy.yy,a,...
	fields := nmeaFields(line)
	if len(fields) < 7 {
		return Fix{}, false
	}
	if fields[2] != "A" || p.quality == 0 {
		return Fix{}, false
	}

	fix := Fix{
		Timestamp:          now,
		Latitude:           parseCoord(fields[3], fields[4]),
		Longitude:          parseCoord(fields[5], fields[6]),
		HorizontalAccuracy: p.hdop * hdopUERE,
	}

	if p.desiredAccuracy >= AccuracyThreeKilometers &&
		now.Sub(p.lastReportTime) < coarseReportInterval {
		return Fix{}, false
	}
	if p.lastReported != nil && p.distanceFilter > DistanceFilterNone {
		moved := distanceMeters(p.lastReported.Latitude, p.lastReported.Longitude,
			fix.Latitude, fix.Longitude)
		if moved < p.distanceFilter {
			return Fix{}, false
		}
	}

	p.lastReported = &fix
	p.lastReportTime = now
	return fix, true
}

// nmeaFields splits a sentence, stripping the leading $ and the checksum.
func nmeaFields(line string) []string {
	if idx := strings.Index(line, "*"); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimPrefix(line, "$")
	return strings.Split(line, ",")
}

// parseCoord converts NMEA ddmm.mmmm format to decimal degrees.
func parseCoord(raw, dir string) float64 {
	if raw == "" || dir == "" {
		return 0
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	deg := math.Floor(val / 100)
	min := val - deg*100
	result := deg + min/60
	if dir == "S" || dir == "W" {
		result = -result
	}
	return result
}

// validChecksum checks the XOR checksum after *.
func validChecksum(line string) bool {
	idx := strings.Index(line, "*")
	if idx < 0 || idx+3 > len(line) {
		return false
	}
	var calc byte
	for i := 1; i < idx; i++ {
		calc ^= line[i]
	}
	expected, err := strconv.ParseUint(line[idx+1:idx+3], 16, 8)
	if err != nil {
		return false
	}
	return byte(expected) == calc
}

// distanceMeters is the haversine distance between two coordinates.
func distanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000.0
	rad := func(d float64) float64 { return d * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadius * math.Asin(math.Sqrt(a))
}
