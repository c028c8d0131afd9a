package provider

import (
	"fmt"
	"math"
	"testing"
	"time"
)

// sentence wraps an NMEA body in $...*hh framing with a valid checksum.
func sentence(body string) string {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X", body, sum)
}

func newTestNMEA() *NMEAProvider {
	p := NewNMEA(NMEAConfig{PortPath: "/dev/ttyAMA0"})
	p.SetDesiredAccuracy(AccuracyBest)
	p.SetDistanceFilter(DistanceFilterNone)
	return p
}

func TestChecksumValidation(t *testing.T) {
	good := sentence("GPRMC,120000.00,A,5130.44,N,00007.67,W,0.0,0.0,010126,,")
	if !validChecksum(good) {
		t.Errorf("expected valid checksum for %q", good)
	}

	bad := good[:len(good)-2] + "00"
	if validChecksum(bad) {
		t.Errorf("expected invalid checksum for %q", bad)
	}

	if validChecksum("$GPRMC,no,checksum") {
		t.Error("expected sentence without checksum to be rejected")
	}
}

func TestParseCoord(t *testing.T) {
	tests := []struct {
		raw  string
		dir  string
		want float64
	}{
		{"5130.4400", "N", 51.5074},
		{"00007.6680", "W", -0.1278},
		{"4339.1920", "N", 43.6532},
		{"", "N", 0},
		{"bogus", "E", 0},
	}

	for _, tt := range tests {
		got := parseCoord(tt.raw, tt.dir)
		if math.Abs(got-tt.want) > 0.0005 {
			t.Errorf("parseCoord(%q, %q) = %f, want %f", tt.raw, tt.dir, got, tt.want)
		}
	}
}

func TestIngestRequiresGGAQuality(t *testing.T) {
	p := newTestNMEA()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	rmc := sentence("GPRMC,120000.00,A,5130.44,N,00007.67,W,0.0,0.0,010126,,")

	// No GGA seen yet: quality is 0, fix withheld.
	if _, ok := p.ingest(rmc, now); ok {
		t.Error("expected no fix before a GGA established quality")
	}

	gga := sentence("GPGGA,120000.00,5130.44,N,00007.67,W,1,08,0.9,46.9,M,47.0,M,,")
	if _, ok := p.ingest(gga, now); ok {
		t.Error("GGA alone should not produce a fix")
	}

	fix, ok := p.ingest(rmc, now.Add(time.Second))
	if !ok {
		t.Fatal("expected a fix after GGA + valid RMC")
	}
	if math.Abs(fix.Latitude-51.5073) > 0.001 {
		t.Errorf("latitude = %f, want ~51.507", fix.Latitude)
	}
	if math.Abs(fix.Longitude-(-0.1278)) > 0.001 {
		t.Errorf("longitude = %f, want ~-0.128", fix.Longitude)
	}
	// HDOP 0.9 at 5 m UERE.
	if math.Abs(fix.HorizontalAccuracy-4.5) > 0.01 {
		t.Errorf("accuracy = %f, want 4.5", fix.HorizontalAccuracy)
	}
	if !fix.Timestamp.Equal(now.Add(time.Second)) {
		t.Errorf("timestamp = %v, want %v", fix.Timestamp, now.Add(time.Second))
	}
}

func TestIngestRejectsVoidRMC(t *testing.T) {
	p := newTestNMEA()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	gga := sentence("GPGGA,120000.00,5130.44,N,00007.67,W,1,08,0.9,46.9,M,47.0,M,,")
	p.ingest(gga, now)

	void := sentence("GPRMC,120000.00,V,,,,,,,010126,,")
	if _, ok := p.ingest(void, now); ok {
		t.Error("expected void RMC (validity V) to be rejected")
	}
}

func TestIngestDistanceFilter(t *testing.T) {
	p := newTestNMEA()
	p.SetDistanceFilter(1000)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	gga := sentence("GPGGA,120000.00,5130.44,N,00007.67,W,1,08,0.9,46.9,M,47.0,M,,")
	p.ingest(gga, now)

	first := sentence("GPRMC,120000.00,A,5130.44,N,00007.67,W,0.0,0.0,010126,,")
	if _, ok := p.ingest(first, now); !ok {
		t.Fatal("expected first fix to pass the distance filter")
	}

	// Same position: under the 1 km filter.
	if _, ok := p.ingest(first, now.Add(time.Second)); ok {
		t.Error("expected unmoved fix to be filtered")
	}

	// ~1.8 km north (1 minute of latitude).
	far := sentence("GPRMC,120002.00,A,5131.44,N,00007.67,W,0.0,0.0,010126,,")
	if _, ok := p.ingest(far, now.Add(2*time.Second)); !ok {
		t.Error("expected moved fix to pass the distance filter")
	}
}

func TestIngestCoarseThrottle(t *testing.T) {
	p := newTestNMEA()
	p.SetDesiredAccuracy(AccuracyThreeKilometers)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	gga := sentence("GPGGA,120000.00,5130.44,N,00007.67,W,1,08,0.9,46.9,M,47.0,M,,")
	p.ingest(gga, now)
	rmc := sentence("GPRMC,120000.00,A,5130.44,N,00007.67,W,0.0,0.0,010126,,")

	if _, ok := p.ingest(rmc, now); !ok {
		t.Fatal("expected first coarse fix to be delivered")
	}
	if _, ok := p.ingest(rmc, now.Add(5*time.Second)); ok {
		t.Error("expected coarse fix inside the throttle window to be dropped")
	}
	if _, ok := p.ingest(rmc, now.Add(coarseReportInterval)); !ok {
		t.Error("expected coarse fix after the throttle window to be delivered")
	}
}

func TestDistanceMeters(t *testing.T) {
	// One minute of latitude is one nautical mile, ~1852 m.
	d := distanceMeters(51.0, 0.0, 51.0+1.0/60, 0.0)
	if math.Abs(d-1852) > 10 {
		t.Errorf("1 arcmin latitude = %f m, want ~1852", d)
	}

	if d := distanceMeters(51.5, -0.1, 51.5, -0.1); d != 0 {
		t.Errorf("identical points = %f m, want 0", d)
	}
}
