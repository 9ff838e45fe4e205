package geo

import (
	"math"
	"testing"
)

func TestUTMToWGS84_Trento(t *testing.T) {
	// Piazza Dante area, from the municipal station export (EPSG:32632).
	lat, lon, err := UTMToWGS84(663132.53, 5104569.75, 32)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(lat-46.072) > 0.01 {
		t.Errorf("lat = %f, want ~46.07", lat)
	}
	if math.Abs(lon-11.1097) > 0.001 {
		t.Errorf("lon = %f, want ~11.1097", lon)
	}
}

func TestUTMToWGS84_CentralMeridian(t *testing.T) {
	// A point on the central meridian maps back to exactly lon0 (9°E for zone 32).
	lat, lon, err := UTMToWGS84(utmFalseEasting, 5100000, 32)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(lon-9.0) > 1e-9 {
		t.Errorf("lon on central meridian = %.12f, want 9.0", lon)
	}
	if lat <= 45 || lat >= 47 {
		t.Errorf("lat = %f, want within (45,47)", lat)
	}
}

func TestUTMToWGS84_InvalidZone(t *testing.T) {
	for _, zone := range []int{0, 61, -3} {
		if _, _, err := UTMToWGS84(500000, 5000000, zone); err == nil {
			t.Errorf("zone %d should be rejected", zone)
		}
	}
}
