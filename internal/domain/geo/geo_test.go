package geo

import (
	"math"
	"testing"
)

func TestHaversineKm_SamePoint(t *testing.T) {
	if d := HaversineKm(35.4544, 139.6368, 35.4544, 139.6368); d != 0 {
		t.Fatalf("distance to self = %f, want 0", d)
	}
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	// Yokohama station to Tokyo station, roughly 27 km.
	d := HaversineKm(35.4660, 139.6226, 35.6812, 139.7671)
	if d < 25 || d > 29 {
		t.Fatalf("Yokohama-Tokyo = %f km, want ~27", d)
	}
}

func TestHaversineKm_Symmetric(t *testing.T) {
	a := HaversineKm(35.0, 139.0, 36.0, 140.0)
	b := HaversineKm(36.0, 140.0, 35.0, 139.0)
	if math.Abs(a-b) > 1e-9 {
		t.Fatalf("asymmetric: %f vs %f", a, b)
	}
}

func TestValidateCoordinates(t *testing.T) {
	cases := []struct {
		lat, lon float64
		want     bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{90.1, 0, false},
		{-91, 0, false},
		{0, 180.5, false},
		{0, -181, false},
	}
	for _, c := range cases {
		if got := ValidateCoordinates(c.lat, c.lon); got != c.want {
			t.Errorf("ValidateCoordinates(%f, %f) = %v, want %v", c.lat, c.lon, got, c.want)
		}
	}
}
