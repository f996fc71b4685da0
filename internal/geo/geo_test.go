package geo

import (
	"math"
	"testing"
)

func TestWrapLongitude(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{-0.5, 359.5},
		{-180, 180},
		{360, 0},
		{725, 5},
		{-725, 355},
	}

	for _, tt := range tests {
		if got := WrapLongitude(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("WrapLongitude(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeLongitude(t *testing.T) {
	if got := NormalizeLongitude(359.5); math.Abs(got+0.5) > 1e-9 {
		t.Errorf("NormalizeLongitude(359.5) = %v, want -0.5", got)
	}
	if got := NormalizeLongitude(180); got != 180 {
		t.Errorf("NormalizeLongitude(180) = %v, want 180", got)
	}
}

func TestFeetToMeters(t *testing.T) {
	if got := FeetToMeters(1000); math.Abs(got-304.8) > 1e-9 {
		t.Errorf("FeetToMeters(1000) = %v, want 304.8", got)
	}
	if got := MetersToFeet(FeetToMeters(42)); math.Abs(got-42) > 1e-9 {
		t.Errorf("round trip = %v, want 42", got)
	}
}

func TestDistance(t *testing.T) {
	// One degree of latitude is roughly 111.2 km.
	d := Distance(LatLng{Lat: 0, Lng: 0}, LatLng{Lat: 1, Lng: 0})
	if d < 111000 || d > 111400 {
		t.Errorf("Distance = %v, want ~111200", d)
	}

	// Wrapped and unwrapped forms of the same point are the same place.
	d = Distance(LatLng{Lat: 52, Lng: -0.5}, LatLng{Lat: 52, Lng: 359.5})
	if d > 1e-6 {
		t.Errorf("Distance across wrap = %v, want 0", d)
	}
}

func TestBoundsEmpty(t *testing.T) {
	var b Bounds
	if _, ok := b.Box(); ok {
		t.Error("expected no box for empty bounds")
	}
}

func TestBoundsBox(t *testing.T) {
	var b Bounds
	b.Add(LatLng{Lat: 52.0, Lng: 0.1})
	b.Add(LatLng{Lat: 52.5, Lng: 1.5})
	b.Add(LatLng{Lat: 51.8, Lng: 359.9})

	box, ok := b.Box()
	if !ok {
		t.Fatal("expected a box")
	}
	if box.SouthWest.Lat != 51.8 || box.NorthEast.Lat != 52.5 {
		t.Errorf("lat range = %v..%v", box.SouthWest.Lat, box.NorthEast.Lat)
	}
	if math.Abs(box.SouthWest.Lng+0.1) > 1e-9 || math.Abs(box.NorthEast.Lng-1.5) > 1e-9 {
		t.Errorf("lng range = %v..%v", box.SouthWest.Lng, box.NorthEast.Lng)
	}
	if !box.Contains(LatLng{Lat: 52.1, Lng: 0}) {
		t.Error("expected box to contain an interior point")
	}

	b.Clear()
	if b.Len() != 0 {
		t.Errorf("Len after Clear = %d", b.Len())
	}
}

func TestBoundsAntimeridian(t *testing.T) {
	var b Bounds
	b.Add(LatLng{Lat: -40, Lng: 179})
	b.Add(LatLng{Lat: -41, Lng: -179})

	box, _ := b.Box()
	span := box.NorthEast.Lng - box.SouthWest.Lng
	if math.Abs(span-2) > 1e-9 {
		t.Errorf("span = %v, want 2", span)
	}
	if !box.Contains(LatLng{Lat: -40.5, Lng: 180}) {
		t.Error("expected box to contain the antimeridian")
	}
}
