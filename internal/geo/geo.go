// Package geo holds the small amount of coordinate math the predictor needs:
// longitude wrapping, unit conversion, distances and map bounds.
package geo

import (
	"fmt"
	"math"
)

// MetersPerFoot converts feet to meters.
const MetersPerFoot = 0.3048

const earthRadiusMeters = 6371008.8

// LatLng is a point in degrees.
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

func (p LatLng) String() string {
	return fmt.Sprintf("%.4f, %.4f", p.Lat, p.Lng)
}

// WrapLongitude maps any longitude into [0, 360), the range the prediction
// API expects.
func WrapLongitude(lon float64) float64 {
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	if lon >= 360 {
		lon = 0
	}
	return lon
}

// NormalizeLongitude maps any longitude into (-180, 180].
func NormalizeLongitude(lon float64) float64 {
	lon = WrapLongitude(lon)
	if lon > 180 {
		lon -= 360
	}
	return lon
}

// FeetToMeters converts a length or a rate from feet to meters.
func FeetToMeters(ft float64) float64 {
	return ft * MetersPerFoot
}

// MetersToFeet converts a length or a rate from meters to feet.
func MetersToFeet(m float64) float64 {
	return m / MetersPerFoot
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b LatLng) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLng := NormalizeLongitude(b.Lng - a.Lng)
	dLng = dLng * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}
