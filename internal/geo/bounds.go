package geo

import "math"

// Box is a rectangular map region. Longitudes are in (-180, 180] unless the
// box crosses the antimeridian, in which case NorthEast.Lng may exceed 180.
type Box struct {
	SouthWest LatLng `json:"south_west" yaml:"south_west"`
	NorthEast LatLng `json:"north_east" yaml:"north_east"`
}

// Center returns the middle of the box.
func (b Box) Center() LatLng {
	return LatLng{
		Lat: (b.SouthWest.Lat + b.NorthEast.Lat) / 2,
		Lng: NormalizeLongitude((b.SouthWest.Lng + b.NorthEast.Lng) / 2),
	}
}

// Contains reports whether p lies inside the box.
func (b Box) Contains(p LatLng) bool {
	if p.Lat < b.SouthWest.Lat || p.Lat > b.NorthEast.Lat {
		return false
	}
	lng := NormalizeLongitude(p.Lng)
	if b.NorthEast.Lng > 180 && lng < b.SouthWest.Lng {
		lng += 360
	}
	return lng >= b.SouthWest.Lng && lng <= b.NorthEast.Lng
}

// Bounds accumulates points so the map can be fitted to every drawn path.
// The zero value is empty and ready to use.
type Bounds struct {
	points []LatLng
}

// Add records a point.
func (b *Bounds) Add(p LatLng) {
	b.points = append(b.points, p)
}

// Clear forgets every point.
func (b *Bounds) Clear() {
	b.points = nil
}

// Len returns the number of recorded points.
func (b *Bounds) Len() int {
	return len(b.points)
}

// Box returns the smallest box around every recorded point. When the points
// straddle the antimeridian the narrower of the two possible boxes is used.
func (b *Bounds) Box() (Box, bool) {
	if len(b.points) == 0 {
		return Box{}, false
	}

	minLat, maxLat := math.Inf(1), math.Inf(-1)
	minLng, maxLng := math.Inf(1), math.Inf(-1)
	minWrapped, maxWrapped := math.Inf(1), math.Inf(-1)
	for _, p := range b.points {
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)

		lng := NormalizeLongitude(p.Lng)
		minLng = math.Min(minLng, lng)
		maxLng = math.Max(maxLng, lng)

		wrapped := WrapLongitude(p.Lng)
		minWrapped = math.Min(minWrapped, wrapped)
		maxWrapped = math.Max(maxWrapped, wrapped)
	}

	box := Box{
		SouthWest: LatLng{Lat: minLat, Lng: minLng},
		NorthEast: LatLng{Lat: maxLat, Lng: maxLng},
	}
	if maxWrapped-minWrapped < maxLng-minLng {
		box.SouthWest.Lng = NormalizeLongitude(minWrapped)
		box.NorthEast.Lng = box.SouthWest.Lng + (maxWrapped - minWrapped)
	}
	return box, true
}
