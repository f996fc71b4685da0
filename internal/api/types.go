package api

import (
	"time"

	"github.com/pablasso/flightpath/internal/geo"
)

// Stage names returned by the prediction service.
const (
	StageAscent  = "ascent"
	StageDescent = "descent"
	StageFloat   = "float"
)

// Point is one trajectory sample.
type Point struct {
	Datetime  time.Time `json:"datetime" yaml:"datetime"`
	Latitude  float64   `json:"latitude" yaml:"latitude"`
	Longitude float64   `json:"longitude" yaml:"longitude"`
	Altitude  float64   `json:"altitude" yaml:"altitude"`
}

// LatLng returns the point's position with longitude normalized to (-180, 180].
func (p Point) LatLng() geo.LatLng {
	return geo.LatLng{Lat: p.Latitude, Lng: geo.NormalizeLongitude(p.Longitude)}
}

// Stage is one leg of a flight.
type Stage struct {
	Stage      string  `json:"stage" yaml:"stage"`
	Trajectory []Point `json:"trajectory" yaml:"trajectory"`
}

// Metadata describes when the service computed the prediction.
type Metadata struct {
	StartTime    time.Time `json:"start_time" yaml:"start_time"`
	CompleteTime time.Time `json:"complete_time" yaml:"complete_time"`
}

// Prediction is a successful response body.
type Prediction struct {
	Request    map[string]any `json:"request,omitempty" yaml:"request,omitempty"`
	Prediction []Stage        `json:"prediction" yaml:"prediction"`
	Metadata   Metadata       `json:"metadata" yaml:"metadata"`
	Warnings   map[string]any `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Stage returns the first stage with the given name.
func (p *Prediction) Stage(name string) (Stage, bool) {
	for _, s := range p.Prediction {
		if s.Stage == name {
			return s, true
		}
	}
	return Stage{}, false
}

// Points returns every trajectory sample in flight order.
func (p *Prediction) Points() []Point {
	var n int
	for _, s := range p.Prediction {
		n += len(s.Trajectory)
	}
	points := make([]Point, 0, n)
	for _, s := range p.Prediction {
		points = append(points, s.Trajectory...)
	}
	return points
}

type errorEnvelope struct {
	Error *struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"error"`
}
