package engine

import (
	"time"

	"github.com/pablasso/flightpath/internal/api"
	"github.com/pablasso/flightpath/internal/geo"
)

// Path is the rendered trajectory of one finished task.
type Path struct {
	LaunchTime time.Time
	Prediction *api.Prediction
	Points     []api.Point

	Launch  api.Point
	Burst   api.Point
	Landing api.Point

	dimmed bool
}

func newPath(launchTime time.Time, prediction *api.Prediction) *Path {
	p := &Path{
		LaunchTime: launchTime,
		Prediction: prediction,
		Points:     prediction.Points(),
	}
	if len(p.Points) == 0 {
		return p
	}

	p.Launch = p.Points[0]
	p.Landing = p.Points[len(p.Points)-1]

	if ascent, ok := prediction.Stage(api.StageAscent); ok && len(ascent.Trajectory) > 0 {
		p.Burst = ascent.Trajectory[len(ascent.Trajectory)-1]
	} else {
		p.Burst = p.Points[0]
		for _, pt := range p.Points {
			if pt.Altitude > p.Burst.Altitude {
				p.Burst = pt
			}
		}
	}
	return p
}

// Dimmed reports whether the path is drawn faded because another launch
// time is selected.
func (p *Path) Dimmed() bool {
	return p.dimmed
}

// FlightDuration is the time from launch to landing.
func (p *Path) FlightDuration() time.Duration {
	return p.Landing.Datetime.Sub(p.Launch.Datetime)
}

// Distance is the ground distance from launch to landing in meters.
func (p *Path) Distance() float64 {
	return geo.Distance(p.Launch.LatLng(), p.Landing.LatLng())
}

// MaxAltitude is the highest altitude reached in meters.
func (p *Path) MaxAltitude() float64 {
	var highest float64
	for _, pt := range p.Points {
		if pt.Altitude > highest {
			highest = pt.Altitude
		}
	}
	return highest
}
