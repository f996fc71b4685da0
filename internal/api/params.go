package api

import (
	"net/url"
	"strconv"
	"time"

	"github.com/pablasso/flightpath/internal/geo"
)

// Flight profiles understood by the prediction service.
const (
	ProfileStandard = "standard_profile"
	ProfileFloat    = "float_profile"
)

// Params is one prediction request. Rates are in m/s, altitudes in meters,
// coordinates in degrees.
type Params struct {
	Profile         string
	LaunchLatitude  float64
	LaunchLongitude float64
	// LaunchAltitude is optional; nil lets the service use ground elevation.
	LaunchAltitude *float64
	LaunchDatetime time.Time
	AscentRate     float64

	// Standard profile.
	BurstAltitude float64
	DescentRate   float64

	// Float profile.
	FloatAltitude float64
	StopTime      time.Time

	// Dataset pins a specific forecast run. Zero means latest.
	Dataset time.Time
	// Version is sent as the version parameter when non-zero.
	Version int
}

// Values encodes the request as query parameters.
func (p Params) Values() url.Values {
	v := url.Values{}

	profile := p.Profile
	if profile == "" {
		profile = ProfileStandard
	}
	v.Set("profile", profile)
	v.Set("launch_latitude", formatFloat(p.LaunchLatitude))
	v.Set("launch_longitude", formatFloat(geo.WrapLongitude(p.LaunchLongitude)))
	if p.LaunchAltitude != nil {
		v.Set("launch_altitude", formatFloat(*p.LaunchAltitude))
	}
	v.Set("launch_datetime", formatTime(p.LaunchDatetime))
	v.Set("ascent_rate", formatFloat(p.AscentRate))

	switch profile {
	case ProfileFloat:
		v.Set("float_altitude", formatFloat(p.FloatAltitude))
		v.Set("stop_time", formatTime(p.StopTime))
	default:
		v.Set("burst_altitude", formatFloat(p.BurstAltitude))
		v.Set("descent_rate", formatFloat(p.DescentRate))
	}

	if !p.Dataset.IsZero() {
		v.Set("dataset", formatTime(p.Dataset))
	}
	if p.Version > 0 {
		v.Set("version", strconv.Itoa(p.Version))
	}
	return v
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
