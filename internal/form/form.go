// Package form validates launch parameters entered by the user and turns
// them into a prediction sweep.
package form

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pablasso/flightpath/internal/api"
	"github.com/pablasso/flightpath/internal/engine"
	"github.com/pablasso/flightpath/internal/geo"
)

// Unit is the unit a length or rate was entered in.
type Unit string

const (
	Meters          Unit = "m"
	Feet            Unit = "ft"
	MetersPerSecond Unit = "m/s"
	FeetPerSecond   Unit = "ft/s"
)

// ParseUnit accepts m, ft, m/s and ft/s.
func ParseUnit(s string) (Unit, error) {
	switch u := Unit(strings.ToLower(strings.TrimSpace(s))); u {
	case Meters, Feet, MetersPerSecond, FeetPerSecond:
		return u, nil
	default:
		return "", fmt.Errorf("unknown unit %q", s)
	}
}

// ToMeters converts a value in u to meters (or m/s).
func (u Unit) ToMeters(v float64) float64 {
	if u == Feet || u == FeetPerSecond {
		return geo.FeetToMeters(v)
	}
	return v
}

// Toggle switches between metric and imperial.
func (u Unit) Toggle() Unit {
	switch u {
	case Feet:
		return Meters
	case MetersPerSecond:
		return FeetPerSecond
	case FeetPerSecond:
		return MetersPerSecond
	default:
		return Feet
	}
}

// Values is the raw form input.
type Values struct {
	Profile   string
	Latitude  float64
	Longitude float64

	// Altitude is optional; nil uses ground elevation.
	Altitude     *float64
	AltitudeUnit Unit

	AscentRate float64
	AscentUnit Unit

	BurstAltitude float64
	BurstUnit     Unit
	DescentRate   float64
	DescentUnit   Unit

	FloatAltitude float64
	FloatUnit     Unit
	StopTime      time.Time

	Launch time.Time
	Hourly int
}

// Window bounds the launch times the forecast covers.
type Window struct {
	Now      time.Time
	MinHours int
	MaxHours int
}

const launchStep = 5 * time.Minute

func NewWindow(now time.Time, minHours, maxHours int) Window {
	return Window{Now: now.UTC(), MinHours: minHours, MaxHours: maxHours}
}

// DefaultLaunch is now rounded up to the next five minutes.
func (w Window) DefaultLaunch() time.Time {
	t := w.Now.Truncate(launchStep)
	if t.Before(w.Now) {
		t = t.Add(launchStep)
	}
	return t
}

// Earliest is the first launch time the form accepts.
func (w Window) Earliest() time.Time {
	return w.DefaultLaunch().Add(-time.Duration(w.MinHours) * time.Hour)
}

// Latest is the last launch time the forecast covers.
func (w Window) Latest() time.Time {
	return w.Now.Add(time.Duration(w.MaxHours) * time.Hour).Truncate(launchStep)
}

// Contains reports whether launch is inside the window.
func (w Window) Contains(launch time.Time) bool {
	return !launch.Before(w.Earliest()) && !launch.After(w.Latest())
}

// MaxHourly is how many hourly launches starting at launch fit in the
// forecast.
func (w Window) MaxHourly(launch time.Time) int {
	if launch.After(w.Latest()) {
		return 0
	}
	return int(w.Latest().Sub(launch)/time.Hour) + 1
}

// FieldError is a validation failure for one input.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Errors collects every field that failed validation.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, "; ")
}

// Field returns the message for one field, if it failed.
func (e Errors) Field(name string) (string, bool) {
	for _, fe := range e {
		if fe.Field == name {
			return fe.Message, true
		}
	}
	return "", false
}

// Validate converts units, checks every field and clamps the hourly count
// to what the forecast covers.
func Validate(v Values, w Window) (engine.SweepRequest, error) {
	var errs Errors
	fail := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	profile := v.Profile
	if profile == "" {
		profile = api.ProfileStandard
	}
	if profile != api.ProfileStandard && profile != api.ProfileFloat {
		fail("profile", "must be %s or %s", api.ProfileStandard, api.ProfileFloat)
	}

	if !finite(v.Latitude) || v.Latitude < -90 || v.Latitude > 90 {
		fail("latitude", "must be between -90 and 90")
	}
	if !finite(v.Longitude) {
		fail("longitude", "must be a number")
	}

	params := api.Params{
		Profile:         profile,
		LaunchLatitude:  v.Latitude,
		LaunchLongitude: geo.WrapLongitude(v.Longitude),
		AscentRate:      v.AscentUnit.ToMeters(v.AscentRate),
	}

	var launchAlt float64
	if v.Altitude != nil {
		launchAlt = v.AltitudeUnit.ToMeters(*v.Altitude)
		if !finite(launchAlt) {
			fail("altitude", "must be a number")
		}
		params.LaunchAltitude = &launchAlt
	}

	if !(params.AscentRate > 0) {
		fail("ascent_rate", "must be greater than zero")
	}

	switch profile {
	case api.ProfileFloat:
		params.FloatAltitude = v.FloatUnit.ToMeters(v.FloatAltitude)
		params.StopTime = v.StopTime.UTC()
		if !(params.FloatAltitude > launchAlt) {
			fail("float_altitude", "must be above the launch altitude")
		}
		if !v.StopTime.After(v.Launch) {
			fail("stop_time", "must be after the launch time")
		}
	default:
		params.BurstAltitude = v.BurstUnit.ToMeters(v.BurstAltitude)
		params.DescentRate = v.DescentUnit.ToMeters(v.DescentRate)
		if !(params.BurstAltitude > launchAlt) {
			fail("burst_altitude", "must be above the launch altitude")
		}
		if !(params.DescentRate > 0) {
			fail("descent_rate", "must be greater than zero")
		}
	}

	launch := v.Launch.UTC()
	if launch.IsZero() {
		fail("launch", "is required")
	} else if !w.Contains(launch) {
		fail("launch", "must be between %s and %s",
			w.Earliest().Format(time.RFC3339), w.Latest().Format(time.RFC3339))
	}

	hourly := v.Hourly
	if hourly < 1 {
		fail("hourly", "must be at least 1")
	} else if limit := w.MaxHourly(launch); limit > 0 && hourly > limit {
		hourly = limit
	}

	if len(errs) > 0 {
		return engine.SweepRequest{}, errs
	}
	return engine.SweepRequest{Params: params, Launch: launch, Hourly: hourly}, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
