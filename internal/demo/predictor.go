// Package demo provides an offline stand-in for the prediction service so
// the TUI can be shown without network access.
package demo

import (
	"context"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/pablasso/flightpath/internal/api"
	"github.com/pablasso/flightpath/internal/engine"
)

// Compile-time interface verification
var _ engine.Predictor = (*Predictor)(nil)

const (
	sampleInterval   = time.Minute
	metersPerDegree  = 111320.0
	densityScale     = 14000.0
	floatSampleEvery = 10 * time.Minute
)

// Predictor synthesizes trajectories and injects failures per scenario.
type Predictor struct {
	config Config

	mu       sync.Mutex
	attempts map[int64]int
}

// NewPredictor creates a new Predictor with the given configuration.
func NewPredictor(config Config) *Predictor {
	return &Predictor{
		config:   config,
		attempts: make(map[int64]int),
	}
}

// Predict implements engine.Predictor.
func (d *Predictor) Predict(ctx context.Context, p api.Params) (*api.Prediction, error) {
	launch := p.LaunchDatetime.UTC()

	d.mu.Lock()
	d.attempts[launch.Unix()]++
	attempt := d.attempts[launch.Unix()]
	d.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, &api.Error{Kind: api.KindTransport, Err: ctx.Err()}
	case <-time.After(d.latency(launch)):
	}

	if shouldFail(d.config.Scenario, launch, attempt) {
		return nil, &api.Error{
			Kind:        api.KindServer,
			StatusCode:  http.StatusServiceUnavailable,
			Type:        "InternalException",
			Description: "demo injected failure",
		}
	}
	return Simulate(p), nil
}

// Attempts returns how many requests were made for a launch time.
func (d *Predictor) Attempts(launch time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts[launch.UTC().Unix()]
}

func (d *Predictor) latency(launch time.Time) time.Duration {
	if d.config.Latency <= 0 {
		return 0
	}
	// Deterministic spread so later hours tend to finish first.
	spread := time.Duration(float64(d.config.Jitter) * (1 - float64(slot(launch))/5))
	return d.config.Latency + spread
}

// wind returns the east and north drift in m/s at an altitude. The jet
// stream strength varies with the launch hour.
func wind(launch time.Time, altitude float64) (east, north float64) {
	phase := float64(launch.Hour()) / 24 * 2 * math.Pi
	jet := math.Exp(-math.Pow((altitude-11000)/5000, 2))
	east = 4 + 30*jet*(1+0.3*math.Sin(phase))
	north = 2 + 6*jet*math.Cos(phase)
	return east, north
}

type state struct {
	t        time.Time
	lat, lng float64
	alt      float64
}

func (s *state) drift(launch time.Time, dt time.Duration) {
	east, north := wind(launch, s.alt)
	secs := dt.Seconds()
	s.lat += north * secs / metersPerDegree
	s.lng += east * secs / (metersPerDegree * math.Cos(s.lat*math.Pi/180))
	s.t = s.t.Add(dt)
}

func (s *state) point() api.Point {
	lng := math.Mod(s.lng, 360)
	if lng < 0 {
		lng += 360
	}
	return api.Point{Datetime: s.t, Latitude: s.lat, Longitude: lng, Altitude: s.alt}
}

// Simulate builds a plausible trajectory for p without any network access.
func Simulate(p api.Params) *api.Prediction {
	launch := p.LaunchDatetime.UTC()
	s := &state{t: launch, lat: p.LaunchLatitude, lng: p.LaunchLongitude}
	if p.LaunchAltitude != nil {
		s.alt = *p.LaunchAltitude
	}
	ground := s.alt

	ascentRate := math.Max(p.AscentRate, 0.5)
	top := p.BurstAltitude
	if p.Profile == api.ProfileFloat {
		top = p.FloatAltitude
	}
	top = math.Max(top, ground+100)

	ascent := []api.Point{s.point()}
	for s.alt < top {
		s.drift(launch, sampleInterval)
		s.alt = math.Min(top, s.alt+ascentRate*sampleInterval.Seconds())
		ascent = append(ascent, s.point())
	}

	prediction := &api.Prediction{
		Request: map[string]any{
			"profile":         p.Profile,
			"launch_datetime": launch.Format(time.RFC3339),
			"dataset":         launch.Truncate(6 * time.Hour).Format(time.RFC3339),
		},
		Prediction: []api.Stage{{Stage: api.StageAscent, Trajectory: ascent}},
		Metadata: api.Metadata{
			StartTime:    time.Now().UTC(),
			CompleteTime: time.Now().UTC(),
		},
	}

	if p.Profile == api.ProfileFloat {
		float := []api.Point{s.point()}
		stop := p.StopTime.UTC()
		for s.t.Before(stop) {
			s.drift(launch, floatSampleEvery)
			float = append(float, s.point())
		}
		prediction.Prediction = append(prediction.Prediction, api.Stage{Stage: api.StageFloat, Trajectory: float})
		return prediction
	}

	descentRate := math.Max(p.DescentRate, 0.5)
	descent := []api.Point{s.point()}
	for s.alt > ground {
		s.drift(launch, sampleInterval)
		// Thinner air at altitude makes the parachute fall faster.
		rate := descentRate * math.Exp((s.alt-ground)/densityScale)
		s.alt = math.Max(ground, s.alt-rate*sampleInterval.Seconds())
		descent = append(descent, s.point())
	}
	prediction.Prediction = append(prediction.Prediction, api.Stage{Stage: api.StageDescent, Trajectory: descent})
	return prediction
}
