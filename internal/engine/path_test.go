package engine

import (
	"testing"
	"time"

	"github.com/pablasso/flightpath/internal/api"
)

func TestPathLandmarks(t *testing.T) {
	p := newPath(baseLaunch, samplePrediction(baseLaunch, 52, 0))

	if p.Launch.Altitude != 0 || !p.Launch.Datetime.Equal(baseLaunch) {
		t.Errorf("launch = %+v", p.Launch)
	}
	if p.Burst.Altitude != 30000 {
		t.Errorf("burst = %+v", p.Burst)
	}
	if p.Landing.Latitude != 52.2 {
		t.Errorf("landing = %+v", p.Landing)
	}
	if p.FlightDuration() != 2*time.Hour {
		t.Errorf("duration = %v", p.FlightDuration())
	}
	if d := p.Distance(); d < 20000 || d > 40000 {
		t.Errorf("distance = %v", d)
	}
	if p.MaxAltitude() != 30000 {
		t.Errorf("max altitude = %v", p.MaxAltitude())
	}
}

func TestPathWithoutAscentStage(t *testing.T) {
	pred := &api.Prediction{Prediction: []api.Stage{
		{Stage: api.StageFloat, Trajectory: []api.Point{
			{Datetime: baseLaunch, Altitude: 100},
			{Datetime: baseLaunch.Add(time.Hour), Altitude: 25000},
			{Datetime: baseLaunch.Add(2 * time.Hour), Altitude: 24900},
		}},
	}}
	p := newPath(baseLaunch, pred)
	if p.Burst.Altitude != 25000 {
		t.Errorf("burst = %+v", p.Burst)
	}

	empty := newPath(baseLaunch, &api.Prediction{})
	if len(empty.Points) != 0 || empty.FlightDuration() != 0 {
		t.Errorf("empty path = %+v", empty)
	}
}

func TestSliderRegister(t *testing.T) {
	var slid []time.Time
	s := newSlider(func(t time.Time) { slid = append(slid, t) })

	s.Register(baseLaunch.Add(2 * time.Hour))
	s.Register(baseLaunch)
	s.Register(baseLaunch.Add(time.Hour))
	s.Register(baseLaunch)

	if s.Len() != 0 {
		t.Error("times should not be published before Redraw")
	}
	s.Redraw()

	times := s.Times()
	if len(times) != 3 {
		t.Fatalf("times = %v", times)
	}
	for i := 1; i < len(times); i++ {
		if !times[i-1].Before(times[i]) {
			t.Errorf("times not sorted: %v", times)
		}
	}
	if len(slid) != 1 || !slid[0].Equal(baseLaunch) {
		t.Errorf("slide callbacks = %v", slid)
	}

	s.clear()
	if s.SetValue(0) || s.Visible() {
		t.Error("cleared slider should be empty")
	}
}

func TestStatus(t *testing.T) {
	if !StatusFailed.Terminal() || !StatusFinished.Terminal() {
		t.Error("failed and finished are terminal")
	}
	if StatusFailedShouldRerun.Terminal() || StatusRunning.Terminal() {
		t.Error("rerun and running are not terminal")
	}
	if StatusFailedShouldRerun.String() != "failed_should_rerun" {
		t.Errorf("String() = %q", StatusFailedShouldRerun.String())
	}
}
