package engine

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/pablasso/flightpath/internal/api"
	"github.com/pablasso/flightpath/internal/geo"
	"github.com/pablasso/flightpath/internal/notify"
)

var baseLaunch = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func samplePrediction(launch time.Time, lat, lng float64) *api.Prediction {
	return &api.Prediction{
		Prediction: []api.Stage{
			{Stage: api.StageAscent, Trajectory: []api.Point{
				{Datetime: launch, Latitude: lat, Longitude: lng, Altitude: 0},
				{Datetime: launch.Add(90 * time.Minute), Latitude: lat + 0.1, Longitude: lng + 0.2, Altitude: 30000},
			}},
			{Stage: api.StageDescent, Trajectory: []api.Point{
				{Datetime: launch.Add(90 * time.Minute), Latitude: lat + 0.1, Longitude: lng + 0.2, Altitude: 30000},
				{Datetime: launch.Add(120 * time.Minute), Latitude: lat + 0.2, Longitude: lng + 0.4, Altitude: 0},
			}},
		},
	}
}

// fakePredictor answers from respond. Launch times with a gate block until
// the gate is closed or the request is canceled.
type fakePredictor struct {
	mu       sync.Mutex
	attempts map[int64]int
	gates    map[int64]chan struct{}
	canceled chan time.Time
	respond  func(launch time.Time, attempt int) (*api.Prediction, error)
}

func newFakePredictor(respond func(launch time.Time, attempt int) (*api.Prediction, error)) *fakePredictor {
	if respond == nil {
		respond = func(launch time.Time, attempt int) (*api.Prediction, error) {
			return samplePrediction(launch, 52, 0), nil
		}
	}
	return &fakePredictor{
		attempts: make(map[int64]int),
		gates:    make(map[int64]chan struct{}),
		canceled: make(chan time.Time, 16),
		respond:  respond,
	}
}

func (f *fakePredictor) gate(launch time.Time) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := make(chan struct{})
	f.gates[timeKey(launch)] = g
	return g
}

func (f *fakePredictor) Predict(ctx context.Context, p api.Params) (*api.Prediction, error) {
	key := timeKey(p.LaunchDatetime)

	f.mu.Lock()
	f.attempts[key]++
	attempt := f.attempts[key]
	gate := f.gates[key]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			f.canceled <- p.LaunchDatetime
			return nil, ctx.Err()
		}
	}
	return f.respond(p.LaunchDatetime, attempt)
}

func (f *fakePredictor) Attempts(launch time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[timeKey(launch)]
}

type fakeCanvas struct {
	attached map[int64]bool
	dimmed   map[int64]bool
	fits     []geo.Box
}

func newFakeCanvas() *fakeCanvas {
	return &fakeCanvas{attached: make(map[int64]bool), dimmed: make(map[int64]bool)}
}

func (c *fakeCanvas) Attach(p *Path) { c.attached[timeKey(p.LaunchTime)] = true }
func (c *fakeCanvas) Detach(p *Path) { delete(c.attached, timeKey(p.LaunchTime)) }
func (c *fakeCanvas) SetDimmed(p *Path, dimmed bool) {
	c.dimmed[timeKey(p.LaunchTime)] = dimmed
}
func (c *fakeCanvas) FitBounds(box geo.Box) { c.fits = append(c.fits, box) }

type mockEvents struct {
	started   int
	finished  []time.Time
	retried   []time.Time
	failed    []time.Time
	progress  []int
	completed []*Batch
}

func (m *mockEvents) OnTaskStart(b *Batch, t *Task)    { m.started++ }
func (m *mockEvents) OnTaskFinished(b *Batch, t *Task) { m.finished = append(m.finished, t.LaunchTime) }
func (m *mockEvents) OnTaskRetry(b *Batch, t *Task)    { m.retried = append(m.retried, t.LaunchTime) }
func (m *mockEvents) OnTaskFailed(b *Batch, t *Task)   { m.failed = append(m.failed, t.LaunchTime) }
func (m *mockEvents) OnProgress(b *Batch, percent int) { m.progress = append(m.progress, percent) }
func (m *mockEvents) OnBatchComplete(b *Batch)         { m.completed = append(m.completed, b) }

type harness struct {
	orch      *Orchestrator
	predictor *fakePredictor
	canvas    *fakeCanvas
	events    *mockEvents
	notes     *notify.Center
}

func newHarness(t *testing.T, p *fakePredictor, retry RetryPolicy) *harness {
	t.Helper()
	h := &harness{
		predictor: p,
		canvas:    newFakeCanvas(),
		events:    &mockEvents{},
		notes:     notify.NewCenter(),
	}
	o, err := New(Options{
		Predictor: p,
		Canvas:    h.canvas,
		Notifier:  h.notes,
		Events:    h.events,
		Retry:     retry,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(o.Close)
	h.orch = o
	return h
}

func (h *harness) receive(t *testing.T) Completion {
	t.Helper()
	select {
	case c := <-h.orch.Completions():
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for completion")
		return Completion{}
	}
}

func (h *harness) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.orch.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func (h *harness) countLevel(level notify.Level) int {
	var n int
	for _, note := range h.notes.Active() {
		if note.Level == level {
			n += note.Count
		}
	}
	return n
}

func sweep(hourly int) SweepRequest {
	return SweepRequest{
		Params: api.Params{LaunchLatitude: 52, LaunchLongitude: 0, AscentRate: 5, BurstAltitude: 30000, DescentRate: 5},
		Launch: baseLaunch,
		Hourly: hourly,
	}
}

func noBackoff(maxReruns int) RetryPolicy {
	return RetryPolicy{MaxReruns: maxReruns}
}

func unavailable(launch time.Time, attempt int) (*api.Prediction, error) {
	return nil, &api.Error{Kind: api.KindServer, StatusCode: http.StatusServiceUnavailable}
}

func TestNewRequiresPredictor(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected error without predictor")
	}
	if _, err := New(Options{Predictor: newFakePredictor(nil), Retry: RetryPolicy{MaxReruns: -1}}); err == nil {
		t.Error("expected error for negative reruns")
	}
}

func TestSweepLaunchTimes(t *testing.T) {
	times := sweep(3).LaunchTimes()
	if len(times) != 3 {
		t.Fatalf("len = %d", len(times))
	}
	if !times[2].Equal(baseLaunch.Add(2 * time.Hour)) {
		t.Errorf("times[2] = %v", times[2])
	}
}

func TestPredictRejectsEmptySweep(t *testing.T) {
	h := newHarness(t, newFakePredictor(nil), noBackoff(3))
	if _, err := h.orch.Predict(sweep(0)); err == nil {
		t.Error("expected error for hourly 0")
	}
	req := sweep(1)
	req.Launch = time.Time{}
	if _, err := h.orch.Predict(req); err == nil {
		t.Error("expected error for zero launch time")
	}
}

func TestReverseOrderCompletion(t *testing.T) {
	p := newFakePredictor(nil)
	times := sweep(3).LaunchTimes()
	gates := make([]chan struct{}, len(times))
	for i, lt := range times {
		gates[i] = p.gate(lt)
	}
	h := newHarness(t, p, noBackoff(3))

	b, err := h.orch.Predict(sweep(3))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if b.Progress() != 0 || b.Running() != 3 || b.Expected() != 3 {
		t.Fatalf("initial progress=%d running=%d expected=%d", b.Progress(), b.Running(), b.Expected())
	}

	want := []int{33, 67, 100}
	for i := 2; i >= 0; i-- {
		close(gates[i])
		h.orch.Deliver(h.receive(t))
		if got := b.Progress(); got != want[2-i] {
			t.Errorf("after releasing %d: progress = %d, want %d", i, got, want[2-i])
		}
	}

	if len(h.events.completed) != 1 {
		t.Fatalf("batch completed %d times, want 1", len(h.events.completed))
	}
	if len(h.canvas.fits) != 1 {
		t.Errorf("FitBounds called %d times, want 1", len(h.canvas.fits))
	}

	slider := h.orch.Slider()
	got := slider.Times()
	if len(got) != 3 {
		t.Fatalf("slider times = %v", got)
	}
	for i := range got {
		if !got[i].Equal(times[i]) {
			t.Errorf("slider[%d] = %v, want %v", i, got[i], times[i])
		}
	}
	if !slider.Visible() || slider.Value() != 0 {
		t.Errorf("slider visible=%v value=%d", slider.Visible(), slider.Value())
	}

	sel, ok := b.Selected()
	if !ok || !sel.Equal(times[0]) {
		t.Fatalf("selected = %v, %v", sel, ok)
	}
	for i, lt := range times {
		path, ok := b.Path(lt)
		if !ok {
			t.Fatalf("missing path %d", i)
		}
		if path.Dimmed() != (i != 0) {
			t.Errorf("path %d dimmed = %v", i, path.Dimmed())
		}
	}
	if h.countLevel(notify.LevelError) != 0 {
		t.Error("unexpected error notification")
	}
}

func TestExhaustedTask(t *testing.T) {
	times := sweep(2).LaunchTimes()
	p := newFakePredictor(func(launch time.Time, attempt int) (*api.Prediction, error) {
		if launch.Equal(times[1]) {
			return unavailable(launch, attempt)
		}
		return samplePrediction(launch, 52, 0), nil
	})
	h := newHarness(t, p, noBackoff(3))

	b, err := h.orch.Predict(sweep(2))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	h.drain(t)

	failed, _ := b.Task(times[1])
	if failed.Status != StatusFailed {
		t.Errorf("status = %v, want failed", failed.Status)
	}
	if failed.Reruns != 3 || failed.Attempts() != 4 || p.Attempts(times[1]) != 4 {
		t.Errorf("reruns=%d attempts=%d sent=%d", failed.Reruns, failed.Attempts(), p.Attempts(times[1]))
	}
	if b.Expected() != 1 || b.Running() != 0 || b.Progress() != 100 {
		t.Errorf("expected=%d running=%d progress=%d", b.Expected(), b.Running(), b.Progress())
	}
	if len(b.Paths()) != 1 {
		t.Errorf("paths = %d, want 1", len(b.Paths()))
	}
	if _, ok := b.Path(times[1]); ok {
		t.Error("exhausted task must not have a path")
	}
	if got := h.countLevel(notify.LevelError); got != 1 {
		t.Errorf("error notifications = %d, want 1", got)
	}
	if got := h.countLevel(notify.LevelInfo); got != 3 {
		t.Errorf("retry notifications = %d, want 3", got)
	}
	if len(h.events.failed) != 1 || len(h.events.retried) != 3 || len(h.events.completed) != 1 {
		t.Errorf("events failed=%d retried=%d completed=%d",
			len(h.events.failed), len(h.events.retried), len(h.events.completed))
	}
	if h.orch.Slider().Visible() {
		t.Error("slider with one time should be hidden")
	}
}

func TestResetMidBatchIgnoresLateSuccess(t *testing.T) {
	p := newFakePredictor(nil)
	times := sweep(3).LaunchTimes()
	gates := make([]chan struct{}, len(times))
	for i, lt := range times {
		gates[i] = p.gate(lt)
	}
	h := newHarness(t, p, noBackoff(3))

	b, err := h.orch.Predict(sweep(3))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	close(gates[0])
	h.orch.Deliver(h.receive(t))
	if len(b.Paths()) != 1 {
		t.Fatalf("paths = %d, want 1", len(b.Paths()))
	}

	close(gates[1])
	late := h.receive(t)

	h.orch.Reset()
	if !b.Removed() {
		t.Fatal("batch should be removed")
	}
	if len(h.canvas.attached) != 0 {
		t.Errorf("attached after reset = %d", len(h.canvas.attached))
	}

	h.orch.Deliver(late)
	if len(b.Paths()) != 0 {
		t.Error("late completion created a path")
	}
	if _, ok := h.orch.Bounds(); ok {
		t.Error("late completion extended bounds")
	}
	if len(h.orch.Slider().Times()) != 0 {
		t.Error("late completion reached the slider")
	}
	if len(h.events.completed) != 0 {
		t.Error("removed batch should not complete")
	}

	select {
	case lt := <-p.canceled:
		if !lt.Equal(times[2]) {
			t.Errorf("canceled %v, want %v", lt, times[2])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight request was not canceled")
	}
}

func TestRetryThenFinish(t *testing.T) {
	p := newFakePredictor(func(launch time.Time, attempt int) (*api.Prediction, error) {
		if attempt <= 2 {
			return nil, &api.Error{Kind: api.KindTimeout}
		}
		return samplePrediction(launch, 52, 0), nil
	})
	h := newHarness(t, p, noBackoff(3))

	b, err := h.orch.Predict(sweep(1))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	h.drain(t)

	task, _ := b.Task(baseLaunch)
	if task.Status != StatusFinished || task.Reruns != 2 || task.Err != nil {
		t.Errorf("status=%v reruns=%d err=%v", task.Status, task.Reruns, task.Err)
	}
	if got := h.countLevel(notify.LevelError); got != 0 {
		t.Errorf("error notifications = %d", got)
	}
	if got := h.countLevel(notify.LevelInfo); got != 2 {
		t.Errorf("retry notifications = %d, want 2", got)
	}
	if h.events.started != 3 {
		t.Errorf("attempts started = %d, want 3", h.events.started)
	}
}

func TestNonRetryableFailsImmediately(t *testing.T) {
	badRequest := func(launch time.Time, attempt int) (*api.Prediction, error) {
		return nil, &api.Error{Kind: api.KindServer, StatusCode: http.StatusBadRequest,
			Type: "RequestException", Description: "Latitude out of range"}
	}

	h := newHarness(t, newFakePredictor(badRequest), noBackoff(3))
	b, _ := h.orch.Predict(sweep(1))
	h.drain(t)

	task, _ := b.Task(baseLaunch)
	if task.Status != StatusFailed || task.Attempts() != 1 {
		t.Errorf("status=%v attempts=%d", task.Status, task.Attempts())
	}
	active := h.notes.Active()
	if len(active) != 1 || active[0].Message != "Prediction for 2026-10-17 12:00 UTC failed: Latitude out of range" {
		t.Errorf("notifications = %+v", active)
	}

	uniform := newHarness(t, newFakePredictor(badRequest), RetryPolicy{MaxReruns: 2, Uniform: true})
	b, _ = uniform.orch.Predict(sweep(1))
	uniform.drain(t)
	task, _ = b.Task(baseLaunch)
	if task.Status != StatusFailed || task.Attempts() != 3 {
		t.Errorf("uniform: status=%v attempts=%d", task.Status, task.Attempts())
	}
}

func TestAllFailedStillCompletes(t *testing.T) {
	h := newHarness(t, newFakePredictor(unavailable), noBackoff(0))
	b, _ := h.orch.Predict(sweep(3))
	h.drain(t)

	if b.Progress() != 100 || !b.Completed() || b.Expected() != 0 {
		t.Errorf("progress=%d completed=%v expected=%d", b.Progress(), b.Completed(), b.Expected())
	}
	if len(h.events.completed) != 1 {
		t.Errorf("completed %d times", len(h.events.completed))
	}
	if h.orch.Slider().Len() != 0 {
		t.Error("slider should be empty")
	}
	if len(h.canvas.fits) != 0 {
		t.Error("nothing to fit")
	}
	if got := h.countLevel(notify.LevelError); got != 3 {
		t.Errorf("error notifications = %d, want 3", got)
	}
}

func TestSelectPathByTime(t *testing.T) {
	h := newHarness(t, newFakePredictor(nil), noBackoff(0))
	b, _ := h.orch.Predict(sweep(3))
	h.drain(t)
	times := sweep(3).LaunchTimes()

	b.SelectPathByTime(times[2])
	for i, lt := range times {
		path, _ := b.Path(lt)
		if path.Dimmed() != (i != 2) {
			t.Errorf("path %d dimmed = %v", i, path.Dimmed())
		}
		if h.canvas.dimmed[timeKey(lt)] != path.Dimmed() {
			t.Errorf("canvas out of sync for path %d", i)
		}
	}

	absent := baseLaunch.Add(-time.Hour)
	for i := 0; i < 2; i++ {
		b.SelectPathByTime(absent)
		if _, ok := b.Selected(); ok {
			t.Fatal("absent time should clear the selection")
		}
		for _, path := range b.Paths() {
			if !path.Dimmed() {
				t.Errorf("round %d: path %v should be dimmed", i, path.LaunchTime)
			}
		}
	}
}

func TestSliderDrivesSelection(t *testing.T) {
	h := newHarness(t, newFakePredictor(nil), noBackoff(0))
	b, _ := h.orch.Predict(sweep(3))
	h.drain(t)
	times := sweep(3).LaunchTimes()

	slider := h.orch.Slider()
	slider.Step(1)
	if sel, _ := b.Selected(); !sel.Equal(times[1]) {
		t.Errorf("selected = %v, want %v", sel, times[1])
	}
	slider.Step(10)
	if slider.Value() != 2 {
		t.Errorf("value = %d, want clamp to 2", slider.Value())
	}
	if !slider.SetValueByLaunchTime(times[0]) {
		t.Error("SetValueByLaunchTime returned false")
	}
	if slider.SetValueByLaunchTime(baseLaunch.Add(time.Minute)) {
		t.Error("unknown time should not be selectable")
	}
	if cur, ok := slider.Current(); !ok || !cur.Equal(times[0]) {
		t.Errorf("current = %v", cur)
	}
}

func TestDeliverDropsStaleAttempt(t *testing.T) {
	h := newHarness(t, newFakePredictor(nil), noBackoff(0))
	b, _ := h.orch.Predict(sweep(1))
	h.drain(t)

	task, _ := b.Task(baseLaunch)
	h.orch.Deliver(Completion{task: task, generation: b.generation, attempt: task.Attempts(), err: errors.New("late")})
	if task.Status != StatusFinished || task.Err != nil {
		t.Errorf("terminal task changed: status=%v err=%v", task.Status, task.Err)
	}
	h.orch.Deliver(Completion{})
	if len(h.events.completed) != 1 {
		t.Errorf("completed %d times", len(h.events.completed))
	}
}

func TestAddRequestRejectsDuplicates(t *testing.T) {
	p := newFakePredictor(nil)
	p.gate(baseLaunch)
	h := newHarness(t, p, noBackoff(0))

	b := h.orch.NewBatch()
	if _, err := b.AddRequest(sweep(1).Params, baseLaunch); err != nil {
		t.Fatalf("AddRequest: %v", err)
	}
	if _, err := b.AddRequest(sweep(1).Params, baseLaunch); err == nil {
		t.Error("expected duplicate launch time to be rejected")
	}
	if b.Expected() != 1 {
		t.Errorf("expected = %d", b.Expected())
	}

	b.Remove()
	b.Remove()
	if _, err := b.AddRequest(sweep(1).Params, baseLaunch.Add(time.Hour)); err == nil {
		t.Error("expected removed batch to reject requests")
	}
}

func TestEmptyBatchProgress(t *testing.T) {
	h := newHarness(t, newFakePredictor(nil), noBackoff(0))
	b := h.orch.NewBatch()
	if b.Progress() != 100 {
		t.Errorf("progress = %d, want 100", b.Progress())
	}
	if h.orch.Busy() {
		t.Error("empty batch should not be busy")
	}
}

func TestDescribe(t *testing.T) {
	h := newHarness(t, newFakePredictor(nil), noBackoff(0))
	h.orch.Predict(sweep(2))
	h.drain(t)

	tip, ok := h.orch.Describe(baseLaunch)
	if !ok {
		t.Fatal("expected tooltip")
	}
	if tip.Launch.Lat != 52 || tip.Landing.Lat != 52.2 {
		t.Errorf("tooltip = %+v", tip)
	}
	if tip.String() != "Launch Sat, 17 Oct 2026 12:00 UTC at 52.0000, 0.0000, landing at 52.2000, 0.4000" {
		t.Errorf("String() = %q", tip.String())
	}
	if _, ok := h.orch.Describe(baseLaunch.Add(-time.Hour)); ok {
		t.Error("unexpected tooltip for unknown time")
	}
}

func TestRunHonorsContext(t *testing.T) {
	p := newFakePredictor(nil)
	p.gate(baseLaunch)
	h := newHarness(t, p, noBackoff(0))
	h.orch.Predict(sweep(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.orch.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}

func TestRunReturnsAfterRemove(t *testing.T) {
	p := newFakePredictor(nil)
	p.gate(baseLaunch)
	h := newHarness(t, p, noBackoff(0))

	b, err := h.orch.Predict(sweep(1))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	b.Remove()

	if h.orch.Busy() {
		t.Error("removed batch should not keep the orchestrator busy")
	}
	if len(h.orch.Batches()) != 0 {
		t.Errorf("batches = %d, want 0", len(h.orch.Batches()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := h.orch.Run(ctx); err != nil {
		t.Errorf("Run = %v, want nil", err)
	}
}

func TestBackoffDelay(t *testing.T) {
	policy := RetryPolicy{Backoff: 100 * time.Millisecond}
	if policy.delay(0) != 0 {
		t.Error("first attempt should not wait")
	}
	if policy.delay(3) != 300*time.Millisecond {
		t.Errorf("delay(3) = %v", policy.delay(3))
	}
	if DefaultRetryPolicy().MaxReruns != 3 {
		t.Error("default reruns should be 3")
	}
}
