// Package engine runs prediction sweeps: one request per launch time, with
// retries, progress tracking and a time slider over the finished paths.
//
// An Orchestrator is owned by a single goroutine. Requests run concurrently,
// but their outcomes are posted to Completions and only take effect when the
// owner passes them to Deliver, or when Run does so on its behalf.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pablasso/flightpath/internal/api"
	"github.com/pablasso/flightpath/internal/geo"
	"github.com/pablasso/flightpath/internal/notify"
)

const completionBuffer = 64

// Options configures an Orchestrator. Only Predictor is required.
type Options struct {
	Predictor Predictor
	Canvas    Canvas
	Notifier  Notifier
	Events    Events
	Metrics   Recorder
	Logger    *slog.Logger
	Retry     RetryPolicy
	// NewID names batches. Defaults to random UUIDs.
	NewID func() string
}

// SweepRequest asks for one prediction per hour starting at Launch.
type SweepRequest struct {
	Params api.Params
	Launch time.Time
	Hourly int
}

// LaunchTimes returns the launch time of every request in the sweep.
func (r SweepRequest) LaunchTimes() []time.Time {
	times := make([]time.Time, 0, r.Hourly)
	for h := 0; h < r.Hourly; h++ {
		times = append(times, r.Launch.Add(time.Duration(h)*time.Hour))
	}
	return times
}

// Orchestrator owns the active batches, the map bounds and the slider.
type Orchestrator struct {
	predictor Predictor
	canvas    Canvas
	notifier  Notifier
	events    Events
	metrics   Recorder
	logger    *slog.Logger
	retry     RetryPolicy
	newID     func() string

	completions chan Completion
	batches     []*Batch
	generation  uint64

	bounds     geo.Bounds
	slider     *Slider
	current    time.Time
	hasCurrent bool
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Predictor == nil {
		return nil, errors.New("engine: predictor is required")
	}
	if opts.Retry.MaxReruns < 0 {
		return nil, fmt.Errorf("engine: max reruns must not be negative, got %d", opts.Retry.MaxReruns)
	}

	o := &Orchestrator{
		predictor:   opts.Predictor,
		canvas:      opts.Canvas,
		notifier:    opts.Notifier,
		events:      opts.Events,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		retry:       opts.Retry,
		newID:       opts.NewID,
		completions: make(chan Completion, completionBuffer),
	}
	if o.canvas == nil {
		o.canvas = nopCanvas{}
	}
	if o.notifier == nil {
		o.notifier = nopNotifier{}
	}
	if o.events == nil {
		o.events = nopEvents{}
	}
	if o.metrics == nil {
		o.metrics = nopRecorder{}
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	o.slider = newSlider(o.OnHourlySliderSlide)
	return o, nil
}

// Predict starts a fresh sweep, replacing whatever was shown before.
func (o *Orchestrator) Predict(req SweepRequest) (*Batch, error) {
	if req.Hourly < 1 {
		return nil, fmt.Errorf("hourly must be at least 1, got %d", req.Hourly)
	}
	if req.Launch.IsZero() {
		return nil, errors.New("launch time is required")
	}

	o.Reset()
	b := o.NewBatch()
	for _, launchTime := range req.LaunchTimes() {
		if _, err := b.AddRequest(req.Params, launchTime); err != nil {
			return b, fmt.Errorf("add request: %w", err)
		}
	}

	o.logger.Info("sweep_submitted",
		"batch_id", b.ID,
		"launch", req.Launch,
		"hourly", req.Hourly,
		"profile", req.Params.Profile,
	)
	return b, nil
}

// NewBatch creates an empty batch and makes it current.
func (o *Orchestrator) NewBatch() *Batch {
	o.generation++
	ctx, cancel := context.WithCancel(context.Background())
	b := &Batch{
		ID:         o.newID(),
		orch:       o,
		generation: o.generation,
		ctx:        ctx,
		cancel:     cancel,
		started:    time.Now(),
		byTime:     make(map[int64]*Task),
		paths:      make(map[int64]*Path),
	}
	o.batches = append(o.batches, b)
	o.metrics.BatchStarted()
	o.logger.Info("batch_started", "batch_id", b.ID, "generation", b.generation)
	return b
}

// dropBatch forgets a removed batch.
func (o *Orchestrator) dropBatch(b *Batch) {
	kept := make([]*Batch, 0, len(o.batches))
	for _, other := range o.batches {
		if other != b {
			kept = append(kept, other)
		}
	}
	o.batches = kept
}

// Reset removes every batch and clears the bounds and the slider.
func (o *Orchestrator) Reset() {
	batches := o.batches
	o.batches = nil
	for _, b := range batches {
		b.Remove()
	}
	o.bounds.Clear()
	o.slider.clear()
	o.current = time.Time{}
	o.hasCurrent = false
}

// Close cancels everything in flight.
func (o *Orchestrator) Close() {
	o.Reset()
}

// AddMapBound extends the area the map is fitted to.
func (o *Orchestrator) AddMapBound(p geo.LatLng) {
	o.bounds.Add(p)
}

// Bounds returns the box around every finished path.
func (o *Orchestrator) Bounds() (geo.Box, bool) {
	return o.bounds.Box()
}

// RegisterTime adds a launch time to the slider. It becomes selectable the
// next time a batch completes.
func (o *Orchestrator) RegisterTime(t time.Time) {
	o.slider.Register(t)
}

// OnHourlySliderSlide selects launchTime in every active batch.
func (o *Orchestrator) OnHourlySliderSlide(launchTime time.Time) {
	if o.hasCurrent && o.current.Equal(launchTime) {
		return
	}
	o.current = launchTime
	o.hasCurrent = true
	for _, b := range o.batches {
		b.SelectPathByTime(launchTime)
	}
}

// Slider returns the launch time selector.
func (o *Orchestrator) Slider() *Slider {
	return o.slider
}

// Batches returns the active batches, oldest first.
func (o *Orchestrator) Batches() []*Batch {
	return append([]*Batch(nil), o.batches...)
}

// Current returns the most recent batch, or nil.
func (o *Orchestrator) Current() *Batch {
	if len(o.batches) == 0 {
		return nil
	}
	return o.batches[len(o.batches)-1]
}

// Busy reports whether any active batch still has requests in flight.
func (o *Orchestrator) Busy() bool {
	for _, b := range o.batches {
		if !b.removed && b.running > 0 {
			return true
		}
	}
	return false
}

// Completions delivers attempt outcomes. The owner must pass each one to
// Deliver.
func (o *Orchestrator) Completions() <-chan Completion {
	return o.completions
}

// Deliver applies one attempt outcome. Outcomes for removed batches,
// superseded attempts and finished tasks are dropped.
func (o *Orchestrator) Deliver(c Completion) {
	t := c.task
	if t == nil || t.batch == nil {
		return
	}
	b := t.batch

	if b.removed || b.generation != c.generation {
		o.logger.Debug("completion_dropped",
			"reason", "batch_removed",
			"batch_id", b.ID,
			"launch_time", t.LaunchTime,
		)
		return
	}
	if c.attempt != t.attempt || t.Status != StatusRunning {
		o.logger.Debug("completion_dropped",
			"reason", "stale_attempt",
			"batch_id", b.ID,
			"launch_time", t.LaunchTime,
			"attempt", c.attempt,
		)
		return
	}

	if c.err == nil && c.prediction == nil {
		c.err = &api.Error{Kind: api.KindDecode, Err: api.ErrEmptyPayload}
	}

	outcome := attemptOutcome(c.err)
	o.metrics.ObserveAttempt(outcome, c.elapsed)
	if c.err != nil {
		o.logger.Warn("prediction_attempt_failed",
			"batch_id", b.ID,
			"launch_time", t.LaunchTime,
			"attempt", c.attempt,
			"outcome", outcome,
			"elapsed", c.elapsed,
			"error", c.err,
		)
	} else {
		o.logger.Info("prediction_attempt_finished",
			"batch_id", b.ID,
			"launch_time", t.LaunchTime,
			"attempt", c.attempt,
			"elapsed", c.elapsed,
		)
	}

	t.complete(c, o.retry.Retryable)
}

// Run delivers completions until no batch has requests in flight.
func (o *Orchestrator) Run(ctx context.Context) error {
	for o.Busy() {
		select {
		case c := <-o.completions:
			o.Deliver(c)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Tooltip describes a launch time on the slider.
type Tooltip struct {
	LaunchTime time.Time
	Launch     geo.LatLng
	Landing    geo.LatLng
}

func (t Tooltip) String() string {
	return fmt.Sprintf("Launch %s at %s, landing at %s",
		t.LaunchTime.UTC().Format("Mon, 02 Jan 2006 15:04 MST"), t.Launch, t.Landing)
}

// Describe returns the tooltip for launchTime from the first batch that
// holds a path for it.
func (o *Orchestrator) Describe(launchTime time.Time) (Tooltip, bool) {
	for _, b := range o.batches {
		if p, ok := b.Path(launchTime); ok {
			return Tooltip{
				LaunchTime: launchTime,
				Launch:     p.Launch.LatLng(),
				Landing:    p.Landing.LatLng(),
			}, true
		}
	}
	return Tooltip{}, false
}

func (o *Orchestrator) batchComplete(b *Batch) {
	if box, ok := o.bounds.Box(); ok {
		o.canvas.FitBounds(box)
	}
	o.slider.Redraw()
	if o.hasCurrent {
		b.SelectPathByTime(o.current)
	}

	o.logger.Info("batch_complete",
		"batch_id", b.ID,
		"paths", len(b.paths),
		"expected", b.expected,
		"requested", len(b.tasks),
		"elapsed", time.Since(b.started),
	)
	o.events.OnBatchComplete(b)
}

func (o *Orchestrator) notifyRetry(msg string) {
	if tn, ok := o.notifier.(timedNotifier); ok {
		tn.NotifyFor(notify.LevelInfo, msg, retryNoticeTTL)
		return
	}
	o.notifier.Notify(notify.LevelInfo, msg)
}

func attemptOutcome(err error) string {
	if err == nil {
		return "success"
	}
	if apiErr, ok := api.AsError(err); ok {
		return apiErr.Kind.String()
	}
	return "error"
}
