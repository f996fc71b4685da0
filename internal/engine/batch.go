package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pablasso/flightpath/internal/api"
	"github.com/pablasso/flightpath/internal/notify"
)

const retryNoticeTTL = 5 * time.Second

// Batch is the set of tasks created by one submission, one per launch time.
type Batch struct {
	ID string

	orch       *Orchestrator
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
	started    time.Time

	tasks  []*Task
	byTime map[int64]*Task
	paths  map[int64]*Path

	selected     time.Time
	hasSelection bool

	running   int
	expected  int
	completed bool
	removed   bool
}

func timeKey(t time.Time) int64 {
	return t.UnixNano()
}

// AddRequest creates a task for launchTime and sends it immediately.
func (b *Batch) AddRequest(params api.Params, launchTime time.Time) (*Task, error) {
	if b.removed {
		return nil, fmt.Errorf("batch %s was removed", b.ID)
	}
	if b.completed {
		return nil, fmt.Errorf("batch %s is already complete", b.ID)
	}
	if _, ok := b.byTime[timeKey(launchTime)]; ok {
		return nil, fmt.Errorf("launch time %s already requested", formatLaunch(launchTime))
	}

	params.LaunchDatetime = launchTime
	t := &Task{
		Params:     params,
		LaunchTime: launchTime,
		Status:     StatusNotStarted,
		MaxReruns:  b.orch.retry.MaxReruns,
		batch:      b,
	}
	t.onUpdate = b.onRequestUpdate

	b.tasks = append(b.tasks, t)
	b.byTime[timeKey(launchTime)] = t
	b.running++
	b.expected++

	t.submit(0)
	return t, nil
}

func (b *Batch) onRequestUpdate(t *Task) {
	if b.removed {
		return
	}
	o := b.orch

	switch t.Status {
	case StatusFinished:
		b.running--
		path := newPath(t.LaunchTime, t.Prediction)
		for _, pt := range path.Points {
			o.AddMapBound(pt.LatLng())
		}
		path.dimmed = b.hasSelection
		b.paths[timeKey(t.LaunchTime)] = path
		o.canvas.Attach(path)
		if path.dimmed {
			o.canvas.SetDimmed(path, true)
		}
		o.RegisterTime(t.LaunchTime)
		o.events.OnTaskFinished(b, t)

	case StatusFailedShouldRerun:
		if t.canRerun() {
			o.notifyRetry(fmt.Sprintf("Prediction for %s failed, retrying (%d/%d)",
				formatLaunch(t.LaunchTime), t.Reruns+1, t.MaxReruns))
			o.logger.Info("prediction_rerun",
				"batch_id", b.ID,
				"launch_time", t.LaunchTime,
				"rerun", t.Reruns+1,
				"max_reruns", t.MaxReruns,
				"error", t.Err,
			)
			o.events.OnTaskRetry(b, t)
			t.rerun(o.retry.delay(t.Reruns + 1))
			return
		}
		b.fail(t)

	case StatusFailed:
		b.fail(t)

	case StatusNotStarted, StatusRunning:
		return
	}

	b.updateProgress()
}

// fail accounts for a task that will never finish.
func (b *Batch) fail(t *Task) {
	o := b.orch
	t.Status = StatusFailed
	b.running--
	b.expected--

	o.notifier.Notify(notify.LevelError, fmt.Sprintf("Prediction for %s failed: %s",
		formatLaunch(t.LaunchTime), api.Describe(t.Err)))
	o.logger.Warn("prediction_failed",
		"batch_id", b.ID,
		"launch_time", t.LaunchTime,
		"attempts", t.attempt,
		"error", t.Err,
	)
	o.metrics.TaskExhausted()
	o.events.OnTaskFailed(b, t)
}

func (b *Batch) updateProgress() {
	b.orch.events.OnProgress(b, b.Progress())
	if b.running == 0 && !b.completed {
		b.completed = true
		b.orch.batchComplete(b)
	}
}

// Progress returns the share of expected tasks that are done, 0 to 100.
// A batch that expects nothing is complete.
func (b *Batch) Progress() int {
	if b.expected <= 0 {
		return 100
	}
	return int(math.Round(100 * float64(b.expected-b.running) / float64(b.expected)))
}

// Running returns the number of tasks not yet in a terminal state.
func (b *Batch) Running() int {
	return b.running
}

// Expected returns the number of tasks that can still produce a path.
func (b *Batch) Expected() int {
	return b.expected
}

// Completed reports whether every task reached a terminal state.
func (b *Batch) Completed() bool {
	return b.completed
}

// Removed reports whether Remove was called.
func (b *Batch) Removed() bool {
	return b.removed
}

// Started returns when the batch was created.
func (b *Batch) Started() time.Time {
	return b.started
}

// Tasks returns the tasks in submission order.
func (b *Batch) Tasks() []*Task {
	return append([]*Task(nil), b.tasks...)
}

// Task returns the task for a launch time.
func (b *Batch) Task(launchTime time.Time) (*Task, bool) {
	t, ok := b.byTime[timeKey(launchTime)]
	return t, ok
}

// Path returns the finished path for a launch time.
func (b *Batch) Path(launchTime time.Time) (*Path, bool) {
	p, ok := b.paths[timeKey(launchTime)]
	return p, ok
}

// Paths returns the finished paths ordered by launch time.
func (b *Batch) Paths() []*Path {
	paths := make([]*Path, 0, len(b.paths))
	for _, p := range b.paths {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		return paths[i].LaunchTime.Before(paths[j].LaunchTime)
	})
	return paths
}

// Selected returns the selected launch time, if any.
func (b *Batch) Selected() (time.Time, bool) {
	return b.selected, b.hasSelection
}

// SelectPathByTime highlights the path for launchTime and dims the others.
// An absent time clears the selection and leaves every path dimmed.
func (b *Batch) SelectPathByTime(launchTime time.Time) {
	if b.hasSelection && b.selected.Equal(launchTime) {
		return
	}

	if b.hasSelection {
		if p, ok := b.paths[timeKey(b.selected)]; ok {
			b.setDimmed(p, true)
		}
	} else {
		for _, p := range b.paths {
			b.setDimmed(p, true)
		}
	}

	if p, ok := b.paths[timeKey(launchTime)]; ok {
		b.setDimmed(p, false)
		b.selected = launchTime
		b.hasSelection = true
		return
	}
	b.selected = time.Time{}
	b.hasSelection = false
}

func (b *Batch) setDimmed(p *Path, dimmed bool) {
	if p.dimmed == dimmed {
		return
	}
	p.dimmed = dimmed
	b.orch.canvas.SetDimmed(p, dimmed)
}

// Remove detaches every path and cancels in-flight requests. Completions
// that arrive afterwards are ignored.
func (b *Batch) Remove() {
	if b.removed {
		return
	}
	b.removed = true
	b.cancel()
	b.orch.dropBatch(b)

	for _, p := range b.Paths() {
		b.orch.canvas.Detach(p)
	}
	b.paths = make(map[int64]*Path)
	b.selected = time.Time{}
	b.hasSelection = false

	b.orch.logger.Info("batch_removed",
		"batch_id", b.ID,
		"running", b.running,
		"expected", b.expected,
	)
}

// dispatch runs one attempt in its own goroutine and posts the outcome to
// the orchestrator. Nothing is posted once the batch is removed.
func (b *Batch) dispatch(t *Task, attempt int, delay time.Duration) {
	o := b.orch
	ctx := b.ctx
	generation := b.generation
	params := t.Params

	o.events.OnTaskStart(b, t)
	o.logger.Debug("prediction_attempt_started",
		"batch_id", b.ID,
		"launch_time", t.LaunchTime,
		"attempt", attempt,
		"delay", delay,
	)

	go func() {
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return
			}
		}

		start := time.Now()
		prediction, err := o.predictor.Predict(ctx, params)
		c := Completion{
			task:       t,
			generation: generation,
			attempt:    attempt,
			prediction: prediction,
			err:        err,
			elapsed:    time.Since(start),
		}
		if ctx.Err() != nil {
			return
		}

		select {
		case o.completions <- c:
		case <-ctx.Done():
		}
	}()
}

func formatLaunch(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04 UTC")
}
