package engine

import (
	"time"

	"github.com/pablasso/flightpath/internal/api"
)

// Task is one prediction request for one launch time. A rerun reuses the
// same Task; only the attempt number changes.
type Task struct {
	Params     api.Params
	LaunchTime time.Time
	Status     Status
	Reruns     int
	MaxReruns  int
	Prediction *api.Prediction
	Err        error

	batch    *Batch
	attempt  int
	onUpdate func(*Task)
}

// Attempts returns how many times the task has been sent.
func (t *Task) Attempts() int {
	return t.attempt
}

// Batch returns the batch that owns the task.
func (t *Task) Batch() *Batch {
	return t.batch
}

// submit sends exactly one request after delay. The outcome comes back
// through the orchestrator as a Completion.
func (t *Task) submit(delay time.Duration) {
	t.attempt++
	t.Status = StatusRunning
	t.batch.dispatch(t, t.attempt, delay)
}

func (t *Task) canRerun() bool {
	return t.Reruns < t.MaxReruns
}

// rerun sends the same request again. The caller checks canRerun.
func (t *Task) rerun(delay time.Duration) {
	t.Reruns++
	t.submit(delay)
}

// complete applies the outcome of the current attempt and notifies the batch.
func (t *Task) complete(c Completion, retryable func(error) bool) {
	switch {
	case c.err == nil:
		t.Prediction = c.prediction
		t.Err = nil
		t.Status = StatusFinished
	case retryable(c.err):
		t.Err = c.err
		t.Status = StatusFailedShouldRerun
	default:
		t.Err = c.err
		t.Status = StatusFailed
	}
	t.onUpdate(t)
}

// Completion is the outcome of one attempt, posted back to the goroutine that
// owns the orchestrator.
type Completion struct {
	task       *Task
	generation uint64
	attempt    int
	prediction *api.Prediction
	err        error
	elapsed    time.Duration
}

// LaunchTime identifies the request the completion belongs to.
func (c Completion) LaunchTime() time.Time {
	if c.task == nil {
		return time.Time{}
	}
	return c.task.LaunchTime
}

// Err is the attempt's error, nil on success.
func (c Completion) Err() error {
	return c.err
}
