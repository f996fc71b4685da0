package engine

import (
	"context"
	"time"

	"github.com/pablasso/flightpath/internal/api"
	"github.com/pablasso/flightpath/internal/geo"
	"github.com/pablasso/flightpath/internal/notify"
)

// Predictor performs one prediction round trip. *api.Client satisfies it.
type Predictor interface {
	Predict(ctx context.Context, p api.Params) (*api.Prediction, error)
}

// Canvas renders paths. It only draws; the engine owns selection state.
type Canvas interface {
	Attach(p *Path)
	Detach(p *Path)
	SetDimmed(p *Path, dimmed bool)
	FitBounds(box geo.Box)
}

// Notifier surfaces messages to the user. *notify.Center satisfies it.
type Notifier interface {
	Notify(level notify.Level, msg string)
}

// timedNotifier is implemented by notifiers that can expire messages.
type timedNotifier interface {
	NotifyFor(level notify.Level, msg string, ttl time.Duration)
}

// Events receives lifecycle callbacks. Callbacks run on the goroutine that
// owns the orchestrator and must not block.
type Events interface {
	OnTaskStart(b *Batch, t *Task)
	OnTaskFinished(b *Batch, t *Task)
	OnTaskRetry(b *Batch, t *Task)
	OnTaskFailed(b *Batch, t *Task)
	OnProgress(b *Batch, percent int)
	OnBatchComplete(b *Batch)
}

// Recorder receives attempt and batch metrics.
type Recorder interface {
	ObserveAttempt(outcome string, elapsed time.Duration)
	BatchStarted()
	TaskExhausted()
}

type nopCanvas struct{}

func (nopCanvas) Attach(*Path)          {}
func (nopCanvas) Detach(*Path)          {}
func (nopCanvas) SetDimmed(*Path, bool) {}
func (nopCanvas) FitBounds(geo.Box)     {}

type nopNotifier struct{}

func (nopNotifier) Notify(notify.Level, string) {}

type nopEvents struct{}

func (nopEvents) OnTaskStart(*Batch, *Task)    {}
func (nopEvents) OnTaskFinished(*Batch, *Task) {}
func (nopEvents) OnTaskRetry(*Batch, *Task)    {}
func (nopEvents) OnTaskFailed(*Batch, *Task)   {}
func (nopEvents) OnProgress(*Batch, int)       {}
func (nopEvents) OnBatchComplete(*Batch)       {}

type nopRecorder struct{}

func (nopRecorder) ObserveAttempt(string, time.Duration) {}
func (nopRecorder) BatchStarted()                        {}
func (nopRecorder) TaskExhausted()                       {}
