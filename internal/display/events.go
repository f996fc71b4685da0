package display

import (
	"github.com/pablasso/flightpath/internal/api"
	"github.com/pablasso/flightpath/internal/engine"
)

// Compile-time interface verification
var _ engine.Events = (*SweepEvents)(nil)

// SweepEvents adapts engine events to the status line.
type SweepEvents struct {
	display  *Display
	finished int
	failed   int
}

func NewSweepEvents(d *Display) *SweepEvents {
	return &SweepEvents{display: d}
}

func (e *SweepEvents) OnTaskStart(b *engine.Batch, t *engine.Task) {
	e.display.UpdateRequested(len(b.Tasks()))
	e.display.UpdateStatus(StatusRunning)
}

func (e *SweepEvents) OnTaskFinished(b *engine.Batch, t *engine.Task) {
	e.finished++
	e.display.PrintAbove("✓ %s", t.LaunchTime.UTC().Format("2006-01-02 15:04 UTC"))
}

func (e *SweepEvents) OnTaskRetry(b *engine.Batch, t *engine.Task) {
	e.display.AddRetry()
	e.display.PrintAbove("↻ %s: %s (retry %d/%d)",
		t.LaunchTime.UTC().Format("2006-01-02 15:04 UTC"), api.Describe(t.Err), t.Reruns+1, t.MaxReruns)
}

func (e *SweepEvents) OnTaskFailed(b *engine.Batch, t *engine.Task) {
	e.failed++
	e.display.PrintAbove("✗ %s: %s",
		t.LaunchTime.UTC().Format("2006-01-02 15:04 UTC"), api.Describe(t.Err))
}

func (e *SweepEvents) OnProgress(b *engine.Batch, percent int) {
	e.display.UpdateProgress(e.finished, e.failed, percent)
}

func (e *SweepEvents) OnBatchComplete(b *engine.Batch) {
	if len(b.Paths()) == 0 {
		e.display.UpdateStatus(StatusFailed)
		return
	}
	e.display.UpdateStatus(StatusCompleted)
}
