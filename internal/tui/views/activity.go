package views

import (
	"fmt"
	"time"

	"github.com/pablasso/flightpath/internal/api"
	"github.com/pablasso/flightpath/internal/engine"
)

// Compile-time interface verification
var _ engine.Events = (*Activity)(nil)

const defaultActivityLimit = 200

type activityKind int

const (
	activitySent activityKind = iota
	activityFinished
	activityRetry
	activityFailed
	activityDone
)

// ActivityEntry is a single item in the sweep timeline.
type ActivityEntry struct {
	Text      string
	Timestamp time.Time
	kind      activityKind
}

// Activity records engine events as a timeline for the sweep view. The
// engine calls it from Update, so it needs no locking.
type Activity struct {
	entries []ActivityEntry
	limit   int
	clock   func() time.Time
}

// NewActivity creates an empty timeline. A nil clock uses time.Now.
func NewActivity(clock func() time.Time) *Activity {
	if clock == nil {
		clock = time.Now
	}
	return &Activity{limit: defaultActivityLimit, clock: clock}
}

func (a *Activity) add(kind activityKind, format string, args ...any) {
	a.entries = append(a.entries, ActivityEntry{
		Text:      fmt.Sprintf(format, args...),
		Timestamp: a.clock(),
		kind:      kind,
	})
	if len(a.entries) > a.limit {
		a.entries = a.entries[len(a.entries)-a.limit:]
	}
}

// Entries returns the timeline, oldest first.
func (a *Activity) Entries() []ActivityEntry {
	return a.entries
}

// Clear empties the timeline.
func (a *Activity) Clear() {
	a.entries = nil
}

func (a *Activity) OnTaskStart(b *engine.Batch, t *engine.Task) {
	if t.Attempts() > 1 {
		a.add(activitySent, "%s attempt %d", hourOf(t.LaunchTime), t.Attempts())
		return
	}
	a.add(activitySent, "%s requested", hourOf(t.LaunchTime))
}

func (a *Activity) OnTaskFinished(b *engine.Batch, t *engine.Task) {
	a.add(activityFinished, "%s landed", hourOf(t.LaunchTime))
}

func (a *Activity) OnTaskRetry(b *engine.Batch, t *engine.Task) {
	a.add(activityRetry, "%s %s", hourOf(t.LaunchTime), api.Describe(t.Err))
}

func (a *Activity) OnTaskFailed(b *engine.Batch, t *engine.Task) {
	a.add(activityFailed, "%s %s", hourOf(t.LaunchTime), api.Describe(t.Err))
}

func (a *Activity) OnProgress(b *engine.Batch, percent int) {}

func (a *Activity) OnBatchComplete(b *engine.Batch) {
	a.add(activityDone, "sweep complete: %d/%d paths", len(b.Paths()), len(b.Tasks()))
}

// hourOf formats a launch time as the hour of day, which is what tells the
// tasks of one sweep apart.
func hourOf(t time.Time) string {
	return t.UTC().Format("15:04")
}
