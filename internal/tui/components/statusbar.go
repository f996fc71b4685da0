package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pablasso/flightpath/internal/engine"
	"github.com/pablasso/flightpath/internal/tui/styles"
)

// KeyHint is one key and what it does.
type KeyHint struct {
	Key  string
	Desc string
}

// StatusBar is the footer: key hints on the left and a short state, such as
// the sweep's progress, on the right.
type StatusBar struct {
	Hints []KeyHint
	State string
}

func NewStatusBar(hints ...KeyHint) StatusBar {
	return StatusBar{Hints: hints}
}

// WithState returns a copy showing state on the right.
func (s StatusBar) WithState(state string) StatusBar {
	s.State = state
	return s
}

// Render lays the bar out in width columns. The state is dropped when it
// does not fit next to the hints.
func (s StatusBar) Render(width int) string {
	parts := make([]string, len(s.Hints))
	for i, h := range s.Hints {
		parts[i] = styles.KeyStyle.Render(h.Key) + " " + h.Desc
	}
	left := strings.Join(parts, " • ")

	if s.State != "" {
		gap := width - lipgloss.Width(left) - lipgloss.Width(s.State)
		if gap >= 2 {
			left += strings.Repeat(" ", gap) + s.State
		}
	}
	return styles.StatusBarStyle.Width(width).Render(left)
}

// BatchState summarises a sweep for the footer: in-flight requests while
// running, finished paths once done.
func BatchState(b *engine.Batch) string {
	if b == nil || len(b.Tasks()) == 0 {
		return ""
	}
	total := len(b.Tasks())
	if running := b.Running(); running > 0 {
		return fmt.Sprintf("running %d/%d", total-running, total)
	}
	return fmt.Sprintf("done %d/%d paths", len(b.Paths()), total)
}
