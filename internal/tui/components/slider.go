package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/pablasso/flightpath/internal/tui/styles"
)

// Slider renders the launch time selector like: ├───●──────┤ 14:00 UTC (2/5)
type Slider struct {
	Times []time.Time
	Value int
	Width int // character width of the track
}

// NewSlider creates a new Slider instance.
func NewSlider(times []time.Time, value, width int) Slider {
	return Slider{Times: times, Value: value, Width: width}
}

// View returns the rendered slider. A single launch time has nothing to
// choose between, so it renders empty.
func (s Slider) View() string {
	n := len(s.Times)
	if n < 2 || s.Width < 3 {
		return ""
	}

	value := s.Value
	if value < 0 {
		value = 0
	}
	if value >= n {
		value = n - 1
	}

	inner := s.Width - 2
	pos := value * (inner - 1) / (n - 1)

	track := "├" +
		strings.Repeat("─", pos) +
		styles.SelectedStyle.Render("●") +
		strings.Repeat("─", inner-pos-1) +
		"┤"

	label := fmt.Sprintf("%s (%d/%d)", s.Times[value].UTC().Format("Jan 02 15:04 UTC"), value+1, n)
	return track + " " + label
}
