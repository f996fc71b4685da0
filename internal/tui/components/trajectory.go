package components

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/pablasso/flightpath/internal/engine"
	"github.com/pablasso/flightpath/internal/tui/styles"
)

// TrajectoryTable lists every sample of one path in a scrollable viewport
// with a 1-column scrollbar on the right.
type TrajectoryTable struct {
	viewport viewport.Model
	header   string
	lines    []string
	width    int // total width including scrollbar
	height   int // viewport height, header excluded
}

// NewTrajectoryTable creates an empty table. The width includes 1 column
// for the scrollbar.
func NewTrajectoryTable(width, height int) TrajectoryTable {
	vp := viewport.New(contentWidth(width), height)
	vp.SetContent("")
	return TrajectoryTable{
		viewport: vp,
		header:   styles.SubtleStyle.Render(fmt.Sprintf("%-6s %-8s %-21s %s", "Time", "Stage", "Position", "Altitude")),
		width:    width,
		height:   height,
	}
}

func contentWidth(width int) int {
	if width < 1 {
		return 0
	}
	return width - 1
}

// SetPath replaces the rows with the samples of p and scrolls to the top.
// A nil path clears the table.
func (t *TrajectoryTable) SetPath(p *engine.Path) {
	t.lines = nil
	if p != nil && p.Prediction != nil {
		for _, stage := range p.Prediction.Prediction {
			for _, pt := range stage.Trajectory {
				t.lines = append(t.lines, fmt.Sprintf("%-6s %-8s %-21s %s m",
					pt.Datetime.UTC().Format("15:04"),
					stage.Stage,
					pt.LatLng().String(),
					humanize.Comma(int64(pt.Altitude)),
				))
			}
		}
	}
	t.viewport.SetContent(strings.Join(t.lines, "\n"))
	t.viewport.GotoTop()
}

// SetSize updates the table dimensions. Width includes the scrollbar column.
func (t *TrajectoryTable) SetSize(width, height int) {
	if t.width == width && t.height == height {
		return
	}
	t.width = width
	t.height = height
	t.viewport.Width = contentWidth(width)
	t.viewport.Height = height
	t.viewport.SetContent(strings.Join(t.lines, "\n"))
	t.viewport.SetYOffset(t.viewport.YOffset)
}

// Len returns the number of rows.
func (t TrajectoryTable) Len() int {
	return len(t.lines)
}

// Update handles scroll keys and mouse wheel events.
func (t TrajectoryTable) Update(msg tea.Msg) (TrajectoryTable, tea.Cmd) {
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return t, cmd
}

// View renders the header and the visible rows with a scrollbar.
func (t TrajectoryTable) View() string {
	if t.height <= 0 {
		return t.header
	}

	content := strings.Split(t.viewport.View(), "\n")
	scrollbar := t.scrollbar()
	width := contentWidth(t.width)

	var b strings.Builder
	b.WriteString(t.header)
	for i := 0; i < t.height; i++ {
		b.WriteByte('\n')

		cl := ""
		if i < len(content) {
			cl = content[i]
		}
		b.WriteString(cl)
		if pad := width - utf8.RuneCountInString(cl); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
		if i < len(scrollbar) {
			b.WriteString(scrollbar[i])
		}
	}
	return b.String()
}

// scrollbar returns one gutter cell per visible row. The thumb covers the
// visible share of the rows and follows the scroll position; the gutter is
// blank when every row fits.
func (t TrajectoryTable) scrollbar() []string {
	cells := make([]string, t.height)
	if len(t.lines) <= t.height {
		for i := range cells {
			cells[i] = " "
		}
		return cells
	}

	size := max(1, t.height*t.height/len(t.lines))
	span := float64(t.height - size)
	top := int(math.Round(t.viewport.ScrollPercent() * span))
	for i := range cells {
		if i >= top && i < top+size {
			cells[i] = "█"
		} else {
			cells[i] = styles.DimmedStyle.Render("│")
		}
	}
	return cells
}
