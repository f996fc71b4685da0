package views

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/pablasso/flightpath/internal/engine"
	"github.com/pablasso/flightpath/internal/export"
	"github.com/pablasso/flightpath/internal/notify"
	"github.com/pablasso/flightpath/internal/tui/components"
	"github.com/pablasso/flightpath/internal/tui/msgs"
	"github.com/pablasso/flightpath/internal/tui/styles"
)

// sweepState represents the current state of the sweep view.
type sweepState int

const (
	stateIdle sweepState = iota
	stateRunning
	stateDone
)

const (
	maxNotificationLines = 4
	exportNoticeTTL      = 8 * time.Second
)

// tickMsg drives the elapsed timer and notification expiry.
type tickMsg time.Time

// SweepOptions wire the sweep view to the engine.
type SweepOptions struct {
	Orchestrator *engine.Orchestrator
	Notes        *notify.Center
	Plot         *components.Plot
	Activity     *Activity
	MaxAttempts  int
	ExportDir    string
	Demo         bool
	Clock        func() time.Time
}

// SweepModel monitors a running sweep and browses its results.
type SweepModel struct {
	state    sweepState
	orch     *engine.Orchestrator
	batch    *engine.Batch
	notes    *notify.Center
	plot     *components.Plot
	activity *Activity

	spinner spinner.Model
	table   components.TrajectoryTable
	shown   time.Time // launch time in the trajectory table
	ticking bool

	maxAttempts int
	exportDir   string
	demo        bool
	clock       func() time.Time
	finishedAt  time.Time

	width  int
	height int
}

// NewSweepModel creates an idle sweep view.
func NewSweepModel(opts SweepOptions) SweepModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.SelectedStyle

	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Activity == nil {
		opts.Activity = NewActivity(opts.Clock)
	}
	if opts.Plot == nil {
		opts.Plot = components.NewPlot()
	}
	if opts.Notes == nil {
		opts.Notes = notify.NewCenter()
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	return SweepModel{
		state:       stateIdle,
		orch:        opts.Orchestrator,
		notes:       opts.Notes,
		plot:        opts.Plot,
		activity:    opts.Activity,
		spinner:     s,
		table:       components.NewTrajectoryTable(40, 5), // Will be resized
		maxAttempts: opts.MaxAttempts,
		exportDir:   opts.ExportDir,
		demo:        opts.Demo,
		clock:       opts.Clock,
	}
}

// Start switches the view to a freshly submitted batch.
func (m *SweepModel) Start(b *engine.Batch) tea.Cmd {
	m.batch = b
	m.state = stateRunning
	m.finishedAt = time.Time{}
	m.shown = time.Time{}
	m.table.SetPath(nil)
	m.Refresh()

	cmds := []tea.Cmd{m.spinner.Tick}
	if !m.ticking {
		m.ticking = true
		cmds = append(cmds, m.tickCmd())
	}
	return tea.Batch(cmds...)
}

// Refresh picks up engine state after a completion was delivered.
func (m *SweepModel) Refresh() {
	if m.batch == nil {
		return
	}
	if m.state == stateRunning && m.batch.Completed() {
		m.state = stateDone
		m.finishedAt = m.clock()
	}
	m.syncTable()
}

func (m *SweepModel) syncTable() {
	t, ok := m.orch.Slider().Current()
	if !ok {
		if !m.shown.IsZero() {
			m.shown = time.Time{}
			m.table.SetPath(nil)
		}
		return
	}
	if t.Equal(m.shown) {
		return
	}
	p, ok := m.batch.Path(t)
	if !ok {
		return
	}
	m.shown = t
	m.table.SetPath(p)
}

// tickCmd returns a command that sends tick messages for elapsed time updates.
func (m SweepModel) tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m SweepModel) Update(msg tea.Msg) (SweepModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		if m.state == stateRunning {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tickMsg:
		if m.state == stateRunning || m.notes.Len() > 0 {
			return m, m.tickCmd()
		}
		m.ticking = false
		return m, nil

	case msgs.ExportedMsg:
		if msg.Err != nil {
			m.notes.Notify(notify.LevelError, fmt.Sprintf("Export failed: %v", msg.Err))
		} else {
			m.notes.NotifyFor(notify.LevelSuccess, "Exported to "+msg.Path, exportNoticeTTL)
		}
		if !m.ticking {
			m.ticking = true
			return m, m.tickCmd()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// handleKeyPress handles keyboard input based on current state.
func (m SweepModel) handleKeyPress(msg tea.KeyMsg) (SweepModel, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "n":
		return m, func() tea.Msg { return msgs.GoToFormMsg{} }
	case "x":
		m.notes.CloseAll()
		return m, nil
	case "left", "h":
		if m.orch.Slider().Step(-1) {
			m.syncTable()
		}
		return m, nil
	case "right", "l":
		if m.orch.Slider().Step(1) {
			m.syncTable()
		}
		return m, nil
	case "e":
		if m.batch == nil || len(m.batch.Paths()) == 0 {
			m.notes.NotifyFor(notify.LevelWarning, "Nothing to export yet", exportNoticeTTL)
			return m, nil
		}
		return m, m.exportCmd()
	case "up", "k", "pgup", "ctrl+u", "down", "j", "pgdown", "ctrl+d", "home", "g", "end", "G":
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

// exportCmd snapshots the batch on the owning goroutine and writes it as
// JSON in the background.
func (m SweepModel) exportCmd() tea.Cmd {
	doc := export.FromBatch(m.batch, m.clock())
	name := filepath.Join(m.exportDir, exportFileName(doc.BatchID))

	return func() tea.Msg {
		f, err := os.Create(name)
		if err != nil {
			return msgs.ExportedMsg{Path: name, Err: err}
		}
		werr := export.Write(f, export.FormatJSON, doc)
		cerr := f.Close()
		return msgs.ExportedMsg{Path: name, Err: errors.Join(werr, cerr)}
	}
}

func exportFileName(batchID string) string {
	id := batchID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("flightpath-%s.%s", id, export.FormatJSON.Extension())
}

// SetSize updates the model dimensions.
func (m *SweepModel) SetSize(width, height int) {
	m.width = width
	m.height = height

	_, rightWidth, panelHeight := m.layout()
	_, tableHeight := m.rightHeights(panelHeight - 2)
	m.table.SetSize(rightWidth-2, tableHeight)
}

// layout returns the inner widths of both panels and the panel height.
func (m SweepModel) layout() (leftWidth, rightWidth, panelHeight int) {
	leftWidth = (m.width * 40 / 100) - 2
	rightWidth = (m.width * 60 / 100) - 2
	panelHeight = m.height - 4 // title + status bar + borders
	if panelHeight < 5 {
		panelHeight = 5
	}
	return leftWidth, rightWidth, panelHeight
}

// rightHeights splits the right panel between the plot and the trajectory
// table. Four lines go to the slider, tooltip, details and table header.
func (m SweepModel) rightHeights(height int) (plotHeight, tableHeight int) {
	avail := height - 4
	if avail < 2 {
		return 1, 1
	}
	plotHeight = avail / 2
	tableHeight = avail - plotHeight
	return plotHeight, tableHeight
}

// View implements tea.Model.
func (m SweepModel) View() string {
	if m.width == 0 || m.height == 0 || m.batch == nil {
		return ""
	}

	var b strings.Builder

	title := styles.TitleStyle.Render(m.title())
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, title))
	b.WriteString("\n")

	leftWidth, rightWidth, panelHeight := m.layout()

	leftPanel := styles.BoxStyle.Copy().
		Width(leftWidth).
		Height(panelHeight-2).
		Padding(0, 1).
		Render(m.renderLeftPanel(leftWidth-2, panelHeight-2))
	rightPanel := styles.BoxStyle.Copy().
		Width(rightWidth).
		Height(panelHeight-2).
		Padding(0, 1).
		Render(m.renderRightPanel(rightWidth-2, panelHeight-2))

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel))
	b.WriteString("\n")

	bar := components.NewStatusBar(
		components.KeyHint{Key: "n", Desc: "New"},
		components.KeyHint{Key: "q", Desc: "Quit"},
	)
	if m.state == stateDone {
		bar = components.NewStatusBar(
			components.KeyHint{Key: "←/→", Desc: "Launch time"},
			components.KeyHint{Key: "↑/↓", Desc: "Scroll"},
			components.KeyHint{Key: "e", Desc: "Export"},
			components.KeyHint{Key: "x", Desc: "Dismiss"},
			components.KeyHint{Key: "n", Desc: "New"},
			components.KeyHint{Key: "q", Desc: "Quit"},
		)
	}
	state := components.BatchState(m.batch)
	if m.demo {
		state = strings.TrimSuffix("DEMO • "+state, " • ")
	}
	b.WriteString(bar.WithState(state).Render(m.width))

	return b.String()
}

func (m SweepModel) title() string {
	tasks := m.batch.Tasks()
	if len(tasks) == 0 {
		return "Sweep"
	}
	first := tasks[0].LaunchTime.UTC().Format(TimeLayout)
	if len(tasks) == 1 {
		return fmt.Sprintf("Prediction: launch %s UTC", first)
	}
	return fmt.Sprintf("Sweep: %d hourly launches from %s UTC", len(tasks), first)
}

// renderLeftPanel renders progress, the per-launch task list, the activity
// timeline and notifications.
func (m SweepModel) renderLeftPanel(width, height int) string {
	var lines []string

	finished, failed := m.counts()
	total := len(m.batch.Tasks())

	var header string
	switch m.state {
	case stateRunning:
		header = fmt.Sprintf("%s Running %d/%d", m.spinner.View(), finished+failed, total)
	default:
		if finished == 0 {
			header = styles.ErrorStyle.Render("✗") + " No paths found"
		} else {
			header = styles.SuccessStyle.Render("✓") + fmt.Sprintf(" %d of %d paths", finished, total)
		}
	}
	lines = append(lines, header)
	lines = append(lines, m.elapsedLine(failed))
	lines = append(lines, components.NewProgress(m.batch.Progress(), max(width-5, 1)).View())
	lines = append(lines, "")

	notes := components.NewNotifications(m.notes.Active(), maxNotificationLines).Lines(width)

	// Everything except task and activity entries.
	fixed := len(lines) + 6 + len(notes)
	budget := max(height-fixed, 0)
	taskLines := min(total, budget/2+budget%2)
	activityLines := budget - taskLines

	lines = append(lines, styles.SubtleStyle.Render("Launches"))
	lines = append(lines, "─────")
	lines = append(lines, m.renderTaskList(width, taskLines)...)
	lines = append(lines, "")

	lines = append(lines, styles.SubtleStyle.Render("Activity"))
	lines = append(lines, "─────")
	lines = append(lines, m.renderActivity(width, activityLines)...)

	if len(notes) > 0 {
		lines = append(lines, "")
		lines = append(lines, notes...)
	}

	content := strings.Join(lines, "\n")
	if n := len(lines); n < height {
		content += strings.Repeat("\n", height-n)
	}
	return content
}

func (m SweepModel) elapsedLine(failed int) string {
	end := m.clock()
	if m.state == stateDone {
		end = m.finishedAt
	}
	line := formatDuration(end.Sub(m.batch.Started()))
	if retries := m.retries(); retries > 0 {
		line += fmt.Sprintf(" • %d retries", retries)
	}
	if failed > 0 {
		line += " • " + styles.ErrorStyle.Render(fmt.Sprintf("%d failed", failed))
	}
	return line
}

func (m SweepModel) counts() (finished, failed int) {
	for _, t := range m.batch.Tasks() {
		switch t.Status {
		case engine.StatusFinished:
			finished++
		case engine.StatusFailed:
			failed++
		}
	}
	return finished, failed
}

func (m SweepModel) retries() int {
	var n int
	for _, t := range m.batch.Tasks() {
		n += t.Reruns
	}
	return n
}

// renderTaskList shows a window of launches centered on the first one
// still in flight.
func (m SweepModel) renderTaskList(width, maxLines int) []string {
	tasks := m.batch.Tasks()
	if width <= 0 || maxLines <= 0 || len(tasks) == 0 {
		return nil
	}
	maxLines = min(maxLines, len(tasks))

	focus := 0
	for i, t := range tasks {
		if !t.Status.Terminal() {
			focus = i
			break
		}
	}
	selected, hasSelection := m.orch.Slider().Current()

	start := max(focus-maxLines/2, 0)
	start = min(start, len(tasks)-maxLines)

	var lines []string
	for _, t := range tasks[start : start+maxLines] {
		line := fmt.Sprintf("%s %s", m.getTaskIndicator(t.Status), t.LaunchTime.UTC().Format("Jan 02 15:04"))
		if t.Attempts() > 1 || t.Status == engine.StatusFailedShouldRerun {
			line += styles.SubtleStyle.Render(fmt.Sprintf("  attempt %d/%d", t.Attempts(), m.maxAttempts))
		}
		if hasSelection && t.LaunchTime.Equal(selected) {
			line += styles.SelectedStyle.Render("  ◀")
		}
		lines = append(lines, line)
	}
	return lines
}

// getTaskIndicator returns the status indicator for a task.
func (m SweepModel) getTaskIndicator(status engine.Status) string {
	switch status {
	case engine.StatusFinished:
		return styles.SuccessStyle.Render("✓")
	case engine.StatusFailed:
		return styles.ErrorStyle.Render("✗")
	case engine.StatusFailedShouldRerun:
		return styles.WarningStyle.Render("↻")
	case engine.StatusRunning:
		return styles.SelectedStyle.Render("▶")
	default:
		return styles.SubtleStyle.Render("○")
	}
}

func (m SweepModel) renderActivity(width, maxLines int) []string {
	if maxLines <= 0 {
		return nil
	}
	entries := m.activity.Entries()
	if len(entries) == 0 {
		return []string{styles.SubtleStyle.Render("  (waiting...)")}
	}
	if len(entries) > maxLines {
		entries = entries[len(entries)-maxLines:]
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		var indicator string
		switch e.kind {
		case activityFinished, activityDone:
			indicator = styles.SuccessStyle.Render("✓")
		case activityRetry:
			indicator = styles.WarningStyle.Render("↻")
		case activityFailed:
			indicator = styles.ErrorStyle.Render("✗")
		default:
			indicator = "├─"
		}
		lines = append(lines, indicator+" "+components.TruncateWithEllipsis(e.Text, width-3))
	}
	return lines
}

// renderRightPanel renders the plot, the slider and the selected path.
func (m SweepModel) renderRightPanel(width, height int) string {
	plotHeight, _ := m.rightHeights(height)

	lines := []string{m.plot.View(width, plotHeight)}

	slider := m.orch.Slider()
	if slider.Visible() {
		lines = append(lines, components.NewSlider(slider.Times(), slider.Value(), max(width-28, 3)).View())
	} else {
		lines = append(lines, "")
	}

	var (
		path    *engine.Path
		hasPath bool
	)
	selected, ok := slider.Current()
	if ok {
		path, hasPath = m.batch.Path(selected)
	}
	if !hasPath {
		hint := "Waiting for paths..."
		if m.state == stateDone {
			hint = "No path to show"
		}
		lines = append(lines, styles.SubtleStyle.Render(hint), "")
	} else {
		tip, _ := m.orch.Describe(selected)
		lines = append(lines,
			components.TruncateWithEllipsis(tip.String(), width),
			components.TruncateWithEllipsis(pathDetails(path), width),
		)
	}

	lines = append(lines, m.table.View())
	return strings.Join(lines, "\n")
}

// pathDetails summarizes a path's burst, flight time and drift.
func pathDetails(p *engine.Path) string {
	return fmt.Sprintf("Burst %s m • Flight %s • Drift %s km",
		humanize.Comma(int64(p.Burst.Altitude)),
		formatDuration(p.FlightDuration()),
		humanize.CommafWithDigits(p.Distance()/1000, 1),
	)
}

// formatDuration formats a duration as MM:SS or HH:MM:SS.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	mins := d / time.Minute
	d -= mins * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, mins, s)
	}
	return fmt.Sprintf("%02d:%02d", mins, s)
}

// State reports whether the view is idle, running or done.
func (m SweepModel) State() sweepState {
	return m.state
}

// Running reports whether the current sweep still has requests in flight.
func (m SweepModel) Running() bool {
	return m.state == stateRunning
}

// Done reports whether the current sweep finished.
func (m SweepModel) Done() bool {
	return m.state == stateDone
}

// Batch returns the batch being shown.
func (m SweepModel) Batch() *engine.Batch {
	return m.batch
}

// Shown returns the launch time in the trajectory table.
func (m SweepModel) Shown() time.Time {
	return m.shown
}

// TableLen returns the number of rows in the trajectory table.
func (m SweepModel) TableLen() int {
	return m.table.Len()
}

// Plot returns the canvas the paths are drawn on.
func (m SweepModel) Plot() *components.Plot {
	return m.plot
}
