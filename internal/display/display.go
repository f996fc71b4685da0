// Package display draws a single updating status line for headless sweeps.
package display

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Status represents the current sweep status.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusRunning:
		return "Running"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// State holds the current display state.
type State struct {
	Finished  int
	Failed    int
	Requested int
	Retries   int
	Percent   int
	Status    Status
	StartTime time.Time
}

// Display manages the terminal status line.
type Display struct {
	mu       sync.Mutex
	writer   io.Writer
	state    State
	ticker   *time.Ticker
	done     chan struct{}
	wg       sync.WaitGroup // Ensures goroutine exits before Stop() returns
	active   bool
	lastLine string
}

// New creates a new Display writing to the given writer.
func New(w io.Writer) *Display {
	return &Display{
		writer: w,
		done:   make(chan struct{}),
	}
}

// Start begins the display update loop.
func (d *Display) Start() {
	d.mu.Lock()
	if d.active {
		d.mu.Unlock()
		return
	}
	d.active = true
	d.state.StartTime = time.Now()
	d.ticker = time.NewTicker(time.Second)
	d.wg.Add(1)
	d.mu.Unlock()

	go d.updateLoop()
}

// Stop halts the display update loop and clears the status line.
// Blocks until the update goroutine has exited.
func (d *Display) Stop() {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return
	}
	d.active = false
	d.mu.Unlock()

	d.ticker.Stop()
	close(d.done)
	d.wg.Wait()
	d.clearLine()
}

// UpdateRequested sets how many launch times the sweep asked for.
func (d *Display) UpdateRequested(requested int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Requested = requested
}

// UpdateProgress records finished and failed counts and the batch progress.
func (d *Display) UpdateProgress(finished, failed, percent int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Finished = finished
	d.state.Failed = failed
	d.state.Percent = percent
}

// AddRetry counts one rerun.
func (d *Display) AddRetry() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Retries++
}

// UpdateStatus updates the sweep status.
func (d *Display) UpdateStatus(status Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Status = status
}

// State returns a copy of the current state.
func (d *Display) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// updateLoop periodically renders the status line.
func (d *Display) updateLoop() {
	defer d.wg.Done()
	d.render()
	for {
		select {
		case <-d.ticker.C:
			d.render()
		case <-d.done:
			return
		}
	}
}

// render draws the current status line.
func (d *Display) render() {
	d.mu.Lock()
	state := d.state
	lastLine := d.lastLine
	d.mu.Unlock()

	var elapsed time.Duration
	if !state.StartTime.IsZero() {
		elapsed = time.Since(state.StartTime)
	}
	line := d.formatLine(state, elapsed)

	// Only update if changed (reduces flicker)
	if line == lastLine {
		return
	}

	d.mu.Lock()
	d.lastLine = line
	d.mu.Unlock()

	// Move to start of line, clear it, write new content
	fmt.Fprintf(d.writer, "\r\033[K%s", line)
}

// formatLine creates the status line string.
func (d *Display) formatLine(state State, elapsed time.Duration) string {
	if state.Requested == 0 {
		return ""
	}

	line := fmt.Sprintf("Sweep %d/%d │ %3d%%", state.Finished, state.Requested, state.Percent)
	if state.Failed > 0 {
		line += fmt.Sprintf(" │ %d failed", state.Failed)
	}
	if state.Retries > 0 {
		line += fmt.Sprintf(" │ %d retries", state.Retries)
	}
	return fmt.Sprintf("%s │ ⏱ %s │ %s", line, formatDuration(elapsed), state.Status)
}

// clearLine clears the status line.
func (d *Display) clearLine() {
	fmt.Fprintf(d.writer, "\r\033[K")
}

// PrintAbove prints a message above the status line.
// Use this for important messages that shouldn't be overwritten.
func (d *Display) PrintAbove(format string, args ...interface{}) {
	d.clearLine()
	fmt.Fprintf(d.writer, format+"\n", args...)
	d.mu.Lock()
	d.lastLine = ""
	d.mu.Unlock()
	d.render()
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
