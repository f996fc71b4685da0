package tui

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pablasso/flightpath/internal/api"
	"github.com/pablasso/flightpath/internal/config"
	"github.com/pablasso/flightpath/internal/demo"
	"github.com/pablasso/flightpath/internal/tui/msgs"
)

var now = time.Date(2026, 3, 1, 11, 57, 0, 0, time.UTC)

type simulator struct{}

func (simulator) Predict(ctx context.Context, p api.Params) (*api.Prediction, error) {
	return demo.Simulate(p), nil
}

func testConfig() config.Config {
	cfg := config.FromViper(config.New())
	cfg.Retry.MaxReruns = 1
	cfg.Retry.Backoff = 0
	return cfg
}

func createTestModel(t *testing.T) Model {
	t.Helper()
	m, err := New(Options{
		Config:    testConfig(),
		Predictor: simulator{},
		ExportDir: t.TempDir(),
		Clock:     func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(m.orch.Close)
	return m
}

// sendKey simulates sending a key press to the model.
func sendKey(t *testing.T, m *Model, key string) tea.Cmd {
	t.Helper()

	var keyMsg tea.KeyMsg
	switch key {
	case "enter":
		keyMsg = tea.KeyMsg{Type: tea.KeyEnter}
	case "right":
		keyMsg = tea.KeyMsg{Type: tea.KeyRight}
	case "tab":
		keyMsg = tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+c":
		keyMsg = tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		if len(key) == 1 {
			keyMsg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
		} else {
			t.Fatalf("unknown key: %s", key)
		}
	}

	newModel, cmd := m.Update(keyMsg)
	*m = newModel.(Model)
	return cmd
}

// sendWindowSize simulates a window resize event.
func sendWindowSize(t *testing.T, m *Model, width, height int) {
	t.Helper()
	newModel, _ := m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	*m = newModel.(Model)
}

func send(t *testing.T, m *Model, msg tea.Msg) tea.Cmd {
	t.Helper()
	newModel, cmd := m.Update(msg)
	*m = newModel.(Model)
	return cmd
}

// deliverAll plays the completion pump until the sweep finishes.
func deliverAll(t *testing.T, m *Model) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for !m.sweep.Done() {
		select {
		case c := <-m.orch.Completions():
			if cmd := send(t, m, msgs.CompletionMsg{Completion: c}); cmd == nil {
				t.Fatal("expected the completion listener to be re-armed")
			}
		case <-deadline:
			t.Fatal("timed out waiting for the sweep to finish")
		}
	}
}

func submit(t *testing.T, m *Model) {
	t.Helper()
	cmd := sendKey(t, m, "enter")
	if cmd == nil {
		t.Fatalf("expected submit command, form errors: %v", m.form.Errors())
	}
	msg, ok := cmd().(msgs.SubmitMsg)
	if !ok {
		t.Fatal("expected SubmitMsg")
	}
	send(t, m, msg)
}

func TestModel_View_TerminalTooSmall(t *testing.T) {
	tests := []struct {
		name        string
		width       int
		height      int
		expectSmall bool
	}{
		{"exactly minimum size", MinTerminalWidth, MinTerminalHeight, false},
		{"width too small", MinTerminalWidth - 1, MinTerminalHeight, true},
		{"height too small", MinTerminalWidth, MinTerminalHeight - 1, true},
		{"larger than minimum", 100, 50, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := createTestModel(t)
			sendWindowSize(t, &m, tt.width, tt.height)

			view := m.View()
			if tt.expectSmall != strings.Contains(view, "Terminal too small") {
				t.Errorf("expectSmall=%v, got view:\n%s", tt.expectSmall, view)
			}
		})
	}
}

func TestModel_renderTerminalTooSmall_ShowsDimensions(t *testing.T) {
	m := createTestModel(t)
	m.width = 50
	m.height = 10

	view := m.renderTerminalTooSmall()
	if !strings.Contains(view, "60x15") {
		t.Error("expected minimum dimensions 60x15 to be shown")
	}
	if !strings.Contains(view, "50x10") {
		t.Error("expected current dimensions 50x10 to be shown")
	}
}

func TestModel_StartsOnForm(t *testing.T) {
	m := createTestModel(t)
	sendWindowSize(t, &m, 100, 40)

	if m.CurrentView() != ViewForm {
		t.Fatalf("expected form view, got %d", m.CurrentView())
	}
	if cmd := m.Init(); cmd == nil {
		t.Error("expected Init to start the completion listener")
	}
	if !strings.Contains(m.View(), "Flight Path Predictor") {
		t.Error("expected form title")
	}
}

// TestSweepFlow covers Form → Sweep → results → Form.
func TestSweepFlow(t *testing.T) {
	m := createTestModel(t)
	sendWindowSize(t, &m, 120, 40)
	m.form.SetValue("hourly", "3")

	submit(t, &m)
	if m.CurrentView() != ViewSweep {
		t.Fatalf("expected sweep view, got %d", m.CurrentView())
	}
	if !m.sweep.Running() {
		t.Fatal("expected sweep to be running")
	}

	deliverAll(t, &m)

	b := m.orch.Current()
	if n := len(b.Paths()); n != 3 {
		t.Fatalf("expected 3 paths, got %d", n)
	}
	launch := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if got := m.sweep.Shown(); !got.Equal(launch) {
		t.Errorf("expected first launch selected, got %s", got)
	}

	sendKey(t, &m, "right")
	if got := m.sweep.Shown(); !got.Equal(launch.Add(time.Hour)) {
		t.Errorf("expected second launch selected, got %s", got)
	}
	if !strings.Contains(m.View(), "(2/3)") {
		t.Error("expected slider at the second launch")
	}

	cmd := sendKey(t, &m, "n")
	if cmd == nil {
		t.Fatal("expected command from n")
	}
	send(t, &m, cmd())
	if m.CurrentView() != ViewForm {
		t.Fatalf("expected form view, got %d", m.CurrentView())
	}
}

func TestResubmitReplacesBatch(t *testing.T) {
	m := createTestModel(t)
	sendWindowSize(t, &m, 120, 40)
	m.form.SetValue("hourly", "2")

	submit(t, &m)
	deliverAll(t, &m)
	first := m.orch.Current()

	send(t, &m, msgs.GoToFormMsg{})
	m.form.SetValue("hourly", "1")
	submit(t, &m)

	if !first.Removed() {
		t.Error("expected the previous batch to be removed")
	}
	if len(m.orch.Batches()) != 1 {
		t.Errorf("expected one active batch, got %d", len(m.orch.Batches()))
	}
	if m.sweep.Done() {
		t.Error("expected the new sweep to be running")
	}

	deliverAll(t, &m)
	if n := len(m.orch.Current().Paths()); n != 1 {
		t.Errorf("expected 1 path, got %d", n)
	}
	if m.sweep.Plot().Len() != 1 {
		t.Errorf("expected the old paths detached, got %d plotted", m.sweep.Plot().Len())
	}
}

func TestFormKeysDoNotQuit(t *testing.T) {
	m := createTestModel(t)
	sendWindowSize(t, &m, 100, 40)

	sendKey(t, &m, "q")
	if m.CurrentView() != ViewForm {
		t.Fatal("expected to stay on the form")
	}
	if _, errs := m.form.Values(); len(errs) == 0 {
		t.Error("expected q to be typed into the latitude field")
	}

	cmd := sendKey(t, &m, "ctrl+c")
	if cmd == nil {
		t.Fatal("expected ctrl+c to quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected QuitMsg")
	}
}

func TestNew_Demo(t *testing.T) {
	m, err := New(Options{
		Config: testConfig(),
		Demo:   &DemoOptions{Preset: demo.PresetQuick, Scenario: demo.ScenarioSuccess},
		Clock:  func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.orch.Close()

	if !m.demo {
		t.Error("expected demo mode")
	}
	if cmd := m.Init(); cmd == nil {
		t.Error("expected Init to auto-submit in demo mode")
	}
}

func TestNew_InvalidAPIURL(t *testing.T) {
	cfg := testConfig()
	cfg.API.URL = "ftp://example.com"

	if _, err := New(Options{Config: cfg}); err == nil {
		t.Fatal("expected error for non-http api url")
	}
}

func TestSubmitLogsSweepOnce(t *testing.T) {
	var logs bytes.Buffer
	m, err := New(Options{
		Config:    testConfig(),
		Logger:    slog.New(slog.NewJSONHandler(&logs, nil)),
		Predictor: simulator{},
		ExportDir: t.TempDir(),
		Clock:     func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(m.orch.Close)
	sendWindowSize(t, &m, 120, 40)

	submit(t, &m)
	deliverAll(t, &m)

	if n := strings.Count(logs.String(), `"msg":"sweep_submitted"`); n != 1 {
		t.Errorf("sweep_submitted logged %d times, want 1\n%s", n, logs.String())
	}
}
