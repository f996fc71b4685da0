package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pablasso/flightpath/internal/api"
	"github.com/pablasso/flightpath/internal/demo"
	"github.com/pablasso/flightpath/internal/engine"
	"github.com/pablasso/flightpath/internal/notify"
	"github.com/pablasso/flightpath/internal/tui/components"
	"github.com/pablasso/flightpath/internal/tui/msgs"
	"github.com/pablasso/flightpath/internal/tui/styles"
	"github.com/pablasso/flightpath/internal/tui/views"
)

// Minimum terminal dimensions for a usable layout.
const (
	MinTerminalWidth  = 60
	MinTerminalHeight = 15
)

// View represents the different screens in the TUI.
type View int

const (
	ViewForm View = iota
	ViewSweep
)

// Model is the main Bubble Tea model that orchestrates all views. It owns
// the orchestrator: completions are delivered from Update only.
type Model struct {
	currentView View
	width       int
	height      int

	orch     *engine.Orchestrator
	notes    *notify.Center
	activity *views.Activity
	logger   *slog.Logger
	demo     bool

	form  views.FormModel
	sweep views.SweepModel
}

// Run starts the TUI application.
func Run(opts Options) error {
	m, err := New(opts)
	if err != nil {
		return err
	}
	defer m.orch.Close()

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err = p.Run()
	return err
}

// New wires the engine, the notification center and both views.
func New(opts Options) (Model, error) {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg := opts.Config

	predictor, err := newPredictor(opts, logger)
	if err != nil {
		return Model{}, err
	}

	notes := notify.NewCenter().WithClock(clock)
	plot := components.NewPlot()
	activity := views.NewActivity(clock)

	orch, err := engine.New(engine.Options{
		Predictor: predictor,
		Canvas:    plot,
		Notifier:  notes,
		Events:    activity,
		Metrics:   opts.Metrics,
		Logger:    logger,
		Retry: engine.RetryPolicy{
			MaxReruns: cfg.Retry.MaxReruns,
			Backoff:   cfg.Retry.Backoff,
			Uniform:   cfg.Retry.Uniform,
		},
	})
	if err != nil {
		return Model{}, err
	}

	return Model{
		currentView: ViewForm,
		orch:        orch,
		notes:       notes,
		activity:    activity,
		logger:      logger,
		demo:        opts.Demo != nil,
		form: views.NewFormModel(views.FormOptions{
			Clock:    clock,
			MinHours: cfg.Predict.MinHours,
			MaxHours: cfg.Predict.MaxHours,
			Profile:  cfg.Predict.Profile,
			Demo:     opts.Demo != nil,
		}),
		sweep: views.NewSweepModel(views.SweepOptions{
			Orchestrator: orch,
			Notes:        notes,
			Plot:         plot,
			Activity:     activity,
			MaxAttempts:  1 + cfg.Retry.MaxReruns,
			ExportDir:    opts.ExportDir,
			Demo:         opts.Demo != nil,
			Clock:        clock,
		}),
	}, nil
}

func newPredictor(opts Options, logger *slog.Logger) (engine.Predictor, error) {
	if opts.Predictor != nil {
		return opts.Predictor, nil
	}
	if opts.Demo != nil {
		cfg, err := demo.NewConfig(opts.Demo.Preset, opts.Demo.Scenario)
		if err != nil {
			return nil, err
		}
		return demo.NewPredictor(cfg), nil
	}

	c := opts.Config.API
	client, err := api.NewClient(api.ClientOptions{
		BaseURL:     c.URL,
		Timeout:     c.Timeout,
		UserAgent:   c.UserAgent,
		MaxInFlight: int64(c.MaxInFlight),
		Cache:       api.NewCache(c.CacheSize, c.CacheTTL),
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Init implements tea.Model. In demo mode the prefilled form is submitted
// right away.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.form.Init(), m.listen()}
	if m.demo {
		_, submit := m.form.Submit()
		cmds = append(cmds, submit)
	}
	return tea.Batch(cmds...)
}

// listen waits for the next attempt outcome. Exactly one listener is
// outstanding at a time; each CompletionMsg re-arms it.
func (m Model) listen() tea.Cmd {
	ch := m.orch.Completions()
	return func() tea.Msg {
		return msgs.CompletionMsg{Completion: <-ch}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.form.SetSize(msg.Width, msg.Height)
		m.sweep.SetSize(msg.Width, msg.Height)
		return m, nil

	case msgs.CompletionMsg:
		m.orch.Deliver(msg.Completion)
		m.sweep.Refresh()
		return m, m.listen()

	case msgs.SubmitMsg:
		return m.startSweep(msg.Request)

	case msgs.GoToFormMsg:
		m.currentView = ViewForm
		return m, m.form.Init()

	case tea.KeyMsg:
		var cmd tea.Cmd
		switch m.currentView {
		case ViewForm:
			m.form, cmd = m.form.Update(msg)
		case ViewSweep:
			m.sweep, cmd = m.sweep.Update(msg)
		}
		return m, cmd
	}

	// Timers and export results belong to the sweep view even while the
	// form is showing.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.sweep, cmd = m.sweep.Update(msg)
	cmds = append(cmds, cmd)
	if m.currentView == ViewForm {
		m.form, cmd = m.form.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// startSweep replaces whatever was shown with a new batch.
func (m Model) startSweep(req engine.SweepRequest) (tea.Model, tea.Cmd) {
	m.notes.CloseAll()
	m.activity.Clear()

	b, err := m.orch.Predict(req)
	if err != nil {
		m.logger.Error("sweep_rejected", "error", err)
		m.notes.Notify(notify.LevelError, err.Error())
		return m, nil
	}

	m.currentView = ViewSweep
	return m, m.sweep.Start(b)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width < MinTerminalWidth || m.height < MinTerminalHeight {
		return m.renderTerminalTooSmall()
	}

	switch m.currentView {
	case ViewSweep:
		return m.sweep.View()
	default:
		return m.form.View()
	}
}

func (m Model) renderTerminalTooSmall() string {
	var b strings.Builder
	b.WriteString(styles.ErrorStyle.Render("Terminal too small"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Minimum: %dx%d\n", MinTerminalWidth, MinTerminalHeight))
	b.WriteString(fmt.Sprintf("Current: %dx%d", m.width, m.height))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, b.String())
}

// CurrentView returns the screen being shown.
func (m Model) CurrentView() View {
	return m.currentView
}

// Orchestrator returns the engine the model drives.
func (m Model) Orchestrator() *engine.Orchestrator {
	return m.orch
}
