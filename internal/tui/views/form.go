package views

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pablasso/flightpath/internal/api"
	"github.com/pablasso/flightpath/internal/form"
	"github.com/pablasso/flightpath/internal/tui/components"
	"github.com/pablasso/flightpath/internal/tui/msgs"
	"github.com/pablasso/flightpath/internal/tui/styles"
)

// TimeLayout is how launch and stop times are typed into the form.
const TimeLayout = "2006-01-02 15:04"

type unitKind int

const (
	unitNone unitKind = iota
	unitLength
	unitRate
	unitTime
)

// fieldSpec describes one input. Field names match form.Validate's.
type fieldSpec struct {
	name    string
	label   string
	unit    unitKind
	profile string // empty means every profile
}

var fieldSpecs = []fieldSpec{
	{name: "latitude", label: "Latitude"},
	{name: "longitude", label: "Longitude"},
	{name: "altitude", label: "Launch altitude", unit: unitLength},
	{name: "ascent_rate", label: "Ascent rate", unit: unitRate},
	{name: "burst_altitude", label: "Burst altitude", unit: unitLength, profile: api.ProfileStandard},
	{name: "descent_rate", label: "Descent rate", unit: unitRate, profile: api.ProfileStandard},
	{name: "float_altitude", label: "Float altitude", unit: unitLength, profile: api.ProfileFloat},
	{name: "stop_time", label: "Stop time", unit: unitTime, profile: api.ProfileFloat},
	{name: "launch", label: "Launch time", unit: unitTime},
	{name: "hourly", label: "Hourly launches"},
}

// FormOptions seed the launch form.
type FormOptions struct {
	// Clock defaults to time.Now.
	Clock    func() time.Time
	MinHours int
	MaxHours int
	Profile  string
	Demo     bool
}

// FormModel is the launch parameter form.
type FormModel struct {
	inputs   []textinput.Model
	focus    int
	profile  string
	imperial bool
	window   form.Window
	errs     form.Errors
	demo     bool

	clock    func() time.Time
	minHours int
	maxHours int

	width  int
	height int
}

// NewFormModel creates a form prefilled with a standard flight launching at
// the next five minute mark.
func NewFormModel(opts FormOptions) FormModel {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	profile := opts.Profile
	if profile != api.ProfileFloat {
		profile = api.ProfileStandard
	}

	window := form.NewWindow(opts.Clock(), opts.MinHours, opts.MaxHours)
	launch := window.DefaultLaunch()
	defaults := map[string]string{
		"latitude":       "52.2135",
		"longitude":      "0.0964",
		"altitude":       "",
		"ascent_rate":    "5",
		"burst_altitude": "30000",
		"descent_rate":   "5",
		"float_altitude": "15000",
		"stop_time":      launch.Add(24 * time.Hour).Format(TimeLayout),
		"launch":         launch.Format(TimeLayout),
		"hourly":         "1",
	}

	inputs := make([]textinput.Model, len(fieldSpecs))
	for i, spec := range fieldSpecs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 32
		ti.Width = 20
		ti.SetValue(defaults[spec.name])
		if spec.name == "altitude" {
			ti.Placeholder = "ground level"
		}
		inputs[i] = ti
	}

	m := FormModel{
		inputs:   inputs,
		profile:  profile,
		window:   window,
		demo:     opts.Demo,
		clock:    opts.Clock,
		minHours: opts.MinHours,
		maxHours: opts.MaxHours,
	}
	m.inputs[0].Focus()
	return m
}

// Init implements tea.Model.
func (m FormModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m FormModel) Update(msg tea.Msg) (FormModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "down":
			m.moveFocus(1)
			return m, nil
		case "shift+tab", "up":
			m.moveFocus(-1)
			return m, nil
		case "ctrl+t":
			m.imperial = !m.imperial
			return m, nil
		case "ctrl+p":
			m.toggleProfile()
			return m, nil
		case "enter":
			return m.Submit()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m FormModel) visible(i int) bool {
	p := fieldSpecs[i].profile
	return p == "" || p == m.profile
}

func (m *FormModel) moveFocus(delta int) {
	next := m.focus
	for range fieldSpecs {
		next = (next + delta + len(fieldSpecs)) % len(fieldSpecs)
		if m.visible(next) {
			break
		}
	}
	m.setFocus(next)
}

func (m *FormModel) setFocus(i int) {
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
}

func (m *FormModel) toggleProfile() {
	if m.profile == api.ProfileFloat {
		m.profile = api.ProfileStandard
	} else {
		m.profile = api.ProfileFloat
	}
	if !m.visible(m.focus) {
		m.moveFocus(1)
	}
	m.errs = nil
}

// Submit validates the inputs and either emits a SubmitMsg or keeps the
// form open with the failing fields marked.
func (m FormModel) Submit() (FormModel, tea.Cmd) {
	values, errs := m.Values()
	if len(errs) > 0 {
		m.errs = errs
		m.focusFirstError()
		return m, nil
	}

	m.window = form.NewWindow(m.clock(), m.minHours, m.maxHours)
	req, err := form.Validate(values, m.window)
	if err != nil {
		var ferrs form.Errors
		if errors.As(err, &ferrs) {
			m.errs = ferrs
		} else {
			m.errs = form.Errors{{Field: "launch", Message: err.Error()}}
		}
		m.focusFirstError()
		return m, nil
	}

	m.errs = nil
	return m, func() tea.Msg { return msgs.SubmitMsg{Request: req} }
}

func (m *FormModel) focusFirstError() {
	for i, spec := range fieldSpecs {
		if _, ok := m.errs.Field(spec.name); ok && m.visible(i) {
			m.setFocus(i)
			return
		}
	}
}

// Values parses the raw inputs. Fields that are not numbers or times are
// reported here; range checks are left to form.Validate.
func (m FormModel) Values() (form.Values, form.Errors) {
	var errs form.Errors
	text := func(name string) string {
		for i, spec := range fieldSpecs {
			if spec.name == name {
				return strings.TrimSpace(m.inputs[i].Value())
			}
		}
		return ""
	}
	number := func(name string) float64 {
		f, err := strconv.ParseFloat(text(name), 64)
		if err != nil {
			errs = append(errs, form.FieldError{Field: name, Message: "must be a number"})
		}
		return f
	}
	timestamp := func(name string) time.Time {
		t, err := time.ParseInLocation(TimeLayout, text(name), time.UTC)
		if err != nil {
			errs = append(errs, form.FieldError{Field: name, Message: "must look like " + TimeLayout})
		}
		return t
	}

	length, rate := form.Meters, form.MetersPerSecond
	if m.imperial {
		length, rate = form.Feet, form.FeetPerSecond
	}

	v := form.Values{
		Profile:      m.profile,
		Latitude:     number("latitude"),
		Longitude:    number("longitude"),
		AltitudeUnit: length,
		AscentRate:   number("ascent_rate"),
		AscentUnit:   rate,
		BurstUnit:    length,
		DescentUnit:  rate,
		FloatUnit:    length,
		Launch:       timestamp("launch"),
	}
	if text("altitude") != "" {
		alt := number("altitude")
		v.Altitude = &alt
	}
	if m.profile == api.ProfileFloat {
		v.FloatAltitude = number("float_altitude")
		v.StopTime = timestamp("stop_time")
	} else {
		v.BurstAltitude = number("burst_altitude")
		v.DescentRate = number("descent_rate")
	}

	hourly, err := strconv.Atoi(text("hourly"))
	if err != nil {
		errs = append(errs, form.FieldError{Field: "hourly", Message: "must be a whole number"})
	}
	v.Hourly = hourly

	return v, errs
}

// SetValue replaces the text of one field.
func (m *FormModel) SetValue(name, value string) {
	for i, spec := range fieldSpecs {
		if spec.name == name {
			m.inputs[i].SetValue(value)
			return
		}
	}
}

// SetSize updates the model dimensions.
func (m *FormModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Profile returns the selected flight profile.
func (m FormModel) Profile() string {
	return m.profile
}

// Imperial reports whether lengths and rates are entered in feet.
func (m FormModel) Imperial() bool {
	return m.imperial
}

// Errors returns the failures from the last submission.
func (m FormModel) Errors() form.Errors {
	return m.errs
}

// Focused returns the name of the focused field.
func (m FormModel) Focused() string {
	return fieldSpecs[m.focus].name
}

func (m FormModel) unitLabel(kind unitKind) string {
	switch kind {
	case unitLength:
		if m.imperial {
			return string(form.Feet)
		}
		return string(form.Meters)
	case unitRate:
		if m.imperial {
			return string(form.FeetPerSecond)
		}
		return string(form.MetersPerSecond)
	case unitTime:
		return "UTC"
	default:
		return ""
	}
}

// View implements tea.Model.
func (m FormModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := styles.TitleStyle.Render("Flight Path Predictor")
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, title))
	b.WriteString("\n")

	profile := fmt.Sprintf("Profile: %s", m.profile)
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, styles.SubtleStyle.Render(profile)))
	b.WriteString("\n\n")

	var rows []string
	for i, spec := range fieldSpecs {
		if !m.visible(i) {
			continue
		}
		label := fmt.Sprintf("%-16s", spec.label)
		if i == m.focus {
			label = styles.SelectedStyle.Render(label)
		} else {
			label = styles.SubtleStyle.Render(label)
		}
		row := label + " " + m.inputs[i].View() + " " + m.unitLabel(spec.unit)
		if msg, ok := m.errs.Field(spec.name); ok {
			row += "  " + styles.ErrorStyle.Render(msg)
		}
		rows = append(rows, row)
	}

	window := fmt.Sprintf("Forecast covers %s to %s",
		m.window.Earliest().Format(TimeLayout), m.window.Latest().Format(TimeLayout))
	rows = append(rows, "", styles.SubtleStyle.Render(window))

	formBlock := lipgloss.JoinVertical(lipgloss.Left, rows...)
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, formBlock))
	b.WriteString("\n")

	lines := strings.Count(b.String(), "\n") + 1
	if remaining := m.height - lines - 1; remaining > 0 {
		b.WriteString(strings.Repeat("\n", remaining))
	}

	bar := components.NewStatusBar(
		components.KeyHint{Key: "Tab", Desc: "Next"},
		components.KeyHint{Key: "Ctrl+T", Desc: "Units"},
		components.KeyHint{Key: "Ctrl+P", Desc: "Profile"},
		components.KeyHint{Key: "Enter", Desc: "Predict"},
		components.KeyHint{Key: "Esc", Desc: "Quit"},
	)
	if m.demo {
		bar = bar.WithState("DEMO")
	}
	b.WriteString(bar.Render(m.width))

	return b.String()
}
