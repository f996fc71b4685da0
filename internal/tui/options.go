package tui

import (
	"log/slog"
	"time"

	"github.com/pablasso/flightpath/internal/config"
	"github.com/pablasso/flightpath/internal/demo"
	"github.com/pablasso/flightpath/internal/engine"
)

// Options configures TUI startup behavior.
type Options struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics engine.Recorder
	Demo    *DemoOptions

	// Predictor replaces the prediction API client when set.
	Predictor engine.Predictor
	// ExportDir is where exports are written. Empty means the working
	// directory.
	ExportDir string
	Clock     func() time.Time
}

// DemoOptions configure demo mode when starting the TUI.
type DemoOptions struct {
	Preset   demo.Preset
	Scenario demo.Scenario
}
