// Package msgs defines shared message types for TUI view transitions.
package msgs

import "github.com/pablasso/flightpath/internal/engine"

// View transition messages

// GoToFormMsg signals transition back to the launch form.
type GoToFormMsg struct{}

// SubmitMsg is sent when the form validated and a sweep should start.
type SubmitMsg struct {
	Request engine.SweepRequest
}

// CompletionMsg carries one attempt outcome from the orchestrator's
// completion channel into Update.
type CompletionMsg struct {
	Completion engine.Completion
}

// ExportedMsg reports the result of writing the current paths to disk.
type ExportedMsg struct {
	Path string
	Err  error
}
