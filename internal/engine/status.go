package engine

// Status is where a Task is in its lifecycle.
type Status int

const (
	StatusNotStarted Status = iota
	StatusRunning
	StatusFailedShouldRerun
	StatusFailed
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusRunning:
		return "running"
	case StatusFailedShouldRerun:
		return "failed_should_rerun"
	case StatusFailed:
		return "failed"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusFailed || s == StatusFinished
}
