package engine

import (
	"time"

	"github.com/pablasso/flightpath/internal/api"
)

const (
	DefaultMaxReruns = 3
	DefaultBackoff   = 500 * time.Millisecond
)

// RetryPolicy bounds how often a failed task is sent again.
type RetryPolicy struct {
	// MaxReruns is the number of reruns after the first attempt.
	MaxReruns int
	// Backoff is multiplied by the rerun number to get the delay before
	// the rerun is sent.
	Backoff time.Duration
	// Uniform retries every failure, including requests the service
	// rejected as invalid.
	Uniform bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxReruns: DefaultMaxReruns, Backoff: DefaultBackoff}
}

// Retryable reports whether a failed attempt should be rerun if the budget
// allows.
func (p RetryPolicy) Retryable(err error) bool {
	if p.Uniform {
		return true
	}
	return api.Retryable(err)
}

func (p RetryPolicy) delay(rerun int) time.Duration {
	if p.Backoff <= 0 || rerun <= 0 {
		return 0
	}
	return p.Backoff * time.Duration(rerun)
}
