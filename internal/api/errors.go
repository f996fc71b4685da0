package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrTimeout      = errors.New("prediction request timed out")
	ErrEmptyPayload = errors.New("prediction response has no trajectory")
)

// Kind classifies why a prediction attempt failed.
type Kind int

const (
	KindTransport Kind = iota
	KindTimeout
	KindServer
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is returned by Client.Predict for every failed attempt.
type Error struct {
	Kind       Kind
	StatusCode int
	// Type and Description come from the service's error envelope.
	Type        string
	Description string
	Err         error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindServer:
		if e.Description != "" {
			return fmt.Sprintf("prediction api error (status=%d, %s): %s", e.StatusCode, e.Type, e.Description)
		}
		return fmt.Sprintf("prediction api error (status=%d)", e.StatusCode)
	case KindTimeout:
		return ErrTimeout.Error()
	default:
		if e.Err != nil {
			return fmt.Sprintf("prediction %s error: %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("prediction %s error", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	if e.Kind == KindTimeout {
		return ErrTimeout
	}
	return e.Err
}

// Message returns the text shown to a user: the service's description when
// there is one, otherwise the error itself.
func (e *Error) Message() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Error()
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsTimeout reports whether err is a per-attempt timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// Retryable reports whether a failed attempt may succeed if sent again.
// Transport, timeout and decode failures are retryable, as are 5xx, 408 and
// 429 responses. Other 4xx responses describe a request the service will
// keep rejecting.
func Retryable(err error) bool {
	apiErr, ok := AsError(err)
	if !ok {
		return true
	}
	if apiErr.Kind != KindServer {
		return true
	}
	switch {
	case apiErr.StatusCode >= 500:
		return true
	case apiErr.StatusCode == http.StatusTooManyRequests, apiErr.StatusCode == http.StatusRequestTimeout:
		return true
	default:
		return false
	}
}

// Describe returns a short human readable reason for err.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := AsError(err); ok {
		return apiErr.Message()
	}
	return err.Error()
}
