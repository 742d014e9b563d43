package dcbev

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request failed validation.
	ErrValidation = errors.New("validation error")

	// ErrBusy indicates a send was rejected because a stream is in flight.
	ErrBusy = errors.New("a response is already streaming")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")

	// ErrNothingToResend indicates retry/regenerate found no eligible
	// user message to re-submit.
	ErrNothingToResend = errors.New("nothing to resend")
)

// StatusError reports a non-success HTTP response from the backend.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Message)
}
