package channel

import (
	"fmt"
	"strings"
)

// SenderError carries provider call failure details for attempt logging.
type SenderError struct {
	StatusCode int
	Message    string
	Cause      error
}

func (e *SenderError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 3)
	parts = append(parts, "sender error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *SenderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
