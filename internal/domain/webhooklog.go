package domain

import (
	"fmt"
	"strings"
	"time"
)

// WebhookLogStatus is the lifecycle state of one ingestion attempt.
type WebhookLogStatus string

const (
	WebhookLogProcessing WebhookLogStatus = "processing"
	WebhookLogSuccess    WebhookLogStatus = "success"
	WebhookLogIdempotent WebhookLogStatus = "idempotent"
	WebhookLogInvalid    WebhookLogStatus = "invalid"
	WebhookLogError      WebhookLogStatus = "error"
)

func (s WebhookLogStatus) String() string { return string(s) }

func (s WebhookLogStatus) IsValid() bool {
	switch s {
	case WebhookLogProcessing, WebhookLogSuccess, WebhookLogIdempotent, WebhookLogInvalid, WebhookLogError:
		return true
	}
	return false
}

// IsTerminal reports whether the status may no longer change.
func (s WebhookLogStatus) IsTerminal() bool {
	return s.IsValid() && s != WebhookLogProcessing
}

// WebhookLog is the audit record of one inbound delivery. One row per HTTP
// delivery, duplicates included; created in processing status before any
// validation and finished exactly once with a terminal status.
type WebhookLog struct {
	ID              string
	ProviderEventID string
	EventType       string
	Status          WebhookLogStatus
	Payload         []byte
	Error           *string
	ReceivedAt      time.Time
	UpdatedAt       time.Time
}

func (l *WebhookLog) Validate() error {
	if l == nil {
		return fmt.Errorf("%w: webhook log is required", ErrValidation)
	}
	if strings.TrimSpace(l.ProviderEventID) == "" {
		return fmt.Errorf("%w: provider event id is required", ErrValidation)
	}
	if !l.Status.IsValid() {
		return fmt.Errorf("%w: invalid webhook log status %q", ErrValidation, l.Status)
	}
	return nil
}
