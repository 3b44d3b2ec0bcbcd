package domain

import (
	"fmt"
	"strings"
	"time"
)

// EventType is the provider-reported payment lifecycle type. Types other than
// the two payment outcomes are stored as-is with no side effects.
type EventType string

const (
	EventPaymentFailed    EventType = "payment_failed"
	EventPaymentSucceeded EventType = "payment_succeeded"
)

func (t EventType) String() string { return string(t) }

// RecoveryReason explains how a successful payment was attributed.
type RecoveryReason string

const (
	// ReasonClick: a tracked click inside the attribution window.
	ReasonClick RecoveryReason = "click"
	// ReasonWindow: recovered inside the window with no traced click.
	ReasonWindow RecoveryReason = "window"
)

func (r RecoveryReason) String() string { return string(r) }

func (r RecoveryReason) IsValid() bool {
	return r == ReasonClick || r == ReasonWindow
}

// Event is one provider-reported payment lifecycle occurrence. Exactly one
// Event exists per ProviderEventID; the row is immutable except for the
// recovery fields, set at most once by the attribution engine.
type Event struct {
	ID              string
	ProviderEventID string
	UserID          string
	Type            EventType
	AmountCents     *int64
	Currency        *string
	OccurredAt      time.Time
	Meta            map[string]string
	Recovered       bool
	Reason          *RecoveryReason
	Channel         *Channel
	CreatedAt       time.Time
}

func (e *Event) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: event is required", ErrValidation)
	}
	if strings.TrimSpace(e.ProviderEventID) == "" {
		return fmt.Errorf("%w: provider event id is required", ErrValidation)
	}
	if strings.TrimSpace(e.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if strings.TrimSpace(string(e.Type)) == "" {
		return fmt.Errorf("%w: event type is required", ErrValidation)
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("%w: occurred at is required", ErrValidation)
	}
	return nil
}

// RecoveryOutcome is the attribution engine's verdict for a succeeded payment.
type RecoveryOutcome struct {
	ByClick bool
	Channel *Channel
}

// Reason maps the outcome to the stored recovery reason.
func (o RecoveryOutcome) Reason() RecoveryReason {
	if o.ByClick {
		return ReasonClick
	}
	return ReasonWindow
}
