package billing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/recoverly/recovery-engine/internal/domain"
)

var validate = validator.New()

// EventPayload is the billing provider's webhook body.
type EventPayload struct {
	ID          string            `json:"id" validate:"required"`
	Type        string            `json:"type" validate:"required"`
	OccurredAt  time.Time         `json:"occurredAt" validate:"required"`
	User        UserPayload       `json:"user" validate:"required"`
	AmountCents *int64            `json:"amountCents,omitempty"`
	Currency    *string           `json:"currency,omitempty"`
	Meta        map[string]string `json:"meta,omitempty"`
}

type UserPayload struct {
	ExternalID string  `json:"externalId" validate:"required"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
}

// ParsePayload decodes and validates a raw webhook body.
func ParsePayload(raw []byte) (*EventPayload, error) {
	var payload EventPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed webhook body: %v", domain.ErrValidation, err)
	}
	if err := validate.Struct(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return &payload, nil
}

// Handle returns a trimmed meta value as an optional contact handle.
func (p *EventPayload) Handle(key string) *string {
	if p == nil || p.Meta == nil {
		return nil
	}
	value, ok := p.Meta[key]
	if !ok || value == "" {
		return nil
	}
	return &value
}
