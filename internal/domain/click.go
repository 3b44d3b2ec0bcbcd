package domain

import (
	"fmt"
	"strings"
	"time"
)

// Click records a user following a tracked recovery link. Immutable.
type Click struct {
	ID        string
	UserID    string
	Channel   string
	MessageID *string
	ClickedAt time.Time
}

func (c *Click) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: click is required", ErrValidation)
	}
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if strings.TrimSpace(c.Channel) == "" {
		return fmt.Errorf("%w: channel is required", ErrValidation)
	}
	return nil
}
