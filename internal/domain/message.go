package domain

import (
	"fmt"
	"strings"
)

// Message is a channel-agnostic rendered notification. Subject and HTML apply
// to email only; other channels use Text.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.Text) == "" {
		return fmt.Errorf("%w: message text is required", ErrValidation)
	}
	return nil
}
