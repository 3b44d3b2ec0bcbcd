package recovery

import (
	"fmt"

	"github.com/recoverly/recovery-engine/internal/domain"
)

const recoverySubject = "Action required: update your payment"

// BuildMessage renders the payment recovery notification around a tracked
// link. Email clients get the HTML body, every other channel uses Text.
func BuildMessage(link string) domain.Message {
	return domain.Message{
		Subject: recoverySubject,
		Text: fmt.Sprintf(
			"Your recent payment did not go through. Update your payment method to keep your access: %s",
			link,
		),
		HTML: fmt.Sprintf(
			`<p>Your recent payment did not go through.</p><p><a href=%q>Update your payment method</a> to keep your access.</p>`,
			link,
		),
	}
}
