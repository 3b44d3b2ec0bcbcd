package channel

import (
	"context"

	"github.com/recoverly/recovery-engine/internal/domain"
)

// Sender is the outbound delivery port for one channel. Adapters perform a
// single provider call per invocation; retrying is the dispatcher's job.
type Sender interface {
	Send(ctx context.Context, recipient string, message domain.Message) (*ProviderResponse, error)
}

// ProviderResponse stores provider call metadata. MessageID may be empty when
// the provider supplies no correlation id; that alone is not a failure.
type ProviderResponse struct {
	StatusCode int
	Body       string
	MessageID  string
}
