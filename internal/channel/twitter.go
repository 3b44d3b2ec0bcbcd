package channel

import (
	"context"

	"github.com/recoverly/recovery-engine/internal/domain"
)

// TwitterSender is a placeholder until API access is available. It reports
// success with no provider message id so the dispatch accounting stays
// uniform across channels.
type TwitterSender struct{}

func NewTwitterSender() *TwitterSender {
	return &TwitterSender{}
}

func (s *TwitterSender) Send(ctx context.Context, recipient string, message domain.Message) (*ProviderResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := message.Validate(); err != nil {
		return nil, err
	}
	return &ProviderResponse{}, nil
}
