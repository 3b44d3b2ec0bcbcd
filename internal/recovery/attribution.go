package recovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/recoverly/recovery-engine/internal/domain"
	"github.com/recoverly/recovery-engine/internal/repository"
	"go.uber.org/zap"
)

// Attributor decides how a succeeded payment is credited. A click inside the
// attribution window credits its channel; otherwise the recovery counts
// against the window alone.
type Attributor struct {
	clicks repository.ClickRepository
	window time.Duration
	logger *zap.Logger
}

func NewAttributor(clicks repository.ClickRepository, window time.Duration, logger *zap.Logger) (*Attributor, error) {
	if clicks == nil {
		return nil, fmt.Errorf("click repository is required")
	}
	if window <= 0 {
		return nil, fmt.Errorf("attribution window must be positive, got %s", window)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Attributor{clicks: clicks, window: window, logger: logger}, nil
}

// Attribute resolves the outcome for a payment that succeeded at succeededAt.
// The window is [succeededAt - window, succeededAt], both ends inclusive.
func (a *Attributor) Attribute(ctx context.Context, userID string, succeededAt time.Time) (domain.RecoveryOutcome, error) {
	from := succeededAt.Add(-a.window)

	click, err := a.clicks.LatestInWindow(ctx, userID, from, succeededAt)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.RecoveryOutcome{}, nil
	}
	if err != nil {
		return domain.RecoveryOutcome{}, fmt.Errorf("failed to look up clicks: %w", err)
	}

	channel, err := domain.ParseChannelFromString(click.Channel)
	if err != nil {
		// Stored clicks can carry channels we no longer dispatch on. The
		// click still proves engagement, so keep the by-click credit.
		a.logger.Warn("click carries unknown channel",
			zap.String("user_id", userID),
			zap.String("channel", click.Channel),
		)
		return domain.RecoveryOutcome{ByClick: true}, nil
	}

	return domain.RecoveryOutcome{ByClick: true, Channel: &channel}, nil
}
