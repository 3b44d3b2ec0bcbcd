package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/recoverly/recovery-engine/internal/dispatch"
	"github.com/recoverly/recovery-engine/internal/domain"
	"github.com/recoverly/recovery-engine/internal/observability"
	"github.com/recoverly/recovery-engine/internal/recovery"
	"github.com/recoverly/recovery-engine/internal/repository"
	"go.uber.org/zap"
)

// NotifyService covers engagement outside the webhook pipeline: operator
// triggered re-notification and recovery link click tracking.
type NotifyService struct {
	users      repository.UserRepository
	clicks     repository.ClickRepository
	dispatcher *dispatch.Dispatcher
	links      *recovery.LinkBuilder
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

func NewNotifyService(
	users repository.UserRepository,
	clicks repository.ClickRepository,
	dispatcher *dispatch.Dispatcher,
	links *recovery.LinkBuilder,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*NotifyService, error) {
	if users == nil || clicks == nil {
		return nil, fmt.Errorf("user and click repositories are required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if links == nil {
		return nil, fmt.Errorf("link builder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NotifyService{
		users:      users,
		clicks:     clicks,
		dispatcher: dispatcher,
		links:      links,
		metrics:    metrics,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// NotifyFailed re-sends the payment recovery notification to one user across
// all channels. Used by operators when the automatic fan-out was missed.
func (s *NotifyService) NotifyFailed(ctx context.Context, userID string) ([]dispatch.Result, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := s.dispatcher.Fanout(ctx, user, func(ch domain.Channel) domain.Message {
		return recovery.BuildMessage(s.links.Build(user.ID, ch, ""))
	})

	s.logger.Info("manual re-notification dispatched", zap.String("user_id", user.ID))
	return results, nil
}

// RecordClick stores one recovery link click. The channel arrives as the
// lowercase link parameter; unknown values are stored as-is since old links
// may outlive the channel set.
func (s *NotifyService) RecordClick(ctx context.Context, userID, channelKey, messageID string) error {
	channelKey = strings.ToLower(strings.TrimSpace(channelKey))
	if channelKey == "" {
		channelKey = "unknown"
	}

	click := &domain.Click{
		UserID:    strings.TrimSpace(userID),
		Channel:   channelKey,
		ClickedAt: s.now(),
	}
	if messageID = strings.TrimSpace(messageID); messageID != "" {
		click.MessageID = &messageID
	}

	if err := s.clicks.Create(ctx, click); err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}

	s.metrics.IncClickRecorded(channelKey)
	return nil
}
