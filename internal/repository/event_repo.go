package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/recoverly/recovery-engine/internal/domain"
	"gorm.io/gorm"
)

// Range is an optional occurred-at filter for analytics queries.
type Range struct {
	From *time.Time
	To   *time.Time
}

// ChannelCount is one row of a channel-grouped aggregate.
type ChannelCount struct {
	Channel string `gorm:"column:channel"`
	Count   int64  `gorm:"column:count"`
}

type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	GetByProviderEventID(ctx context.Context, providerEventID string) (*domain.Event, error)
	// SetRecoveryOutcome marks a succeeded event recovered. The guard on the
	// recovered flag makes the write at-most-once.
	SetRecoveryOutcome(ctx context.Context, id string, reason domain.RecoveryReason, channel *domain.Channel) error
	CountByType(ctx context.Context, userID string, eventType domain.EventType, r Range) (int64, error)
	CountRecovered(ctx context.Context, userID string, reason domain.RecoveryReason, r Range) (int64, error)
	SumSucceededCents(ctx context.Context, userID string, r Range) (int64, error)
	ListByType(ctx context.Context, userID string, eventType domain.EventType, r Range) ([]domain.Event, error)
	GroupRecoveredByChannel(ctx context.Context, userID string, r Range) ([]ChannelCount, error)
}

type GormEventRepo struct {
	db *gorm.DB
}

func NewGormEventRepo(db *gorm.DB) *GormEventRepo {
	return &GormEventRepo{db: db}
}

func (r *GormEventRepo) Create(ctx context.Context, event *domain.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	model := eventModelFromDomain(event)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	*event = *eventModelToDomain(model)
	return nil
}

func (r *GormEventRepo) GetByProviderEventID(ctx context.Context, providerEventID string) (*domain.Event, error) {
	var model EventModel
	err := r.db.WithContext(ctx).
		Where("provider_event_id = ?", providerEventID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return eventModelToDomain(&model), nil
}

func (r *GormEventRepo) SetRecoveryOutcome(ctx context.Context, id string, reason domain.RecoveryReason, channel *domain.Channel) error {
	updates := map[string]any{
		"recovered": true,
		"reason":    string(reason),
	}
	if channel != nil {
		updates["channel"] = channel.Key()
	}

	result := r.db.WithContext(ctx).
		Model(&EventModel{}).
		Where("id = ? AND recovered = ?", id, false).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormEventRepo) CountByType(ctx context.Context, userID string, eventType domain.EventType, rng Range) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&EventModel{}).
		Where("user_id = ? AND type = ?", userID, string(eventType))
	err := applyOccurredRange(query, rng).Count(&count).Error
	return count, err
}

func (r *GormEventRepo) CountRecovered(ctx context.Context, userID string, reason domain.RecoveryReason, rng Range) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&EventModel{}).
		Where("user_id = ? AND recovered = ? AND reason = ?", userID, true, string(reason))
	err := applyOccurredRange(query, rng).Count(&count).Error
	return count, err
}

func (r *GormEventRepo) SumSucceededCents(ctx context.Context, userID string, rng Range) (int64, error) {
	var total *int64
	query := r.db.WithContext(ctx).
		Model(&EventModel{}).
		Select("SUM(amount_cents)").
		Where("user_id = ? AND type = ?", userID, string(domain.EventPaymentSucceeded))
	err := applyOccurredRange(query, rng).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *GormEventRepo) ListByType(ctx context.Context, userID string, eventType domain.EventType, rng Range) ([]domain.Event, error) {
	var models []EventModel
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, string(eventType)).
		Order("occurred_at ASC")
	if err := applyOccurredRange(query, rng).Find(&models).Error; err != nil {
		return nil, err
	}

	events := make([]domain.Event, 0, len(models))
	for i := range models {
		events = append(events, *eventModelToDomain(&models[i]))
	}
	return events, nil
}

func (r *GormEventRepo) GroupRecoveredByChannel(ctx context.Context, userID string, rng Range) ([]ChannelCount, error) {
	var counts []ChannelCount
	query := r.db.WithContext(ctx).
		Model(&EventModel{}).
		Select("COALESCE(channel, 'unknown') as channel, COUNT(*) as count").
		Where("user_id = ? AND recovered = ?", userID, true).
		Group("COALESCE(channel, 'unknown')")
	if err := applyOccurredRange(query, rng).Scan(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}

func applyOccurredRange(query *gorm.DB, rng Range) *gorm.DB {
	if rng.From != nil {
		query = query.Where("occurred_at >= ?", *rng.From)
	}
	if rng.To != nil {
		query = query.Where("occurred_at <= ?", *rng.To)
	}
	return query
}
