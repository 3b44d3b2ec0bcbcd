package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/recoverly/recovery-engine/internal/domain"
	"gorm.io/gorm"
)

type ClickRepository interface {
	Create(ctx context.Context, click *domain.Click) error
	// LatestInWindow returns the most recent click by the user with
	// clickedAt inside [from, to], both ends inclusive. ErrNotFound when the
	// window holds no click.
	LatestInWindow(ctx context.Context, userID string, from, to time.Time) (*domain.Click, error)
	CountByUser(ctx context.Context, userID string, r Range) (int64, error)
	GroupByChannel(ctx context.Context, userID string, r Range) ([]ChannelCount, error)
}

type GormClickRepo struct {
	db *gorm.DB
}

func NewGormClickRepo(db *gorm.DB) *GormClickRepo {
	return &GormClickRepo{db: db}
}

func (r *GormClickRepo) Create(ctx context.Context, click *domain.Click) error {
	if err := click.Validate(); err != nil {
		return err
	}
	if click.ID == "" {
		click.ID = uuid.NewString()
	}
	if click.ClickedAt.IsZero() {
		click.ClickedAt = time.Now().UTC()
	}

	model := clickModelFromDomain(click)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	*click = *clickModelToDomain(model)
	return nil
}

func (r *GormClickRepo) LatestInWindow(ctx context.Context, userID string, from, to time.Time) (*domain.Click, error) {
	var model ClickModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND clicked_at >= ? AND clicked_at <= ?", userID, from, to).
		Order("clicked_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return clickModelToDomain(&model), nil
}

func (r *GormClickRepo) CountByUser(ctx context.Context, userID string, rng Range) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&ClickModel{}).
		Where("user_id = ?", userID)
	err := applyClickedRange(query, rng).Count(&count).Error
	return count, err
}

func (r *GormClickRepo) GroupByChannel(ctx context.Context, userID string, rng Range) ([]ChannelCount, error) {
	var counts []ChannelCount
	query := r.db.WithContext(ctx).
		Model(&ClickModel{}).
		Select("channel, COUNT(*) as count").
		Where("user_id = ?", userID).
		Group("channel")
	if err := applyClickedRange(query, rng).Scan(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}

func applyClickedRange(query *gorm.DB, rng Range) *gorm.DB {
	if rng.From != nil {
		query = query.Where("clicked_at >= ?", *rng.From)
	}
	if rng.To != nil {
		query = query.Where("clicked_at <= ?", *rng.To)
	}
	return query
}
