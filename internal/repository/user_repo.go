package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/recoverly/recovery-engine/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	// Upsert creates the user keyed by provider user id or merges the
	// supplied contact handles onto the existing row. Absent (nil) handles
	// never erase stored values. The user's internal id is populated on
	// return.
	Upsert(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByProviderID(ctx context.Context, providerUserID string) (*domain.User, error)
}

type GormUserRepo struct {
	db *gorm.DB
}

func NewGormUserRepo(db *gorm.DB) *GormUserRepo {
	return &GormUserRepo{db: db}
}

func (r *GormUserRepo) Upsert(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	model := userModelFromDomain(user)
	assignments := map[string]any{}
	if user.Email != nil {
		assignments["email"] = *user.Email
	}
	if user.TelegramID != nil {
		assignments["telegram_id"] = *user.TelegramID
	}
	if user.DiscordID != nil {
		assignments["discord_id"] = *user.DiscordID
	}
	if user.TwitterHandle != nil {
		assignments["twitter_handle"] = *user.TwitterHandle
	}

	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_user_id"}},
		DoNothing: len(assignments) == 0,
	}
	if len(assignments) > 0 {
		conflict.DoUpdates = clause.Assignments(assignments)
	}

	if err := r.db.WithContext(ctx).Clauses(conflict).Create(model).Error; err != nil {
		return err
	}

	// Re-read to pick up the stored row (existing id, merged handles).
	stored, err := r.GetByProviderID(ctx, user.ProviderUserID)
	if err != nil {
		return err
	}
	*user = *stored
	return nil
}

func (r *GormUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return userModelToDomain(&model), nil
}

func (r *GormUserRepo) GetByProviderID(ctx context.Context, providerUserID string) (*domain.User, error) {
	var model UserModel
	err := r.db.WithContext(ctx).
		Where("provider_user_id = ?", providerUserID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return userModelToDomain(&model), nil
}
