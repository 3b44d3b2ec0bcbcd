package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/recoverly/recovery-engine/internal/domain"
	"gorm.io/gorm"
)

type WebhookLogRepository interface {
	// Create writes the processing-status audit row. One row per delivery;
	// duplicates of the same provider event id are expected.
	Create(ctx context.Context, log *domain.WebhookLog) error
	// Finish moves the row to a terminal status. A row already terminal is
	// left untouched.
	Finish(ctx context.Context, id string, status domain.WebhookLogStatus, errText *string) error
	GetByID(ctx context.Context, id string) (*domain.WebhookLog, error)
}

type GormWebhookLogRepo struct {
	db *gorm.DB
}

func NewGormWebhookLogRepo(db *gorm.DB) *GormWebhookLogRepo {
	return &GormWebhookLogRepo{db: db}
}

func (r *GormWebhookLogRepo) Create(ctx context.Context, log *domain.WebhookLog) error {
	if log == nil {
		return domain.ErrValidation
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.Status == "" {
		log.Status = domain.WebhookLogProcessing
	}
	if log.ReceivedAt.IsZero() {
		log.ReceivedAt = time.Now().UTC()
	}
	if err := log.Validate(); err != nil {
		return err
	}

	model := webhookLogModelFromDomain(log)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	*log = *webhookLogModelToDomain(model)
	return nil
}

func (r *GormWebhookLogRepo) Finish(ctx context.Context, id string, status domain.WebhookLogStatus, errText *string) error {
	if !status.IsTerminal() {
		return domain.ErrValidation
	}

	result := r.db.WithContext(ctx).
		Model(&WebhookLogModel{}).
		Where("id = ? AND status = ?", id, string(domain.WebhookLogProcessing)).
		Updates(map[string]any{
			"status": string(status),
			"error":  errText,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormWebhookLogRepo) GetByID(ctx context.Context, id string) (*domain.WebhookLog, error) {
	var model WebhookLogModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return webhookLogModelToDomain(&model), nil
}
