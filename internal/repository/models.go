package repository

import (
	"encoding/json"
	"time"

	"github.com/recoverly/recovery-engine/internal/domain"
)

// UserModel is the persistence model for the users table.
type UserModel struct {
	ID             string  `gorm:"type:uuid;primaryKey"`
	ProviderUserID string  `gorm:"type:varchar(255);not null;uniqueIndex"`
	Email          *string `gorm:"type:varchar(255)"`
	TelegramID     *string `gorm:"type:varchar(255)"`
	DiscordID      *string `gorm:"type:varchar(255)"`
	TwitterHandle  *string `gorm:"type:varchar(255)"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (UserModel) TableName() string {
	return "users"
}

// EventModel is the persistence model for the events table.
type EventModel struct {
	ID              string  `gorm:"type:uuid;primaryKey"`
	ProviderEventID string  `gorm:"type:varchar(255);not null;uniqueIndex"`
	UserID          string  `gorm:"type:uuid;not null"`
	Type            string  `gorm:"type:varchar(64);not null"`
	AmountCents     *int64  `gorm:"type:bigint"`
	Currency        *string `gorm:"type:varchar(8)"`
	OccurredAt      time.Time
	Meta            []byte  `gorm:"type:jsonb"`
	Recovered       bool    `gorm:"not null;default:false"`
	Reason          *string `gorm:"type:varchar(16)"`
	Channel         *string `gorm:"type:varchar(16)"`
	CreatedAt       time.Time
}

func (EventModel) TableName() string {
	return "events"
}

// ClickModel is the persistence model for the clicks table.
type ClickModel struct {
	ID        string  `gorm:"type:uuid;primaryKey"`
	UserID    string  `gorm:"type:uuid;not null"`
	Channel   string  `gorm:"type:varchar(16);not null"`
	MessageID *string `gorm:"type:varchar(255)"`
	ClickedAt time.Time
}

func (ClickModel) TableName() string {
	return "clicks"
}

// WebhookLogModel is the persistence model for webhook_logs.
type WebhookLogModel struct {
	ID              string  `gorm:"type:uuid;primaryKey"`
	ProviderEventID string  `gorm:"type:varchar(255);not null"`
	EventType       string  `gorm:"type:varchar(64)"`
	Status          string  `gorm:"type:varchar(16);not null"`
	Payload         []byte  `gorm:"type:jsonb"`
	Error           *string `gorm:"type:text"`
	ReceivedAt      time.Time
	UpdatedAt       time.Time
}

func (WebhookLogModel) TableName() string {
	return "webhook_logs"
}

func userModelFromDomain(u *domain.User) *UserModel {
	if u == nil {
		return nil
	}

	return &UserModel{
		ID:             u.ID,
		ProviderUserID: u.ProviderUserID,
		Email:          u.Email,
		TelegramID:     u.TelegramID,
		DiscordID:      u.DiscordID,
		TwitterHandle:  u.TwitterHandle,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func userModelToDomain(m *UserModel) *domain.User {
	if m == nil {
		return nil
	}

	return &domain.User{
		ID:             m.ID,
		ProviderUserID: m.ProviderUserID,
		Email:          m.Email,
		TelegramID:     m.TelegramID,
		DiscordID:      m.DiscordID,
		TwitterHandle:  m.TwitterHandle,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func eventModelFromDomain(e *domain.Event) *EventModel {
	if e == nil {
		return nil
	}

	var meta []byte
	if len(e.Meta) > 0 {
		if raw, err := json.Marshal(e.Meta); err == nil {
			meta = raw
		}
	}

	model := &EventModel{
		ID:              e.ID,
		ProviderEventID: e.ProviderEventID,
		UserID:          e.UserID,
		Type:            string(e.Type),
		AmountCents:     e.AmountCents,
		Currency:        e.Currency,
		OccurredAt:      e.OccurredAt,
		Meta:            meta,
		Recovered:       e.Recovered,
		CreatedAt:       e.CreatedAt,
	}
	if e.Reason != nil {
		reason := string(*e.Reason)
		model.Reason = &reason
	}
	if e.Channel != nil {
		channel := e.Channel.Key()
		model.Channel = &channel
	}
	return model
}

func eventModelToDomain(m *EventModel) *domain.Event {
	if m == nil {
		return nil
	}

	event := &domain.Event{
		ID:              m.ID,
		ProviderEventID: m.ProviderEventID,
		UserID:          m.UserID,
		Type:            domain.EventType(m.Type),
		AmountCents:     m.AmountCents,
		Currency:        m.Currency,
		OccurredAt:      m.OccurredAt,
		Recovered:       m.Recovered,
		CreatedAt:       m.CreatedAt,
	}
	if len(m.Meta) > 0 {
		var meta map[string]string
		if err := json.Unmarshal(m.Meta, &meta); err == nil {
			event.Meta = meta
		}
	}
	if m.Reason != nil {
		reason := domain.RecoveryReason(*m.Reason)
		event.Reason = &reason
	}
	if m.Channel != nil {
		if channel, err := domain.ParseChannelFromString(*m.Channel); err == nil {
			event.Channel = &channel
		}
	}
	return event
}

func clickModelFromDomain(c *domain.Click) *ClickModel {
	if c == nil {
		return nil
	}

	return &ClickModel{
		ID:        c.ID,
		UserID:    c.UserID,
		Channel:   c.Channel,
		MessageID: c.MessageID,
		ClickedAt: c.ClickedAt,
	}
}

func clickModelToDomain(m *ClickModel) *domain.Click {
	if m == nil {
		return nil
	}

	return &domain.Click{
		ID:        m.ID,
		UserID:    m.UserID,
		Channel:   m.Channel,
		MessageID: m.MessageID,
		ClickedAt: m.ClickedAt,
	}
}

func webhookLogModelFromDomain(l *domain.WebhookLog) *WebhookLogModel {
	if l == nil {
		return nil
	}

	return &WebhookLogModel{
		ID:              l.ID,
		ProviderEventID: l.ProviderEventID,
		EventType:       l.EventType,
		Status:          string(l.Status),
		Payload:         l.Payload,
		Error:           l.Error,
		ReceivedAt:      l.ReceivedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

func webhookLogModelToDomain(m *WebhookLogModel) *domain.WebhookLog {
	if m == nil {
		return nil
	}

	return &domain.WebhookLog{
		ID:              m.ID,
		ProviderEventID: m.ProviderEventID,
		EventType:       m.EventType,
		Status:          domain.WebhookLogStatus(m.Status),
		Payload:         m.Payload,
		Error:           m.Error,
		ReceivedAt:      m.ReceivedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
