package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/recoverly/recovery-engine/internal/billing"
	"github.com/recoverly/recovery-engine/internal/dispatch"
	"github.com/recoverly/recovery-engine/internal/domain"
	"github.com/recoverly/recovery-engine/internal/observability"
	"github.com/recoverly/recovery-engine/internal/recovery"
	"github.com/recoverly/recovery-engine/internal/repository"
	"go.uber.org/zap"
)

// WebhookOutcome summarizes one processed delivery for the HTTP response.
type WebhookOutcome struct {
	LogID      string                  `json:"logId"`
	Status     domain.WebhookLogStatus `json:"status"`
	EventType  string                  `json:"eventType,omitempty"`
	Duplicate  bool                    `json:"duplicate"`
	Dispatches []dispatch.Result       `json:"dispatches,omitempty"`
	Recovery   *domain.RecoveryReason  `json:"recovery,omitempty"`
}

// WebhookService runs the ingestion pipeline for billing webhook deliveries:
// audit log, authenticity, idempotency, user upsert, event persistence, then
// the type-specific branch (notification fan-out or recovery attribution).
type WebhookService struct {
	logs       repository.WebhookLogRepository
	users      repository.UserRepository
	events     repository.EventRepository
	verifier   *billing.Verifier
	dispatcher *dispatch.Dispatcher
	attributor *recovery.Attributor
	links      *recovery.LinkBuilder
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

func NewWebhookService(
	logs repository.WebhookLogRepository,
	users repository.UserRepository,
	events repository.EventRepository,
	verifier *billing.Verifier,
	dispatcher *dispatch.Dispatcher,
	attributor *recovery.Attributor,
	links *recovery.LinkBuilder,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*WebhookService, error) {
	if logs == nil || users == nil || events == nil {
		return nil, fmt.Errorf("webhook log, user, and event repositories are required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("webhook verifier is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if attributor == nil {
		return nil, fmt.Errorf("attributor is required")
	}
	if links == nil {
		return nil, fmt.Errorf("link builder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WebhookService{
		logs:       logs,
		users:      users,
		events:     events,
		verifier:   verifier,
		dispatcher: dispatcher,
		attributor: attributor,
		links:      links,
		metrics:    metrics,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Process handles one raw delivery. The audit row is created before any
// validation and finished with exactly one terminal status; a failing audit
// write never blocks the pipeline.
func (s *WebhookService) Process(ctx context.Context, rawBody []byte, signature string) (*WebhookOutcome, error) {
	eventID, eventType := peekEnvelope(rawBody)

	logEntry := &domain.WebhookLog{
		ProviderEventID: eventID,
		EventType:       eventType,
		Payload:         rawBody,
		ReceivedAt:      s.now(),
	}
	if err := s.logs.Create(ctx, logEntry); err != nil {
		s.logger.Warn("failed to write webhook audit log", zap.Error(err))
	}

	outcome := &WebhookOutcome{LogID: logEntry.ID, EventType: eventType}

	if !s.verifier.Verify(rawBody, signature) {
		s.finish(ctx, logEntry.ID, domain.WebhookLogInvalid, "invalid signature")
		s.metrics.IncWebhookEvent(eventType, domain.WebhookLogInvalid.String())
		outcome.Status = domain.WebhookLogInvalid
		return outcome, fmt.Errorf("%w: webhook signature mismatch", domain.ErrUnauthorized)
	}

	payload, err := billing.ParsePayload(rawBody)
	if err != nil {
		s.finish(ctx, logEntry.ID, domain.WebhookLogInvalid, err.Error())
		s.metrics.IncWebhookEvent(eventType, domain.WebhookLogInvalid.String())
		outcome.Status = domain.WebhookLogInvalid
		return outcome, err
	}
	outcome.EventType = payload.Type

	if _, err := s.events.GetByProviderEventID(ctx, payload.ID); err == nil {
		s.finish(ctx, logEntry.ID, domain.WebhookLogIdempotent, "")
		s.metrics.IncWebhookEvent(payload.Type, domain.WebhookLogIdempotent.String())
		outcome.Status = domain.WebhookLogIdempotent
		outcome.Duplicate = true
		return outcome, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return s.fail(ctx, logEntry.ID, outcome, fmt.Errorf("failed to check idempotency: %w", err))
	}

	user := &domain.User{ProviderUserID: payload.User.ExternalID}
	user.MergeHandles(
		payload.User.Email,
		payload.Handle("telegram"),
		payload.Handle("discord"),
		payload.Handle("twitter"),
	)
	if err := s.users.Upsert(ctx, user); err != nil {
		return s.fail(ctx, logEntry.ID, outcome, fmt.Errorf("failed to upsert user: %w", err))
	}

	event := &domain.Event{
		ProviderEventID: payload.ID,
		UserID:          user.ID,
		Type:            domain.EventType(payload.Type),
		AmountCents:     payload.AmountCents,
		Currency:        payload.Currency,
		OccurredAt:      payload.OccurredAt,
		Meta:            payload.Meta,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return s.fail(ctx, logEntry.ID, outcome, fmt.Errorf("failed to store event: %w", err))
	}

	switch event.Type {
	case domain.EventPaymentFailed:
		outcome.Dispatches = s.notifyFailedPayment(ctx, user, event)
	case domain.EventPaymentSucceeded:
		reason, err := s.attributeRecovery(ctx, user, event)
		if err != nil {
			return s.fail(ctx, logEntry.ID, outcome, err)
		}
		outcome.Recovery = reason
	default:
		// Other lifecycle types are stored untouched.
	}

	s.finish(ctx, logEntry.ID, domain.WebhookLogSuccess, "")
	s.metrics.IncWebhookEvent(payload.Type, domain.WebhookLogSuccess.String())
	outcome.Status = domain.WebhookLogSuccess
	return outcome, nil
}

func (s *WebhookService) notifyFailedPayment(ctx context.Context, user *domain.User, event *domain.Event) []dispatch.Result {
	return s.dispatcher.Fanout(ctx, user, func(ch domain.Channel) domain.Message {
		return recovery.BuildMessage(s.links.Build(user.ID, ch, event.ID))
	})
}

func (s *WebhookService) attributeRecovery(ctx context.Context, user *domain.User, event *domain.Event) (*domain.RecoveryReason, error) {
	outcome, err := s.attributor.Attribute(ctx, user.ID, event.OccurredAt)
	if err != nil {
		return nil, err
	}

	reason := outcome.Reason()
	err = s.events.SetRecoveryOutcome(ctx, event.ID, reason, outcome.Channel)
	if errors.Is(err, domain.ErrConflict) {
		// Already marked recovered; keep the stored verdict.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store recovery outcome: %w", err)
	}

	s.metrics.IncRecovery(reason.String())
	s.logger.Info("payment recovered",
		zap.String("user_id", user.ID),
		zap.String("event_id", event.ID),
		zap.String("reason", reason.String()),
	)
	return &reason, nil
}

func (s *WebhookService) fail(ctx context.Context, logID string, outcome *WebhookOutcome, err error) (*WebhookOutcome, error) {
	s.finish(ctx, logID, domain.WebhookLogError, err.Error())
	s.metrics.IncWebhookEvent(outcome.EventType, domain.WebhookLogError.String())
	outcome.Status = domain.WebhookLogError
	return outcome, err
}

func (s *WebhookService) finish(ctx context.Context, logID string, status domain.WebhookLogStatus, errText string) {
	if logID == "" {
		return
	}

	var errPtr *string
	if errText != "" {
		errPtr = &errText
	}
	if err := s.logs.Finish(ctx, logID, status, errPtr); err != nil {
		s.logger.Warn("failed to finish webhook audit log",
			zap.String("log_id", logID),
			zap.String("status", status.String()),
			zap.Error(err),
		)
	}
}

// peekEnvelope extracts the event id and type for the audit row without full
// payload validation. Malformed bodies still get a log row.
func peekEnvelope(rawBody []byte) (string, string) {
	var envelope struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	_ = json.Unmarshal(rawBody, &envelope)

	if envelope.ID == "" {
		envelope.ID = "unknown"
	}
	return envelope.ID, envelope.Type
}
