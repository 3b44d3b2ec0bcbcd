package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/recoverly/recovery-engine/internal/domain"
	"github.com/recoverly/recovery-engine/internal/service"
)

const (
	signatureHeader = "X-Billing-Signature"
	// Some provider configurations send the unprefixed header instead.
	signatureHeaderFallback = "Billing-Signature"
)

type WebhookProcessor interface {
	Process(ctx context.Context, rawBody []byte, signature string) (*service.WebhookOutcome, error)
}

type WebhookHandler struct {
	service WebhookProcessor
}

func NewWebhookHandler(service WebhookProcessor) (*WebhookHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("webhook service is required")
	}
	return &WebhookHandler{service: service}, nil
}

func RegisterWebhookRoutes(router fiber.Router, service WebhookProcessor) error {
	h, err := NewWebhookHandler(service)
	if err != nil {
		return err
	}

	router.Post("/webhooks/billing", h.HandleBillingWebhook)
	return nil
}

func (h *WebhookHandler) HandleBillingWebhook(c *fiber.Ctx) error {
	// The raw body bytes are the signed message; re-serialization would break
	// verification.
	rawBody := c.Body()
	if len(rawBody) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "empty request body")
	}

	outcome, err := h.service.Process(c.Context(), rawBody, requestSignature(c))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(outcome)
}

func requestSignature(c *fiber.Ctx) string {
	if sig := strings.TrimSpace(c.Get(signatureHeader)); sig != "" {
		return sig
	}
	return strings.TrimSpace(c.Get(signatureHeaderFallback))
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
