package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/recoverly/recovery-engine/internal/dispatch"
	"github.com/recoverly/recovery-engine/internal/domain"
)

type Notifier interface {
	NotifyFailed(ctx context.Context, userID string) ([]dispatch.Result, error)
}

type NotifyHandler struct {
	service Notifier
}

func NewNotifyHandler(service Notifier) (*NotifyHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("notify service is required")
	}
	return &NotifyHandler{service: service}, nil
}

func RegisterNotifyRoutes(router fiber.Router, service Notifier) error {
	h, err := NewNotifyHandler(service)
	if err != nil {
		return err
	}

	router.Post("/api/notify-failed", h.NotifyFailed)
	return nil
}

type notifyFailedRequest struct {
	UserID string `json:"userId"`
}

type notifyFailedResponse struct {
	UserID  string            `json:"userId"`
	Results []dispatch.Result `json:"results"`
}

func (h *NotifyHandler) NotifyFailed(c *fiber.Ctx) error {
	var req notifyFailedRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return toHTTPError(fmt.Errorf("%w: userId is required", domain.ErrValidation))
	}

	results, err := h.service.NotifyFailed(c.Context(), userID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(notifyFailedResponse{
		UserID:  userID,
		Results: results,
	})
}
