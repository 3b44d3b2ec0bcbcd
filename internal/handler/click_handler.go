package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ClickRecorder interface {
	RecordClick(ctx context.Context, userID, channelKey, messageID string) error
}

// ClickHandler serves the tracked recovery links. The visitor always lands on
// the payment portal; recording the click is best effort and never blocks or
// fails the redirect.
type ClickHandler struct {
	service        ClickRecorder
	redirectTarget string
	logger         *zap.Logger
}

func NewClickHandler(service ClickRecorder, redirectTarget string, logger *zap.Logger) (*ClickHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("click recorder is required")
	}
	redirectTarget = strings.TrimSpace(redirectTarget)
	if redirectTarget == "" {
		return nil, fmt.Errorf("redirect target is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ClickHandler{service: service, redirectTarget: redirectTarget, logger: logger}, nil
}

func RegisterClickRoutes(router fiber.Router, service ClickRecorder, redirectTarget string, logger *zap.Logger) error {
	h, err := NewClickHandler(service, redirectTarget, logger)
	if err != nil {
		return err
	}

	router.Get("/r/:userId", h.HandleClick)
	return nil
}

func (h *ClickHandler) HandleClick(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Params("userId"))

	if err := h.service.RecordClick(c.Context(), userID, c.Query("c"), c.Query("m")); err != nil {
		h.logger.Warn("failed to record recovery link click",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	return c.Redirect(h.redirectTarget, fiber.StatusFound)
}
