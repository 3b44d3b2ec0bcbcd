package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/recoverly/recovery-engine/internal/domain"
	"github.com/recoverly/recovery-engine/internal/repository"
	"github.com/recoverly/recovery-engine/internal/service"
)

type AnalyticsProvider interface {
	Summary(ctx context.Context, userID string, rng repository.Range) (*service.Summary, error)
	ByChannel(ctx context.Context, userID string, rng repository.Range) ([]service.ChannelStats, error)
	LostRevenue(ctx context.Context, userID string, rng repository.Range) (*service.LostRevenue, error)
	TimeToRecover(ctx context.Context, userID string, rng repository.Range) (*service.TimeToRecover, error)
}

type AnalyticsHandler struct {
	service AnalyticsProvider
}

func NewAnalyticsHandler(service AnalyticsProvider) (*AnalyticsHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("analytics service is required")
	}
	return &AnalyticsHandler{service: service}, nil
}

func RegisterAnalyticsRoutes(router fiber.Router, service AnalyticsProvider) error {
	h, err := NewAnalyticsHandler(service)
	if err != nil {
		return err
	}

	api := router.Group("/api/analytics")
	api.Get("/summary", h.Summary)
	api.Get("/by-channel", h.ByChannel)
	api.Get("/lost-revenue", h.LostRevenue)
	api.Get("/time-to-recover", h.TimeToRecover)

	return nil
}

func (h *AnalyticsHandler) Summary(c *fiber.Ctx) error {
	userID, rng, err := parseAnalyticsQuery(c)
	if err != nil {
		return toHTTPError(err)
	}

	summary, err := h.service.Summary(c.Context(), userID, rng)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(summary)
}

func (h *AnalyticsHandler) ByChannel(c *fiber.Ctx) error {
	userID, rng, err := parseAnalyticsQuery(c)
	if err != nil {
		return toHTTPError(err)
	}

	stats, err := h.service.ByChannel(c.Context(), userID, rng)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}

func (h *AnalyticsHandler) LostRevenue(c *fiber.Ctx) error {
	userID, rng, err := parseAnalyticsQuery(c)
	if err != nil {
		return toHTTPError(err)
	}

	lost, err := h.service.LostRevenue(c.Context(), userID, rng)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(lost)
}

func (h *AnalyticsHandler) TimeToRecover(c *fiber.Ctx) error {
	userID, rng, err := parseAnalyticsQuery(c)
	if err != nil {
		return toHTTPError(err)
	}

	ttr, err := h.service.TimeToRecover(c.Context(), userID, rng)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(ttr)
}

func parseAnalyticsQuery(c *fiber.Ctx) (string, repository.Range, error) {
	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		return "", repository.Range{}, fmt.Errorf("%w: userId is required", domain.ErrValidation)
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return "", repository.Range{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return "", repository.Range{}, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return "", repository.Range{}, fmt.Errorf("%w: to must not precede from", domain.ErrValidation)
	}

	return userID, repository.Range{From: from, To: to}, nil
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}
