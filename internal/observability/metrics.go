package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the webhook and dispatch flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	webhookEventsTotal    *prometheus.CounterVec
	dispatchResultsTotal  *prometheus.CounterVec
	dispatchSendDuration  *prometheus.HistogramVec
	dispatchInFlight      *prometheus.GaugeVec
	recoveriesTotal       *prometheus.CounterVec
	clicksRecordedTotal   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "recovery_engine",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "recovery_engine",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		webhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "recovery_engine",
				Name:      "webhook_events_total",
				Help:      "Webhook ingestion outcomes by event type and terminal log status.",
			},
			[]string{"type", "status"},
		),
		dispatchResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "recovery_engine",
				Name:      "dispatch_results_total",
				Help:      "Dispatch outcomes by channel and result code.",
			},
			[]string{"channel", "result"},
		),
		dispatchSendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "recovery_engine",
				Name:      "dispatch_send_duration_seconds",
				Help:      "Channel sender call duration in seconds grouped by channel.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"channel"},
		),
		dispatchInFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "recovery_engine",
				Name:      "dispatch_inflight",
				Help:      "Current number of in-flight sends grouped by channel.",
			},
			[]string{"channel"},
		),
		recoveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "recovery_engine",
				Name:      "recoveries_total",
				Help:      "Recovered payments by attribution reason.",
			},
			[]string{"reason"},
		),
		clicksRecordedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "recovery_engine",
				Name:      "clicks_recorded_total",
				Help:      "Tracked recovery-link clicks by channel.",
			},
			[]string{"channel"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.webhookEventsTotal,
		m.dispatchResultsTotal,
		m.dispatchSendDuration,
		m.dispatchInFlight,
		m.recoveriesTotal,
		m.clicksRecordedTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncWebhookEvent(eventType string, status string) {
	if m == nil {
		return
	}
	typeLabel := strings.TrimSpace(strings.ToLower(eventType))
	if typeLabel == "" {
		typeLabel = "unknown"
	}
	m.webhookEventsTotal.WithLabelValues(typeLabel, normalizeLabel(status)).Inc()
}

func (m *Metrics) IncDispatchResult(channel string, result string) {
	if m == nil {
		return
	}
	m.dispatchResultsTotal.WithLabelValues(normalizeLabel(channel), normalizeLabel(result)).Inc()
}

func (m *Metrics) ObserveSendDuration(channel string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.dispatchSendDuration.WithLabelValues(normalizeLabel(channel)).Observe(seconds)
}

func (m *Metrics) IncDispatchInFlight(channel string) {
	if m == nil {
		return
	}
	m.dispatchInFlight.WithLabelValues(normalizeLabel(channel)).Inc()
}

func (m *Metrics) DecDispatchInFlight(channel string) {
	if m == nil {
		return
	}
	m.dispatchInFlight.WithLabelValues(normalizeLabel(channel)).Dec()
}

func (m *Metrics) IncRecovery(reason string) {
	if m == nil {
		return
	}
	m.recoveriesTotal.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *Metrics) IncClickRecorded(channel string) {
	if m == nil {
		return
	}
	m.clicksRecordedTotal.WithLabelValues(normalizeLabel(channel)).Inc()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
