package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/recoverly/recovery-engine/internal/domain"
	"github.com/recoverly/recovery-engine/internal/repository"
	"go.uber.org/zap"
)

// Cache is the short-TTL store for analytics responses. A nil cache disables
// caching without changing behavior.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// Summary aggregates one user's payment and recovery numbers. Click-through
// rate is clicks per failed payment, since every failure triggers one fan-out.
type Summary struct {
	Failed            int64   `json:"failed"`
	Succeeded         int64   `json:"succeeded"`
	RecoveredByClick  int64   `json:"recoveredByClick"`
	RecoveredByWindow int64   `json:"recoveredByWindow"`
	RecoveryRate      float64 `json:"recoveryRate"`
	ClickThroughRate  float64 `json:"clickThroughRate"`
	SucceededCents    int64   `json:"succeededCents"`
	Clicks            int64   `json:"clicks"`
}

// ChannelStats is the per-channel engagement and recovery breakdown.
// Conversion is recoveries per click on that channel.
type ChannelStats struct {
	Channel    string  `json:"channel"`
	Clicks     int64   `json:"clicks"`
	Recoveries int64   `json:"recoveries"`
	Conversion float64 `json:"conversion"`
}

// LostRevenue reports failed payments that never recovered.
type LostRevenue struct {
	Events    int64 `json:"events"`
	LostCents int64 `json:"lostCents"`
}

// TimeToRecover reports how long recovered payments took, pairing each
// recovered success with the closest preceding failure.
type TimeToRecover struct {
	Recoveries     int64   `json:"recoveries"`
	AverageSeconds float64 `json:"averageSeconds"`
	AverageHours   float64 `json:"averageHours"`
}

// AnalyticsService answers reporting queries over stored events and clicks.
// Responses are cached briefly; the cache is best effort and read errors only
// force a recompute.
type AnalyticsService struct {
	events repository.EventRepository
	clicks repository.ClickRepository
	cache  Cache
	logger *zap.Logger
}

func NewAnalyticsService(
	events repository.EventRepository,
	clicks repository.ClickRepository,
	cache Cache,
	logger *zap.Logger,
) (*AnalyticsService, error) {
	if events == nil || clicks == nil {
		return nil, fmt.Errorf("event and click repositories are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AnalyticsService{events: events, clicks: clicks, cache: cache, logger: logger}, nil
}

func (s *AnalyticsService) Summary(ctx context.Context, userID string, rng repository.Range) (*Summary, error) {
	if err := requireUserID(userID); err != nil {
		return nil, err
	}

	key := cacheKey("summary", userID, rng)
	var cached Summary
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	failed, err := s.events.CountByType(ctx, userID, domain.EventPaymentFailed, rng)
	if err != nil {
		return nil, err
	}
	succeeded, err := s.events.CountByType(ctx, userID, domain.EventPaymentSucceeded, rng)
	if err != nil {
		return nil, err
	}
	byClick, err := s.events.CountRecovered(ctx, userID, domain.ReasonClick, rng)
	if err != nil {
		return nil, err
	}
	byWindow, err := s.events.CountRecovered(ctx, userID, domain.ReasonWindow, rng)
	if err != nil {
		return nil, err
	}
	succeededCents, err := s.events.SumSucceededCents(ctx, userID, rng)
	if err != nil {
		return nil, err
	}
	clicks, err := s.clicks.CountByUser(ctx, userID, rng)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Failed:            failed,
		Succeeded:         succeeded,
		RecoveredByClick:  byClick,
		RecoveredByWindow: byWindow,
		SucceededCents:    succeededCents,
		Clicks:            clicks,
	}
	if failed > 0 {
		summary.RecoveryRate = float64(byClick+byWindow) / float64(failed)
		summary.ClickThroughRate = float64(clicks) / float64(failed)
	}

	s.cacheSet(ctx, key, summary)
	return summary, nil
}

func (s *AnalyticsService) ByChannel(ctx context.Context, userID string, rng repository.Range) ([]ChannelStats, error) {
	if err := requireUserID(userID); err != nil {
		return nil, err
	}

	key := cacheKey("by_channel", userID, rng)
	var cached []ChannelStats
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	clickCounts, err := s.clicks.GroupByChannel(ctx, userID, rng)
	if err != nil {
		return nil, err
	}
	recoveryCounts, err := s.events.GroupRecoveredByChannel(ctx, userID, rng)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]*ChannelStats)
	for _, c := range clickCounts {
		merged[c.Channel] = &ChannelStats{Channel: c.Channel, Clicks: c.Count}
	}
	for _, r := range recoveryCounts {
		stats, ok := merged[r.Channel]
		if !ok {
			stats = &ChannelStats{Channel: r.Channel}
			merged[r.Channel] = stats
		}
		stats.Recoveries = r.Count
	}

	for _, stats := range merged {
		if stats.Clicks > 0 {
			stats.Conversion = float64(stats.Recoveries) / float64(stats.Clicks)
		}
	}

	result := make([]ChannelStats, 0, len(merged))
	for _, ch := range domain.Channels() {
		if stats, ok := merged[ch.Key()]; ok {
			result = append(result, *stats)
			delete(merged, ch.Key())
		}
	}
	// Channels outside the current dispatch set sort after the known ones.
	var extras []ChannelStats
	for _, stats := range merged {
		extras = append(extras, *stats)
	}
	sort.Slice(extras, func(i, j int) bool { return extras[i].Channel < extras[j].Channel })
	result = append(result, extras...)

	s.cacheSet(ctx, key, result)
	return result, nil
}

func (s *AnalyticsService) LostRevenue(ctx context.Context, userID string, rng repository.Range) (*LostRevenue, error) {
	if err := requireUserID(userID); err != nil {
		return nil, err
	}

	key := cacheKey("lost_revenue", userID, rng)
	var cached LostRevenue
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	failedEvents, err := s.events.ListByType(ctx, userID, domain.EventPaymentFailed, rng)
	if err != nil {
		return nil, err
	}

	lost := &LostRevenue{}
	for _, event := range failedEvents {
		if event.Recovered {
			continue
		}
		lost.Events++
		if event.AmountCents != nil {
			lost.LostCents += *event.AmountCents
		}
	}

	s.cacheSet(ctx, key, lost)
	return lost, nil
}

func (s *AnalyticsService) TimeToRecover(ctx context.Context, userID string, rng repository.Range) (*TimeToRecover, error) {
	if err := requireUserID(userID); err != nil {
		return nil, err
	}

	key := cacheKey("time_to_recover", userID, rng)
	var cached TimeToRecover
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	failedEvents, err := s.events.ListByType(ctx, userID, domain.EventPaymentFailed, rng)
	if err != nil {
		return nil, err
	}
	succeededEvents, err := s.events.ListByType(ctx, userID, domain.EventPaymentSucceeded, rng)
	if err != nil {
		return nil, err
	}

	var totalSeconds float64
	var pairs int64
	for _, success := range succeededEvents {
		if !success.Recovered {
			continue
		}
		failure := closestFailureBefore(failedEvents, success.OccurredAt)
		if failure == nil {
			continue
		}
		totalSeconds += success.OccurredAt.Sub(failure.OccurredAt).Seconds()
		pairs++
	}

	ttr := &TimeToRecover{Recoveries: pairs}
	if pairs > 0 {
		ttr.AverageSeconds = totalSeconds / float64(pairs)
		ttr.AverageHours = ttr.AverageSeconds / 3600
	}

	s.cacheSet(ctx, key, ttr)
	return ttr, nil
}

// closestFailureBefore assumes failures sorted by occurred_at ascending.
func closestFailureBefore(failures []domain.Event, at time.Time) *domain.Event {
	var candidate *domain.Event
	for i := range failures {
		if failures[i].OccurredAt.After(at) {
			break
		}
		candidate = &failures[i]
	}
	return candidate
}

func (s *AnalyticsService) cacheGet(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("analytics cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *AnalyticsService) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.Warn("analytics cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func cacheKey(kind, userID string, rng repository.Range) string {
	from, to := "", ""
	if rng.From != nil {
		from = rng.From.UTC().Format(time.RFC3339)
	}
	if rng.To != nil {
		to = rng.To.UTC().Format(time.RFC3339)
	}
	if from == "" && to == "" {
		return fmt.Sprintf("metrics:%s:%s:all", kind, userID)
	}
	return fmt.Sprintf("metrics:%s:%s:%s_%s", kind, userID, from, to)
}

func requireUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	return nil
}
