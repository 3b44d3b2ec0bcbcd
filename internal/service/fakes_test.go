package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/recoverly/recovery-engine/internal/channel"
	"github.com/recoverly/recovery-engine/internal/domain"
	"github.com/recoverly/recovery-engine/internal/repository"
)

type fakeLogRepo struct {
	mu        sync.Mutex
	seq       int
	created   []*domain.WebhookLog
	finished  map[string]domain.WebhookLogStatus
	errors    map[string]string
	createErr error
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{
		finished: make(map[string]domain.WebhookLogStatus),
		errors:   make(map[string]string),
	}
}

func (f *fakeLogRepo) Create(ctx context.Context, log *domain.WebhookLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	f.seq++
	log.ID = fmt.Sprintf("log-%d", f.seq)
	log.Status = domain.WebhookLogProcessing
	copied := *log
	f.created = append(f.created, &copied)
	return nil
}

func (f *fakeLogRepo) Finish(ctx context.Context, id string, status domain.WebhookLogStatus, errText *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, done := f.finished[id]; done {
		return domain.ErrConflict
	}
	f.finished[id] = status
	if errText != nil {
		f.errors[id] = *errText
	}
	return nil
}

func (f *fakeLogRepo) GetByID(ctx context.Context, id string) (*domain.WebhookLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, log := range f.created {
		if log.ID == id {
			return log, nil
		}
	}
	return nil, domain.ErrNotFound
}

type fakeUserRepo struct {
	mu         sync.Mutex
	seq        int
	byProvider map[string]*domain.User
	upsertErr  error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byProvider: make(map[string]*domain.User)}
}

func (f *fakeUserRepo) Upsert(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.upsertErr != nil {
		return f.upsertErr
	}
	if err := user.Validate(); err != nil {
		return err
	}

	existing, ok := f.byProvider[user.ProviderUserID]
	if !ok {
		f.seq++
		user.ID = fmt.Sprintf("user-%d", f.seq)
		copied := *user
		f.byProvider[user.ProviderUserID] = &copied
		return nil
	}

	existing.MergeHandles(user.Email, user.TelegramID, user.DiscordID, user.TwitterHandle)
	*user = *existing
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.byProvider {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) GetByProviderID(ctx context.Context, providerUserID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.byProvider[providerUserID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

type fakeEventRepo struct {
	mu        sync.Mutex
	seq       int
	events    []*domain.Event
	createErr error
}

func newFakeEventRepo() *fakeEventRepo { return &fakeEventRepo{} }

func (f *fakeEventRepo) Create(ctx context.Context, event *domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	if err := event.Validate(); err != nil {
		return err
	}
	for _, existing := range f.events {
		if existing.ProviderEventID == event.ProviderEventID {
			return domain.ErrConflict
		}
	}
	f.seq++
	event.ID = fmt.Sprintf("evt-%d", f.seq)
	copied := *event
	f.events = append(f.events, &copied)
	return nil
}

func (f *fakeEventRepo) GetByProviderEventID(ctx context.Context, providerEventID string) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, event := range f.events {
		if event.ProviderEventID == providerEventID {
			copied := *event
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) SetRecoveryOutcome(ctx context.Context, id string, reason domain.RecoveryReason, ch *domain.Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, event := range f.events {
		if event.ID != id {
			continue
		}
		if event.Recovered {
			return domain.ErrConflict
		}
		event.Recovered = true
		event.Reason = &reason
		event.Channel = ch
		return nil
	}
	return domain.ErrConflict
}

func (f *fakeEventRepo) CountByType(ctx context.Context, userID string, eventType domain.EventType, r repository.Range) (int64, error) {
	var count int64
	for _, event := range f.list(userID, r) {
		if event.Type == eventType {
			count++
		}
	}
	return count, nil
}

func (f *fakeEventRepo) CountRecovered(ctx context.Context, userID string, reason domain.RecoveryReason, r repository.Range) (int64, error) {
	var count int64
	for _, event := range f.list(userID, r) {
		if event.Recovered && event.Reason != nil && *event.Reason == reason {
			count++
		}
	}
	return count, nil
}

func (f *fakeEventRepo) SumSucceededCents(ctx context.Context, userID string, r repository.Range) (int64, error) {
	var total int64
	for _, event := range f.list(userID, r) {
		if event.Type == domain.EventPaymentSucceeded && event.AmountCents != nil {
			total += *event.AmountCents
		}
	}
	return total, nil
}

func (f *fakeEventRepo) ListByType(ctx context.Context, userID string, eventType domain.EventType, r repository.Range) ([]domain.Event, error) {
	var result []domain.Event
	for _, event := range f.list(userID, r) {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result, nil
}

func (f *fakeEventRepo) GroupRecoveredByChannel(ctx context.Context, userID string, r repository.Range) ([]repository.ChannelCount, error) {
	counts := make(map[string]int64)
	for _, event := range f.list(userID, r) {
		if !event.Recovered {
			continue
		}
		key := "unknown"
		if event.Channel != nil {
			key = event.Channel.Key()
		}
		counts[key]++
	}

	var result []repository.ChannelCount
	for ch, count := range counts {
		result = append(result, repository.ChannelCount{Channel: ch, Count: count})
	}
	return result, nil
}

// list returns occurred-at ordered copies within the range filter.
func (f *fakeEventRepo) list(userID string, r repository.Range) []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []domain.Event
	for _, event := range f.events {
		if event.UserID != userID {
			continue
		}
		if r.From != nil && event.OccurredAt.Before(*r.From) {
			continue
		}
		if r.To != nil && event.OccurredAt.After(*r.To) {
			continue
		}
		result = append(result, *event)
	}
	for i := 1; i < len(result); i++ {
		for j := i; j > 0 && result[j].OccurredAt.Before(result[j-1].OccurredAt); j-- {
			result[j], result[j-1] = result[j-1], result[j]
		}
	}
	return result
}

type fakeClickRepo struct {
	mu     sync.Mutex
	clicks []domain.Click
}

func newFakeClickRepo() *fakeClickRepo { return &fakeClickRepo{} }

func (f *fakeClickRepo) Create(ctx context.Context, click *domain.Click) error {
	if err := click.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if click.ClickedAt.IsZero() {
		click.ClickedAt = time.Now().UTC()
	}
	f.clicks = append(f.clicks, *click)
	return nil
}

func (f *fakeClickRepo) LatestInWindow(ctx context.Context, userID string, from, to time.Time) (*domain.Click, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var latest *domain.Click
	for i := range f.clicks {
		c := f.clicks[i]
		if c.UserID != userID || c.ClickedAt.Before(from) || c.ClickedAt.After(to) {
			continue
		}
		if latest == nil || c.ClickedAt.After(latest.ClickedAt) {
			latest = &f.clicks[i]
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeClickRepo) CountByUser(ctx context.Context, userID string, r repository.Range) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for _, c := range f.clicks {
		if c.UserID == userID && inClickRange(c, r) {
			count++
		}
	}
	return count, nil
}

func (f *fakeClickRepo) GroupByChannel(ctx context.Context, userID string, r repository.Range) ([]repository.ChannelCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := make(map[string]int64)
	for _, c := range f.clicks {
		if c.UserID == userID && inClickRange(c, r) {
			counts[c.Channel]++
		}
	}

	var result []repository.ChannelCount
	for ch, count := range counts {
		result = append(result, repository.ChannelCount{Channel: ch, Count: count})
	}
	return result, nil
}

func inClickRange(c domain.Click, r repository.Range) bool {
	if r.From != nil && c.ClickedAt.Before(*r.From) {
		return false
	}
	if r.To != nil && c.ClickedAt.After(*r.To) {
		return false
	}
	return true
}

type fakeSender struct {
	mu         sync.Mutex
	calls      int
	recipients []string
	err        error
	messageID  string
}

func (f *fakeSender) Send(ctx context.Context, recipient string, message domain.Message) (*channel.ProviderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.recipients = append(f.recipients, recipient)
	if f.err != nil {
		return nil, f.err
	}
	return &channel.ProviderResponse{StatusCode: 200, MessageID: f.messageID}, nil
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(key string) bool { return true }

type enabledPolicy struct {
	enabled map[domain.Channel]bool
}

func (p *enabledPolicy) ChannelEnabled(ch domain.Channel) bool { return p.enabled[ch] }

type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	gets  int
	sets  int
}

func newFakeCache() *fakeCache { return &fakeCache{store: make(map[string][]byte)} }

func (f *fakeCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gets++
	raw, ok := f.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (f *fakeCache) Set(ctx context.Context, key string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sets++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.store[key] = raw
	return nil
}
