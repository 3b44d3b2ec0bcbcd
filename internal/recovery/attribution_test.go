package recovery

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/recoverly/recovery-engine/internal/domain"
	"github.com/recoverly/recovery-engine/internal/repository"
)

type fakeClickRepo struct {
	clicks []domain.Click

	gotUserID string
	gotFrom   time.Time
	gotTo     time.Time
}

func (f *fakeClickRepo) Create(ctx context.Context, click *domain.Click) error { return nil }

func (f *fakeClickRepo) LatestInWindow(ctx context.Context, userID string, from, to time.Time) (*domain.Click, error) {
	f.gotUserID = userID
	f.gotFrom = from
	f.gotTo = to

	var latest *domain.Click
	for i := range f.clicks {
		c := f.clicks[i]
		if c.UserID != userID {
			continue
		}
		if c.ClickedAt.Before(from) || c.ClickedAt.After(to) {
			continue
		}
		if latest == nil || c.ClickedAt.After(latest.ClickedAt) {
			latest = &f.clicks[i]
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

func (f *fakeClickRepo) CountByUser(ctx context.Context, userID string, r repository.Range) (int64, error) {
	return 0, nil
}

func (f *fakeClickRepo) GroupByChannel(ctx context.Context, userID string, r repository.Range) ([]repository.ChannelCount, error) {
	return nil, nil
}

func TestAttributeByClick(t *testing.T) {
	t.Parallel()

	succeededAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := &fakeClickRepo{clicks: []domain.Click{
		{UserID: "u1", Channel: "email", ClickedAt: succeededAt.Add(-48 * time.Hour)},
		{UserID: "u1", Channel: "telegram", ClickedAt: succeededAt.Add(-2 * time.Hour)},
	}}

	attr, err := NewAttributor(repo, 7*24*time.Hour, nil)
	if err != nil {
		t.Fatalf("NewAttributor() error = %v", err)
	}

	outcome, err := attr.Attribute(context.Background(), "u1", succeededAt)
	if err != nil {
		t.Fatalf("Attribute() error = %v", err)
	}
	if !outcome.ByClick {
		t.Fatal("expected by-click outcome")
	}
	if outcome.Channel == nil || *outcome.Channel != domain.ChannelTelegram {
		t.Fatalf("Channel = %v, want TELEGRAM", outcome.Channel)
	}
	if outcome.Reason() != domain.ReasonClick {
		t.Fatalf("Reason() = %q, want click", outcome.Reason())
	}
}

func TestAttributeNoClicks(t *testing.T) {
	t.Parallel()

	attr, err := NewAttributor(&fakeClickRepo{}, 7*24*time.Hour, nil)
	if err != nil {
		t.Fatalf("NewAttributor() error = %v", err)
	}

	outcome, err := attr.Attribute(context.Background(), "u1", time.Now().UTC())
	if err != nil {
		t.Fatalf("Attribute() error = %v", err)
	}
	if outcome.ByClick {
		t.Fatal("expected window outcome")
	}
	if outcome.Channel != nil {
		t.Fatalf("Channel = %v, want nil", outcome.Channel)
	}
	if outcome.Reason() != domain.ReasonWindow {
		t.Fatalf("Reason() = %q, want window", outcome.Reason())
	}
}

func TestAttributeWindowBoundsInclusive(t *testing.T) {
	t.Parallel()

	succeededAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	window := 7 * 24 * time.Hour

	tests := []struct {
		name      string
		clickedAt time.Time
		wantClick bool
	}{
		{"exactly at window start", succeededAt.Add(-window), true},
		{"exactly at succeeded time", succeededAt, true},
		{"just before window start", succeededAt.Add(-window - time.Second), false},
		{"just after succeeded time", succeededAt.Add(time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := &fakeClickRepo{clicks: []domain.Click{
				{UserID: "u1", Channel: "email", ClickedAt: tt.clickedAt},
			}}
			attr, err := NewAttributor(repo, window, nil)
			if err != nil {
				t.Fatalf("NewAttributor() error = %v", err)
			}

			outcome, err := attr.Attribute(context.Background(), "u1", succeededAt)
			if err != nil {
				t.Fatalf("Attribute() error = %v", err)
			}
			if outcome.ByClick != tt.wantClick {
				t.Fatalf("ByClick = %v, want %v", outcome.ByClick, tt.wantClick)
			}
		})
	}
}

func TestAttributeUnknownChannelStillCredits(t *testing.T) {
	t.Parallel()

	succeededAt := time.Now().UTC()
	repo := &fakeClickRepo{clicks: []domain.Click{
		{UserID: "u1", Channel: "carrier_pigeon", ClickedAt: succeededAt.Add(-time.Hour)},
	}}

	attr, err := NewAttributor(repo, 7*24*time.Hour, nil)
	if err != nil {
		t.Fatalf("NewAttributor() error = %v", err)
	}

	outcome, err := attr.Attribute(context.Background(), "u1", succeededAt)
	if err != nil {
		t.Fatalf("Attribute() error = %v", err)
	}
	if !outcome.ByClick {
		t.Fatal("expected by-click outcome")
	}
	if outcome.Channel != nil {
		t.Fatalf("Channel = %v, want nil for unknown channel", outcome.Channel)
	}
}

func TestAttributeQueriesExactWindow(t *testing.T) {
	t.Parallel()

	succeededAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := &fakeClickRepo{}

	attr, err := NewAttributor(repo, 7*24*time.Hour, nil)
	if err != nil {
		t.Fatalf("NewAttributor() error = %v", err)
	}
	if _, err := attr.Attribute(context.Background(), "u1", succeededAt); err != nil {
		t.Fatalf("Attribute() error = %v", err)
	}

	if repo.gotUserID != "u1" {
		t.Fatalf("queried user = %q, want u1", repo.gotUserID)
	}
	if wantFrom := succeededAt.Add(-7 * 24 * time.Hour); !repo.gotFrom.Equal(wantFrom) {
		t.Fatalf("from = %v, want %v", repo.gotFrom, wantFrom)
	}
	if !repo.gotTo.Equal(succeededAt) {
		t.Fatalf("to = %v, want %v", repo.gotTo, succeededAt)
	}
}

func TestLinkBuilder(t *testing.T) {
	t.Parallel()

	builder, err := NewLinkBuilder("https://app.example.com/")
	if err != nil {
		t.Fatalf("NewLinkBuilder() error = %v", err)
	}

	got := builder.Build("user-1", domain.ChannelEmail, "msg-42")
	want := "https://app.example.com/r/user-1?c=email&m=msg-42"
	if got != want {
		t.Fatalf("Build() = %q, want %q", got, want)
	}

	got = builder.Build("user-1", domain.ChannelTelegram, "")
	want = "https://app.example.com/r/user-1?c=telegram"
	if got != want {
		t.Fatalf("Build() = %q, want %q", got, want)
	}
}

func TestBuildMessage(t *testing.T) {
	t.Parallel()

	msg := BuildMessage("https://app.example.com/r/u1?c=email")
	if err := msg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if msg.Subject != "Action required: update your payment" {
		t.Fatalf("Subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.Text, "https://app.example.com/r/u1?c=email") {
		t.Fatalf("Text missing link: %q", msg.Text)
	}
	if !strings.Contains(msg.HTML, "https://app.example.com/r/u1?c=email") {
		t.Fatalf("HTML missing link: %q", msg.HTML)
	}
}
