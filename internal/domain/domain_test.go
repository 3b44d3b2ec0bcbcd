package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseChannelFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Channel
		wantErr bool
	}{
		{name: "valid uppercase", input: "EMAIL", want: ChannelEmail},
		{name: "valid lowercase with spaces", input: " telegram ", want: ChannelTelegram},
		{name: "invalid", input: "fax", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseChannelFromString(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("ParseChannelFromString() error = %v, want ErrValidation", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseChannelFromString() unexpected error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseChannelFromString() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestChannelKey(t *testing.T) {
	t.Parallel()

	if got := ChannelDiscord.Key(); got != "discord" {
		t.Fatalf("Key() = %q, want %q", got, "discord")
	}
}

func TestWebhookLogStatusTerminal(t *testing.T) {
	t.Parallel()

	if WebhookLogProcessing.IsTerminal() {
		t.Fatal("processing must not be terminal")
	}
	for _, s := range []WebhookLogStatus{WebhookLogSuccess, WebhookLogIdempotent, WebhookLogInvalid, WebhookLogError} {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	if WebhookLogStatus("bogus").IsTerminal() {
		t.Fatal("unknown status must not be terminal")
	}
}

func TestUserMergeHandles(t *testing.T) {
	t.Parallel()

	email := "old@example.com"
	tg := "tg-1"
	user := &User{ID: "u1", ProviderUserID: "prov-1", Email: &email, TelegramID: &tg}

	newEmail := "new@example.com"
	twitter := "@handle"
	user.MergeHandles(&newEmail, nil, nil, &twitter)

	if user.Email == nil || *user.Email != newEmail {
		t.Fatalf("email = %v, want %q", user.Email, newEmail)
	}
	if user.TelegramID == nil || *user.TelegramID != tg {
		t.Fatal("absent telegram id must not erase existing value")
	}
	if user.TwitterHandle == nil || *user.TwitterHandle != twitter {
		t.Fatalf("twitter handle = %v, want %q", user.TwitterHandle, twitter)
	}
}

func TestUserHandle(t *testing.T) {
	t.Parallel()

	email := "user@example.com"
	user := &User{ID: "u1", ProviderUserID: "prov-1", Email: &email}

	if got := user.Handle(ChannelEmail); got == nil || *got != email {
		t.Fatalf("Handle(email) = %v, want %q", got, email)
	}
	if got := user.Handle(ChannelTwitter); got != nil {
		t.Fatalf("Handle(twitter) = %v, want nil", got)
	}
}

func TestRecoveryOutcomeReason(t *testing.T) {
	t.Parallel()

	ch := ChannelEmail
	if got := (RecoveryOutcome{ByClick: true, Channel: &ch}).Reason(); got != ReasonClick {
		t.Fatalf("Reason() = %s, want %s", got, ReasonClick)
	}
	if got := (RecoveryOutcome{}).Reason(); got != ReasonWindow {
		t.Fatalf("Reason() = %s, want %s", got, ReasonWindow)
	}
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	valid := &Event{
		ProviderEventID: "evt-1",
		UserID:          "u1",
		Type:            EventPaymentFailed,
		OccurredAt:      time.Now(),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error = %v", err)
	}

	missing := &Event{UserID: "u1", Type: EventPaymentFailed, OccurredAt: time.Now()}
	if err := missing.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation", err)
	}
}
