package channel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/recoverly/recovery-engine/internal/domain"
)

func TestTelegramSenderSendSuccess(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody telegramSendRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":4242}}`))
	}))
	defer server.Close()

	sender, err := NewTelegramSenderWithClient("bot-token", server.URL, resty.New())
	if err != nil {
		t.Fatalf("NewTelegramSenderWithClient() error = %v", err)
	}

	resp, err := sender.Send(context.Background(), "chat-99", domain.Message{Text: "update your card"})
	if err != nil {
		t.Fatalf("Send() unexpected error: %v", err)
	}

	if gotPath != "/botbot-token/sendMessage" {
		t.Fatalf("path = %q, want /botbot-token/sendMessage", gotPath)
	}
	if gotBody.ChatID != "chat-99" {
		t.Fatalf("chat_id = %q, want chat-99", gotBody.ChatID)
	}
	if !gotBody.DisableWebPagePreview {
		t.Fatal("disable_web_page_preview should be set")
	}
	if resp.MessageID != "4242" {
		t.Fatalf("MessageID = %q, want 4242", resp.MessageID)
	}
}

func TestTelegramSenderSendErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"ok":false}`))
	}))
	defer server.Close()

	sender, err := NewTelegramSenderWithClient("bot-token", server.URL, resty.New())
	if err != nil {
		t.Fatalf("NewTelegramSenderWithClient() error = %v", err)
	}

	_, err = sender.Send(context.Background(), "chat-99", domain.Message{Text: "hello"})
	if err == nil {
		t.Fatal("expected error")
	}

	var senderErr *SenderError
	if !errors.As(err, &senderErr) {
		t.Fatalf("expected SenderError, got %T", err)
	}
	if senderErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("StatusCode = %d, want 429", senderErr.StatusCode)
	}
}

func TestTelegramSenderRequiresToken(t *testing.T) {
	t.Parallel()

	if _, err := NewTelegramSenderWithClient("  ", telegramAPIBaseURL, resty.New()); err == nil {
		t.Fatal("expected error for missing token")
	}
}
