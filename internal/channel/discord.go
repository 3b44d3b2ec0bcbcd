package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/recoverly/recovery-engine/internal/domain"
)

type discordPostRequest struct {
	Content string `json:"content"`
}

type discordPostResponse struct {
	ID string `json:"id"`
}

// DiscordSender posts messages to a Discord webhook channel. The recipient
// handle is the webhook URL itself; delivery is per channel, not per user.
type DiscordSender struct {
	client *resty.Client
}

func NewDiscordSender() (*DiscordSender, error) {
	client := resty.New()
	client.SetTimeout(defaultSendTimeout)
	client.SetRetryCount(0)

	return NewDiscordSenderWithClient(client)
}

func NewDiscordSenderWithClient(client *resty.Client) (*DiscordSender, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}
	client.SetRetryCount(0)

	return &DiscordSender{client: client}, nil
}

func (s *DiscordSender) Send(ctx context.Context, recipient string, message domain.Message) (*ProviderResponse, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("discord sender is not initialized")
	}
	if _, err := url.ParseRequestURI(strings.TrimSpace(recipient)); err != nil {
		return nil, fmt.Errorf("invalid discord webhook url: %w", err)
	}
	if err := message.Validate(); err != nil {
		return nil, err
	}

	response, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(discordPostRequest{Content: message.Text}).
		SetQueryParam("wait", "true").
		Post(strings.TrimSpace(recipient))
	if err != nil {
		return nil, &SenderError{Message: "discord request failed", Cause: err}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &SenderError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("discord returned status %d", statusCode),
			Cause:      errors.New(responseBody),
		}
	}

	var parsed discordPostResponse
	messageID := ""
	if err := json.Unmarshal(response.Body(), &parsed); err == nil {
		messageID = parsed.ID
	}

	return &ProviderResponse{
		StatusCode: statusCode,
		Body:       responseBody,
		MessageID:  messageID,
	}, nil
}
