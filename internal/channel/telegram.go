package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/recoverly/recovery-engine/internal/domain"
)

const (
	defaultSendTimeout = 10 * time.Second
	telegramAPIBaseURL = "https://api.telegram.org"
)

type telegramSendRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramSendResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// TelegramSender posts messages through the Telegram Bot API.
type TelegramSender struct {
	client  *resty.Client
	baseURL string
	token   string
}

func NewTelegramSender(botToken string) (*TelegramSender, error) {
	client := resty.New()
	client.SetTimeout(defaultSendTimeout)
	client.SetRetryCount(0)

	return NewTelegramSenderWithClient(botToken, telegramAPIBaseURL, client)
}

func NewTelegramSenderWithClient(botToken string, baseURL string, client *resty.Client) (*TelegramSender, error) {
	token := strings.TrimSpace(botToken)
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("telegram base url is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}
	client.SetRetryCount(0)

	return &TelegramSender{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}, nil
}

func (s *TelegramSender) Send(ctx context.Context, recipient string, message domain.Message) (*ProviderResponse, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("telegram sender is not initialized")
	}
	if err := message.Validate(); err != nil {
		return nil, err
	}

	reqBody := telegramSendRequest{
		ChatID:                recipient,
		Text:                  message.Text,
		DisableWebPagePreview: true,
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
	response, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(url)
	if err != nil {
		return nil, &SenderError{Message: "telegram request failed", Cause: err}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &SenderError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("telegram returned status %d", statusCode),
			Cause:      errors.New(responseBody),
		}
	}

	var parsed telegramSendResponse
	messageID := ""
	if err := json.Unmarshal(response.Body(), &parsed); err == nil && parsed.Result.MessageID != 0 {
		messageID = fmt.Sprintf("%d", parsed.Result.MessageID)
	}

	return &ProviderResponse{
		StatusCode: statusCode,
		Body:       responseBody,
		MessageID:  messageID,
	}, nil
}
