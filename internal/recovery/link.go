package recovery

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/recoverly/recovery-engine/internal/domain"
)

// LinkBuilder renders tracked recovery links pointing back at the click
// redirect endpoint. The channel and message id ride along as query params so
// the click can be attributed later.
type LinkBuilder struct {
	appHost string
}

func NewLinkBuilder(appHost string) (*LinkBuilder, error) {
	host := strings.TrimRight(strings.TrimSpace(appHost), "/")
	if host == "" {
		return nil, fmt.Errorf("app host is required")
	}

	return &LinkBuilder{appHost: host}, nil
}

func (b *LinkBuilder) Build(userID string, channel domain.Channel, messageID string) string {
	link := fmt.Sprintf("%s/r/%s?c=%s", b.appHost, url.PathEscape(userID), url.QueryEscape(channel.Key()))
	if messageID != "" {
		link += "&m=" + url.QueryEscape(messageID)
	}
	return link
}
