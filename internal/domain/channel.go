package domain

import (
	"fmt"
	"strings"
)

// Channel represents an outbound communication medium.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelTelegram Channel = "TELEGRAM"
	ChannelDiscord  Channel = "DISCORD"
	ChannelTwitter  Channel = "TWITTER"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelTelegram, ChannelDiscord, ChannelTwitter:
		return true
	}
	return false
}

// Key is the lowercase form used for queue names, bucket keys, and metrics labels.
func (c Channel) Key() string { return strings.ToLower(string(c)) }

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// Channels returns every supported channel in dispatch order.
func Channels() []Channel {
	return []Channel{ChannelEmail, ChannelTelegram, ChannelDiscord, ChannelTwitter}
}
