package domain

import (
	"fmt"
	"strings"
	"time"
)

// User is a billed customer known to the recovery engine.
//
// ProviderUserID is the billing provider's immutable identifier and the upsert
// key; contact handles are merged per webhook, never erased by absent fields.
type User struct {
	ID             string
	ProviderUserID string
	Email          *string
	TelegramID     *string
	DiscordID      *string
	TwitterHandle  *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (u *User) Validate() error {
	if u == nil {
		return fmt.Errorf("%w: user is required", ErrValidation)
	}
	if strings.TrimSpace(u.ProviderUserID) == "" {
		return fmt.Errorf("%w: provider user id is required", ErrValidation)
	}
	return nil
}

// Handle returns the user's contact handle for a channel, if any. Discord has
// no per-user handle here: delivery goes to a configured webhook channel.
func (u *User) Handle(channel Channel) *string {
	if u == nil {
		return nil
	}
	switch channel {
	case ChannelEmail:
		return u.Email
	case ChannelTelegram:
		return u.TelegramID
	case ChannelDiscord:
		return u.DiscordID
	case ChannelTwitter:
		return u.TwitterHandle
	}
	return nil
}

// MergeHandles applies newly supplied contact handles onto the user. A nil
// incoming field keeps the existing value.
func (u *User) MergeHandles(email, telegramID, discordID, twitterHandle *string) {
	if email != nil {
		u.Email = email
	}
	if telegramID != nil {
		u.TelegramID = telegramID
	}
	if discordID != nil {
		u.DiscordID = discordID
	}
	if twitterHandle != nil {
		u.TwitterHandle = twitterHandle
	}
}
