package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/recoverly/recovery-engine/internal/domain"
)

// Config is the immutable configuration surface resolved once at startup.
type Config struct {
	AppHost string `env:"APP_HOST,required=true"`
	// PortalURL is where recovery link clicks land. Empty falls back to
	// AppHost.
	PortalURL   string `env:"PORTAL_URL"`
	APIPort     int    `env:"API_PORT,default=8080"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	// WebhookSecret signs inbound billing webhooks. With no secret configured
	// the service accepts unsigned events only when WebhookStrict is false.
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	WebhookStrict bool   `env:"WEBHOOK_STRICT,default=false"`

	EnableEmail    bool `env:"ENABLE_EMAIL,default=true"`
	EnableTelegram bool `env:"ENABLE_TELEGRAM,default=false"`
	EnableDiscord  bool `env:"ENABLE_DISCORD,default=false"`
	EnableTwitter  bool `env:"ENABLE_TWITTER,default=false"`

	ChannelConcurrency  int     `env:"CHANNEL_CONCURRENCY,default=2"`
	RateLimitCapacity   int     `env:"RATE_LIMIT_CAPACITY,default=10"`
	RateLimitRefillSec  float64 `env:"RATE_LIMIT_REFILL_PER_SEC,default=2"`
	RetryAttempts       int     `env:"RETRY_ATTEMPTS,default=3"`
	AttributionDays     int     `env:"ATTR_WINDOW_DAYS,default=7"`
	ShutdownGraceSecond int     `env:"SHUTDOWN_GRACE_SECONDS,default=15"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT,default=587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	SMTPFrom string `env:"SMTP_FROM"`

	TelegramBotToken  string `env:"TELEGRAM_BOT_TOKEN"`
	DiscordWebhookURL string `env:"DISCORD_WEBHOOK_URL"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.WebhookStrict && strings.TrimSpace(c.WebhookSecret) == "" {
		return fmt.Errorf("WEBHOOK_STRICT requires WEBHOOK_SECRET to be set")
	}
	if c.ChannelConcurrency < 1 {
		return fmt.Errorf("CHANNEL_CONCURRENCY must be >= 1")
	}
	if c.RateLimitCapacity < 1 {
		return fmt.Errorf("RATE_LIMIT_CAPACITY must be >= 1")
	}
	if c.RateLimitRefillSec < 0 {
		return fmt.Errorf("RATE_LIMIT_REFILL_PER_SEC must be >= 0")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be >= 1")
	}
	if c.AttributionDays < 1 {
		return fmt.Errorf("ATTR_WINDOW_DAYS must be >= 1")
	}
	return nil
}

// ChannelEnabled reports the administrative enable flag for a channel.
func (c *Config) ChannelEnabled(channel domain.Channel) bool {
	switch channel {
	case domain.ChannelEmail:
		return c.EnableEmail
	case domain.ChannelTelegram:
		return c.EnableTelegram
	case domain.ChannelDiscord:
		return c.EnableDiscord
	case domain.ChannelTwitter:
		return c.EnableTwitter
	}
	return false
}

// RedirectTarget is the landing URL for tracked link clicks.
func (c *Config) RedirectTarget() string {
	if strings.TrimSpace(c.PortalURL) != "" {
		return c.PortalURL
	}
	return c.AppHost
}

// AttributionWindow is the configured click-attribution window.
func (c *Config) AttributionWindow() time.Duration {
	return time.Duration(c.AttributionDays) * 24 * time.Hour
}

// ShutdownGrace bounds how long in-flight work may finish during shutdown.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceSecond) * time.Second
}
