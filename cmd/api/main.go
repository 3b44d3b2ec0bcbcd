package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/joho/godotenv"
	"github.com/recoverly/recovery-engine/internal/billing"
	"github.com/recoverly/recovery-engine/internal/channel"
	"github.com/recoverly/recovery-engine/internal/config"
	"github.com/recoverly/recovery-engine/internal/dispatch"
	"github.com/recoverly/recovery-engine/internal/domain"
	"github.com/recoverly/recovery-engine/internal/handler"
	"github.com/recoverly/recovery-engine/internal/infra/postgresql"
	"github.com/recoverly/recovery-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/recoverly/recovery-engine/internal/infra/redis"
	"github.com/recoverly/recovery-engine/internal/observability"
	"github.com/recoverly/recovery-engine/internal/ratelimit"
	"github.com/recoverly/recovery-engine/internal/recovery"
	"github.com/recoverly/recovery-engine/internal/repository"
	"github.com/recoverly/recovery-engine/internal/retry"
	"github.com/recoverly/recovery-engine/internal/service"
	"github.com/recoverly/recovery-engine/internal/transport"
	"go.uber.org/zap"
)

const analyticsCacheTTL = 60 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	metrics := observability.NewMetrics()

	users := repository.NewGormUserRepo(db)
	events := repository.NewGormEventRepo(db)
	clicks := repository.NewGormClickRepo(db)
	webhookLogs := repository.NewGormWebhookLogRepo(db)

	senders, recipients := buildSenders(cfg, logger)
	dispatcher, err := dispatch.NewDispatcher(
		senders,
		recipients,
		cfg,
		ratelimit.NewBucketRegistry(cfg.RateLimitCapacity, cfg.RateLimitRefillSec),
		retry.NewExecutor(cfg.RetryAttempts, retry.DefaultDelays),
		cfg.ChannelConcurrency,
		metrics,
		logger,
	)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}

	attributor, err := recovery.NewAttributor(clicks, cfg.AttributionWindow(), logger)
	if err != nil {
		logger.Fatal("attributor initialization failed", zap.Error(err))
	}
	links, err := recovery.NewLinkBuilder(cfg.AppHost)
	if err != nil {
		logger.Fatal("link builder initialization failed", zap.Error(err))
	}

	verifier := billing.NewVerifier(cfg.WebhookSecret, cfg.WebhookStrict)
	webhookSvc, err := service.NewWebhookService(webhookLogs, users, events, verifier, dispatcher, attributor, links, metrics, logger)
	if err != nil {
		logger.Fatal("webhook service initialization failed", zap.Error(err))
	}
	notifySvc, err := service.NewNotifyService(users, clicks, dispatcher, links, metrics, logger)
	if err != nil {
		logger.Fatal("notify service initialization failed", zap.Error(err))
	}
	cache, err := infraredis.NewMetricsCache(rdb, analyticsCacheTTL)
	if err != nil {
		logger.Fatal("metrics cache initialization failed", zap.Error(err))
	}
	analyticsSvc, err := service.NewAnalyticsService(events, clicks, cache, logger)
	if err != nil {
		logger.Fatal("analytics service initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	if err := handler.RegisterWebhookRoutes(app, webhookSvc); err != nil {
		logger.Fatal("webhook routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterClickRoutes(app, notifySvc, cfg.RedirectTarget(), logger); err != nil {
		logger.Fatal("click routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterNotifyRoutes(app, notifySvc); err != nil {
		logger.Fatal("notify routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterAnalyticsRoutes(app, analyticsSvc); err != nil {
		logger.Fatal("analytics routes registration failed", zap.Error(err))
	}

	go func() {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		logger.Info("recovery-engine api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(addr); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down", zap.Duration("grace", cfg.ShutdownGrace()))
	if err := app.ShutdownWithTimeout(cfg.ShutdownGrace()); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildSenders constructs provider adapters for the administratively enabled
// channels. A disabled channel gets no sender at all; the dispatcher treats
// that the same as the enable flag being off.
func buildSenders(cfg *config.Config, logger *zap.Logger) (map[domain.Channel]channel.Sender, map[domain.Channel]string) {
	senders := make(map[domain.Channel]channel.Sender)
	recipients := make(map[domain.Channel]string)

	if cfg.EnableEmail {
		sender, err := channel.NewEmailSender(channel.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		})
		if err != nil {
			logger.Warn("email channel unavailable", zap.Error(err))
		} else {
			senders[domain.ChannelEmail] = sender
		}
	}

	if cfg.EnableTelegram {
		sender, err := channel.NewTelegramSender(cfg.TelegramBotToken)
		if err != nil {
			logger.Warn("telegram channel unavailable", zap.Error(err))
		} else {
			senders[domain.ChannelTelegram] = sender
		}
	}

	if cfg.EnableDiscord {
		sender, err := channel.NewDiscordSender()
		if err != nil {
			logger.Warn("discord channel unavailable", zap.Error(err))
		} else {
			senders[domain.ChannelDiscord] = sender
			recipients[domain.ChannelDiscord] = cfg.DiscordWebhookURL
		}
	}

	if cfg.EnableTwitter {
		senders[domain.ChannelTwitter] = channel.NewTwitterSender()
	}

	return senders, recipients
}
