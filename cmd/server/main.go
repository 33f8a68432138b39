package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq" // postgres driver for admin API keys
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/reqnotify/internal/adapter/api"
	"github.com/V4T54L/reqnotify/internal/adapter/api/handler"
	"github.com/V4T54L/reqnotify/internal/adapter/auth"
	"github.com/V4T54L/reqnotify/internal/adapter/metrics"
	"github.com/V4T54L/reqnotify/internal/adapter/publisher"
	"github.com/V4T54L/reqnotify/internal/adapter/redact"
	"github.com/V4T54L/reqnotify/internal/adapter/repository/memory"
	"github.com/V4T54L/reqnotify/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/reqnotify/internal/adapter/repository/redis"
	"github.com/V4T54L/reqnotify/internal/adapter/webhook"
	"github.com/V4T54L/reqnotify/internal/domain"
	"github.com/V4T54L/reqnotify/internal/pkg/config"
	"github.com/V4T54L/reqnotify/internal/pkg/logger"
	"github.com/V4T54L/reqnotify/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log, logCloser := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	defer logCloser.Close()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		logCloser.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	// --- Notifier setup: a bad configuration stops the process here ---
	notifierCfg, err := cfg.Notifier()
	if err != nil {
		return err
	}
	notifier, err := domain.PrepareNotifier(notifierCfg)
	if err != nil {
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			log.Error("invalid notifier configuration", "header", cfgErr.Header, "reason", cfgErr.Reason)
		}
		return err
	}

	redactor := redact.NewRedactor(cfg.RedactHeaders)
	log.Info("webhook notifier configured",
		"url", notifier.URL(),
		"headers", redactor.Headers(notifier.Header()),
		"max_in_flight", cfg.NotifierMaxInFlight,
	)

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.NewNotifierMetrics(prometheus.DefaultRegisterer)

	clientOpts := webhook.DefaultClientOptions()
	clientOpts.Timeout = cfg.NotifierTimeout
	client := webhook.NewClient(clientOpts)

	broker := handler.NewOutcomeBroker(ctx, log, time.Second)
	deliverOpts := []usecase.DeliverOption{
		usecase.WithDeliveryTimeout(cfg.NotifierTimeout),
		usecase.WithOutcomeObservers(broker),
	}

	// --- Optional outcome journal ---
	var adminUseCase *usecase.AdminStreamUseCase
	if cfg.RedisAddr != "" {
		redisClient, err := newRedisClient(cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("could not connect to redis, outcomes will not be journaled until it recovers", "error", err)
		}

		journal := redisrepo.NewOutcomeRepository(redisClient, log, cfg.OutcomeStream, cfg.OutcomeDLQStream, cfg.OutcomeStreamMaxLen)
		go journal.StartHealthCheck(ctx, 5*time.Second)
		deliverOpts = append(deliverOpts, usecase.WithOutcomeJournal(journal))

		adminUseCase = usecase.NewAdminStreamUseCase(redisrepo.NewAdminRepository(redisClient, log))
	}

	// --- Optional Kafka outcome feed ---
	if len(cfg.KafkaBrokers) > 0 {
		outcomePublisher := publisher.NewOutcomePublisher(publisher.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic, log), log)
		defer func() {
			if err := outcomePublisher.Close(); err != nil {
				log.Error("failed to flush kafka outcome publisher", "error", err)
			}
		}()
		deliverOpts = append(deliverOpts, usecase.WithOutcomeObservers(outcomePublisher))
		log.Info("publishing outcomes to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	deliverer := usecase.NewDeliverNotificationUseCase(client, log, m, deliverOpts...)
	dispatcher := usecase.NewNotificationDispatcher(deliverer, log, m, cfg.NotifierMaxInFlight)

	// --- Admin credentials: static keys, postgres keys and signed tokens ---
	var keySources []domain.APIKeyRepository
	if keys := memory.NewAPIKeyRepository(cfg.AdminAPIKeys); keys != nil {
		keySources = append(keySources, keys)
	}
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		keySources = append(keySources, postgres.NewAPIKeyRepository(db, log, cfg.APIKeyCacheTTL, m))
	}
	if tokens := auth.NewTokenValidator(cfg.AdminJWTSecret); tokens != nil {
		keySources = append(keySources, tokens)
	}
	apiKeys := auth.AnyOf(keySources...)
	if apiKeys == nil {
		log.Warn("no admin credentials configured, admin API is unauthenticated")
	}

	// --- Admin and Metrics Server ---
	body, hasBody := notifier.Body()
	view := handler.NotifierView{
		URL:         notifier.URL(),
		Headers:     redactor.Headers(notifier.Header()),
		HasBody:     hasBody,
		BodyBytes:   len(body),
		Timeout:     cfg.NotifierTimeout.String(),
		MaxInFlight: cfg.NotifierMaxInFlight,
	}
	if adminUseCase != nil {
		view.Journal = cfg.OutcomeStream
	}
	adminHandler := handler.NewAdminHandler(adminUseCase, view, cfg.OutcomeStream, log)
	adminServer := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: api.NewAdminRouter(adminHandler, broker, promhttp.Handler(), apiKeys, log),
	}

	go func() {
		log.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Public Server ---
	var upstream *url.URL
	if cfg.UpstreamURL != "" {
		if upstream, err = url.Parse(cfg.UpstreamURL); err != nil {
			return err
		}
	}
	app := handler.NewAppHandler(upstream, log)
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      api.NewRouter(app, notifier, dispatcher, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting server", "addr", server.Addr, "upstream", cfg.UpstreamURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			stop() // Trigger shutdown on server error
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	log.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.NotifierDrainTimeout)
	defer cancelDrain()
	if err := dispatcher.Shutdown(drainCtx); err != nil {
		log.Warn("abandoned in-flight webhook notifications", "error", err)
	}

	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Error("admin server shutdown failed", "error", err)
	}

	log.Info("servers shut down gracefully")
	return nil
}

// newRedisClient accepts either a redis:// URL or a bare host:port.
func newRedisClient(addr string) (*redis.Client, error) {
	if !strings.Contains(addr, "://") {
		return redis.NewClient(&redis.Options{Addr: addr}), nil
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}
