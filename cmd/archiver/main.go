package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/reqnotify/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/reqnotify/internal/adapter/repository/redis"
	"github.com/V4T54L/reqnotify/internal/pkg/config"
	"github.com/V4T54L/reqnotify/internal/pkg/logger"
	"github.com/V4T54L/reqnotify/internal/usecase"
)

const (
	consumerGroup     = "outcome-archivers"
	errorBackoff      = 1 * time.Second
	healthCheckPeriod = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.RedisAddr == "" || cfg.PostgresURL == "" {
		slog.Error("archiver requires REDIS_ADDR and POSTGRES_URL")
		os.Exit(1)
	}

	log, logCloser := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	defer logCloser.Close()
	log = log.With("service", "archiver")
	log.Info("starting outcome archiver")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to Redis
	var redisOpts *redis.Options
	if strings.Contains(cfg.RedisAddr, "://") {
		if redisOpts, err = redis.ParseURL(cfg.RedisAddr); err != nil {
			log.Error("failed to parse redis url", "error", err)
			os.Exit(1)
		}
	} else {
		redisOpts = &redis.Options{Addr: cfg.RedisAddr}
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to redis")

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	log.Info("connected to postgres")

	// Create a unique consumer name for this instance
	consumerName, err := os.Hostname()
	if err != nil {
		log.Warn("could not get hostname for consumer name, using default", "error", err)
		consumerName = "archiver-default"
	}

	journal := redisrepo.NewOutcomeRepository(redisClient, log, cfg.OutcomeStream, cfg.OutcomeDLQStream, cfg.OutcomeStreamMaxLen)
	if err := journal.EnsureGroup(ctx, consumerGroup); err != nil {
		log.Error("failed to create consumer group", "error", err)
		os.Exit(1)
	}
	go journal.StartHealthCheck(ctx, healthCheckPeriod)

	archive := postgres.NewOutcomeRepository(db, log)
	if err := archive.Migrate(ctx); err != nil {
		log.Error("failed to migrate archive schema", "error", err)
		os.Exit(1)
	}

	archiver := usecase.NewArchiveOutcomesUseCase(journal, archive, log, consumerGroup, consumerName,
		cfg.ArchiverRetryCount, cfg.ArchiverRetryBackoff)

	log.Info("archiver started", "stream", journal.Stream(), "group", consumerGroup, "consumer", consumerName)

	// ReadOutcomeBatch blocks for a short while when the stream is idle, so
	// the loop only needs to back off after errors.
	for ctx.Err() == nil {
		if _, err := archiver.ProcessBatch(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			log.Error("error processing batch", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(errorBackoff):
			}
		}
	}

	log.Info("archiver shut down gracefully")
}
