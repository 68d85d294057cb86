package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/devconnector/adapters/event"
	"github.com/khoahotran/devconnector/adapters/githubapi"
	"github.com/khoahotran/devconnector/adapters/persistence"
	workerUC "github.com/khoahotran/devconnector/internal/application/usecase/github"
	"github.com/khoahotran/devconnector/internal/config"
	"github.com/khoahotran/devconnector/pkg/logger"
	"github.com/khoahotran/devconnector/pkg/tracing"
)

const consumerGroup = "profile-github-cache-group"

func main() {
	// Configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: cannot load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()
	appLogger.Info("Starting DevConnector Worker...")

	if len(cfg.Kafka.Brokers) == 0 {
		appLogger.Fatal("Kafka brokers are not configured", errors.New("KAFKA_BROKERS is empty"))
	}
	if cfg.Redis.Addr == "" {
		appLogger.Fatal("Redis is not configured", errors.New("REDIS_ADDR is empty"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg, appLogger, "devconnector-worker")
	if err != nil {
		appLogger.Fatal("Cannot init tracing", err)
	}
	defer shutdownTracing(context.Background())

	// Redis
	redisClient, err := persistence.NewRedisClient(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Cannot connect Redis", err)
	}
	defer redisClient.Close()

	// Worker Use Case
	githubUseCase := workerUC.NewGithubUseCase(
		githubapi.NewClient(cfg, appLogger),
		persistence.NewRedisRepoCache(redisClient, cfg.Github.CacheTTL),
		appLogger,
	)
	processEventUC := workerUC.NewProcessProfileEventUseCase(githubUseCase, appLogger)

	// Kafka Consumer
	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    event.TopicProfileEvents,
		GroupID:  consumerGroup,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	defer consumer.Close()

	appLogger.Info("Worker listening", zap.String("topic", event.TopicProfileEvents))

	for {
		msg, err := consumer.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				appLogger.Info("Worker stopped")
				return
			}
			appLogger.Error("Failed to read message from Kafka", err)
			continue
		}

		evt, err := event.DecodeProfileEvent(msg)
		if err != nil {
			appLogger.Warn("Skipping malformed event", zap.String("key", string(msg.Key)), zap.Error(err))
			commitMessage(consumer, msg, appLogger)
			continue
		}

		appLogger.Info("Processing event",
			zap.String("event_type", evt.EventType),
			zap.String("user_id", evt.UserID.String()))

		// A failed refresh is not retried: the cache entry just stays stale or
		// missing until the next request or profile update fills it.
		if err := processEventUC.Execute(ctx, evt); err != nil {
			appLogger.Error("Failed to process event", err, zap.String("user_id", evt.UserID.String()))
		}
		commitMessage(consumer, msg, appLogger)
	}
}

func commitMessage(consumer *kafka.Reader, msg kafka.Message, log logger.Logger) {
	if err := consumer.CommitMessages(context.Background(), msg); err != nil {
		log.Error("Failed to commit message", err)
	}
}
