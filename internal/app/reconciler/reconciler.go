// Package reconciler assembles the daily sweep worker: storage, cache,
// the lifecycle event channel and the reconciliation service.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/solusikonsep/deploykit/internal/cache"
	"github.com/solusikonsep/deploykit/internal/config"
	"github.com/solusikonsep/deploykit/internal/lib/rabbitmq"
	"github.com/solusikonsep/deploykit/internal/runner"
	applicationservice "github.com/solusikonsep/deploykit/internal/services/application"
	reconcilerservice "github.com/solusikonsep/deploykit/internal/services/reconciler"
	subscriptionservice "github.com/solusikonsep/deploykit/internal/services/subscription"
	"github.com/solusikonsep/deploykit/internal/storage"
)

const (
	rabbitMQMaxRetries = 5
	rabbitMQRetryDelay = 3 * time.Second
)

type App struct {
	reconciler *reconcilerservice.Service
	conn       *amqp.Connection
	ch         *amqp.Channel
	db         *storage.Storage
	logger     *slog.Logger
}

func waitForDB(db *storage.Storage) error {
	for range 10 {
		err := storage.CheckDatabaseReady(db)
		if err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return fmt.Errorf("database not ready after retries")
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, rabbitMQMaxRetries, rabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetLifecycleQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(db); err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	// The sweep only touches bookkeeping, but the application service
	// still needs an executor for its remote operations.
	executor, err := runner.NewExecutor(cfg.Runner, logger)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, err
	}

	subscriptionService := subscriptionservice.New(db, cacheRedis, logger)
	applicationService := applicationservice.New(db, subscriptionService, executor, logger)
	reconcilerService := reconcilerservice.New(
		subscriptionService, applicationService, cfg.SweepInterval, logger)

	return &App{
		reconciler: reconcilerService,
		conn:       conn,
		ch:         ch,
		db:         db,
		logger:     logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", "error", err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", "error", err)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	go a.reconciler.Run(ctx, a.ch)

	<-ctx.Done()

	a.logger.Info("shutting down reconciler")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}
	a.db.DB.Close()

	return nil
}
