package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/andresvaldez/warehouse-backend/internal/advisor"
	"github.com/andresvaldez/warehouse-backend/internal/aggregator"
	"github.com/andresvaldez/warehouse-backend/internal/catalog"
	"github.com/andresvaldez/warehouse-backend/internal/fulfillment"
	"github.com/andresvaldez/warehouse-backend/internal/inventory"
	"github.com/andresvaldez/warehouse-backend/internal/orchestrator"
	"github.com/andresvaldez/warehouse-backend/pkg/config"
	"github.com/andresvaldez/warehouse-backend/pkg/db"
	"github.com/andresvaldez/warehouse-backend/pkg/eventlog"
	"github.com/andresvaldez/warehouse-backend/pkg/idempotency"
	"github.com/andresvaldez/warehouse-backend/pkg/logger"
	"github.com/andresvaldez/warehouse-backend/pkg/metrics"
	"github.com/andresvaldez/warehouse-backend/pkg/migrate"
	"github.com/andresvaldez/warehouse-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	producer, err := eventlog.NewProducer(cfg.Kafka, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap event log producer", err)
		os.Exit(1)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			logg.Error(context.Background(), "error closing event log producer", err)
		}
	}()

	signalConsumer, err := eventlog.NewConsumer(cfg.Kafka, cfg.Kafka.RestockSignalsTopic, cfg.Kafka.GroupID+"-aggregator", logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap restock signal consumer", err)
		os.Exit(1)
	}
	defer func() {
		if err := signalConsumer.Close(); err != nil {
			logg.Error(context.Background(), "error closing restock signal consumer", err)
		}
	}()

	requestConsumer, err := eventlog.NewConsumer(cfg.Kafka, cfg.Kafka.FulfillmentRequestsTopic, cfg.Kafka.GroupID+"-orchestrator", logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap fulfillment request consumer", err)
		os.Exit(1)
	}
	defer func() {
		if err := requestConsumer.Close(); err != nil {
			logg.Error(context.Background(), "error closing fulfillment request consumer", err)
		}
	}()

	guard, err := idempotency.NewManager(redisClient, cfg.Aggregator.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency guard", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	pipeline := metrics.NewPipelineMetrics(registry)

	gdb := dbClient.DB()
	catalogRepo := catalog.NewRepository(gdb)
	fulfillmentRepo := fulfillment.NewRepository(gdb)

	aggregatorService := aggregator.NewService(
		catalogRepo, fulfillmentRepo, producer, guard,
		cfg.Aggregator, cfg.Kafka.FulfillmentRequestsTopic, logg, pipeline)

	var optimizer advisor.Optimizer
	if client := advisor.NewHTTPClient(cfg.Advisor); client != nil {
		optimizer = client
	}
	advisorService := advisor.NewService(optimizer, cfg.Advisor.Timeout, logg, pipeline)
	orchestratorService := orchestrator.NewService(
		dbClient, fulfillmentRepo, inventory.NewStockRepository(gdb), advisorService,
		producer, cfg.Kafka.FulfillmentEventsTopic, cfg.Orchestrator, logg, pipeline)

	service, err := NewService(ServiceParams{
		Config:          cfg,
		Logger:          logg,
		DB:              dbClient,
		Redis:           redisClient,
		SignalConsumer:  signalConsumer,
		RequestConsumer: requestConsumer,
		Aggregator:      aggregatorService,
		Orchestrator:    orchestratorService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "worker shut down gracefully")
}
