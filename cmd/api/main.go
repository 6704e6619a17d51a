package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/andresvaldez/warehouse-backend/api/routes"
	"github.com/andresvaldez/warehouse-backend/internal/advisor"
	"github.com/andresvaldez/warehouse-backend/internal/catalog"
	"github.com/andresvaldez/warehouse-backend/internal/delivery"
	"github.com/andresvaldez/warehouse-backend/internal/fulfillment"
	"github.com/andresvaldez/warehouse-backend/internal/inventory"
	"github.com/andresvaldez/warehouse-backend/internal/orchestrator"
	"github.com/andresvaldez/warehouse-backend/internal/vehicles"
	"github.com/andresvaldez/warehouse-backend/pkg/config"
	"github.com/andresvaldez/warehouse-backend/pkg/db"
	"github.com/andresvaldez/warehouse-backend/pkg/eventlog"
	"github.com/andresvaldez/warehouse-backend/pkg/logger"
	"github.com/andresvaldez/warehouse-backend/pkg/metrics"
	"github.com/andresvaldez/warehouse-backend/pkg/migrate"
	"github.com/andresvaldez/warehouse-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	pipeline := metrics.NewPipelineMetrics(registry)

	gdb := dbClient.DB()
	inventoryService := inventory.NewService(
		inventory.NewRepository(gdb),
		dbClient,
		producer,
		inventory.Topics{
			InventoryUpdates: cfg.Kafka.InventoryUpdatesTopic,
			RestockSignals:   cfg.Kafka.RestockSignalsTopic,
		},
		logg,
		pipeline,
	)
	catalogRepo := catalog.NewRepository(gdb)
	fulfillmentRepo := fulfillment.NewRepository(gdb)
	vehicleRepo := vehicles.NewRepository(gdb)
	deliveryRepo := delivery.NewRepository(gdb)

	var optimizer advisor.Optimizer
	if client := advisor.NewHTTPClient(cfg.Advisor); client != nil {
		optimizer = client
	}
	advisorService := advisor.NewService(optimizer, cfg.Advisor.Timeout, logg, pipeline)
	orchestratorService := orchestrator.NewService(
		dbClient, fulfillmentRepo, inventory.NewStockRepository(gdb), advisorService,
		producer, cfg.Kafka.FulfillmentEventsTopic, cfg.Orchestrator, logg, pipeline)
	deliveryService := delivery.NewService(
		dbClient, deliveryRepo, vehicleRepo, fulfillmentRepo, logg, pipeline)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg, logg, dbClient, redisClient, registry,
			inventoryService, catalogRepo, fulfillmentRepo, orchestratorService,
			vehicleRepo, deliveryService, deliveryRepo,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
