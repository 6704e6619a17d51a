package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresvaldez/warehouse-backend/internal/aggregator"
	"github.com/andresvaldez/warehouse-backend/internal/orchestrator"
	"github.com/andresvaldez/warehouse-backend/pkg/config"
	"github.com/andresvaldez/warehouse-backend/pkg/db"
	"github.com/andresvaldez/warehouse-backend/pkg/eventlog"
	"github.com/andresvaldez/warehouse-backend/pkg/logger"
	"github.com/andresvaldez/warehouse-backend/pkg/redis"
)

// consumerRunner is the consume-loop surface of *eventlog.Consumer, narrowed
// for in-memory fakes in tests.
type consumerRunner interface {
	Run(ctx context.Context, handler eventlog.Handler) error
}

type ServiceParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              *db.Client
	Redis           *redis.Client
	SignalConsumer  consumerRunner
	RequestConsumer consumerRunner
	Aggregator      *aggregator.Service
	Orchestrator    *orchestrator.Service
}

type Service struct {
	cfg             *config.Config
	logg            *logger.Logger
	db              *db.Client
	redis           *redis.Client
	signalConsumer  consumerRunner
	requestConsumer consumerRunner
	aggregator      *aggregator.Service
	orchestrator    *orchestrator.Service
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.SignalConsumer == nil {
		return nil, errors.New("restock signal consumer is required")
	}
	if params.RequestConsumer == nil {
		return nil, errors.New("fulfillment request consumer is required")
	}
	if params.Aggregator == nil {
		return nil, errors.New("aggregator service is required")
	}
	if params.Orchestrator == nil {
		return nil, errors.New("orchestrator service is required")
	}

	return &Service{
		cfg:             params.Config,
		logg:            params.Logger,
		db:              params.DB,
		redis:           params.Redis,
		signalConsumer:  params.SignalConsumer,
		requestConsumer: params.RequestConsumer,
		aggregator:      params.Aggregator,
		orchestrator:    params.Orchestrator,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if s.redis != nil {
		if err := pingDependency(ctx, s.logg, "redis", s.redis.Ping); err != nil {
			return err
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

// Run supervises one goroutine per consumer plus the aggregation flush
// ticker. The first consumer error stops the worker; the process supervisor
// restarts it and the consumers resume from their committed offsets.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	flushEvery := s.cfg.Aggregator.WindowDuration
	if flushEvery <= 0 {
		flushEvery = 15 * time.Second
	}
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()

	errCh := make(chan error, 2)
	go func() {
		errCh <- s.signalConsumer.Run(ctx, s.aggregator.HandleMessage)
	}()
	go func() {
		errCh <- s.requestConsumer.Run(ctx, s.orchestrator.HandleMessage)
	}()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "worker context canceled, flushing open windows")
			if err := s.aggregator.FlushAll(context.WithoutCancel(ctx)); err != nil {
				s.logg.Error(ctx, "final window flush failed", err)
			}
			return ctx.Err()
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(ctx, "consumer stopped unexpectedly", err)
				return err
			}
			return err
		case <-ticker.C:
			if err := s.aggregator.FlushDue(ctx); err != nil {
				s.logg.Error(ctx, "window flush failed", err)
			}
		}
	}
}
