package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/andresvaldez/warehouse-backend/internal/advisor"
	"github.com/andresvaldez/warehouse-backend/internal/fulfillment"
	"github.com/andresvaldez/warehouse-backend/internal/inventory"
	"github.com/andresvaldez/warehouse-backend/pkg/config"
	"github.com/andresvaldez/warehouse-backend/pkg/db/models"
	"github.com/andresvaldez/warehouse-backend/pkg/enums"
	pkgerrors "github.com/andresvaldez/warehouse-backend/pkg/errors"
	"github.com/andresvaldez/warehouse-backend/pkg/eventlog"
	"github.com/andresvaldez/warehouse-backend/pkg/eventlog/payloads"
	"github.com/andresvaldez/warehouse-backend/pkg/logger"
	"github.com/andresvaldez/warehouse-backend/pkg/metrics"
)

const consumerName = "orchestrator"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives a fulfillment request from pending to one of its terminal
// states. It never retries on its own: insufficient_stock and error requests
// stay queryable until an operator re-triggers processing.
type Service struct {
	tx        txRunner
	requests  fulfillment.Repository
	stock     inventory.StockRepository
	advisor   *advisor.Service
	publisher eventlog.Publisher
	topic     string
	cfg       config.OrchestratorConfig
	logg      *logger.Logger
	pipeline  *metrics.PipelineMetrics
	now       func() time.Time
}

// NewService wires the orchestrator with its collaborators.
func NewService(tx txRunner, requests fulfillment.Repository, stock inventory.StockRepository, advisorSvc *advisor.Service, publisher eventlog.Publisher, eventsTopic string, cfg config.OrchestratorConfig, logg *logger.Logger, pipeline *metrics.PipelineMetrics) *Service {
	return &Service{
		tx:        tx,
		requests:  requests,
		stock:     stock,
		advisor:   advisorSvc,
		publisher: publisher,
		topic:     eventsTopic,
		cfg:       cfg,
		logg:      logg,
		pipeline:  pipeline,
		now:       time.Now,
	}
}

// HandleMessage is the event-log consumer entrypoint for the
// fulfillment-requests topic. Requests below the auto-process priority bar
// stay pending for an operator to trigger.
func (s *Service) HandleMessage(ctx context.Context, msg eventlog.Message) error {
	var event payloads.FulfillmentRequested
	if err := payloads.Decode(msg.Value, &event); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dropping malformed fulfillment request event")
		return nil
	}

	ctx = s.logg.WithStoreID(ctx, event.StoreID)
	if !s.autoProcessable(event) {
		s.logg.Info(s.logg.WithField(ctx, "request_id", event.RequestID), "request below auto-process priority, leaving pending")
		return nil
	}
	return s.Process(ctx, event.RequestID)
}

func (s *Service) autoProcessable(event payloads.FulfillmentRequested) bool {
	for _, line := range event.LineItems {
		for _, allowed := range s.cfg.AutoProcessPriorities {
			if strings.EqualFold(line.Priority.String(), allowed) {
				return true
			}
		}
	}
	return false
}

// Process runs one attempt at allocating the request. It is safe to call
// again on requests that ended in insufficient_stock or error; requests
// already processing or allocated are left alone.
func (s *Service) Process(ctx context.Context, requestID string) error {
	ctx = s.logg.WithField(s.logg.WithConsumer(ctx, consumerName), "request_id", requestID)
	started := s.now()

	request, err := s.requests.Find(ctx, requestID)
	if err != nil {
		return err
	}
	ctx = s.logg.WithStoreID(ctx, request.StoreID)

	retriable := []enums.RequestStatus{
		enums.RequestStatusPending,
		enums.RequestStatusInsufficientStock,
		enums.RequestStatusError,
	}
	if err := s.requests.TransitionStatus(ctx, requestID, retriable, enums.RequestStatusProcessing, nil); err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
			// Another worker already owns the request, or it finished.
			// Redelivery of the same event must not double-allocate.
			s.logg.Info(ctx, "request not in a processable state, skipping")
			return nil
		}
		return err
	}

	outcome, err := s.allocate(ctx, request)
	if err != nil {
		msg := err.Error()
		if terr := s.requests.TransitionStatus(ctx, requestID, []enums.RequestStatus{enums.RequestStatusProcessing}, enums.RequestStatusError, &msg); terr != nil {
			s.logg.Error(ctx, "marking request errored", terr)
		}
		s.pipeline.IncConsumerFailure(consumerName)
		s.publishResult(ctx, request, enums.RequestStatusError, nil)
		s.logg.Error(ctx, "request processing failed", err)
		return nil
	}

	s.pipeline.ObserveConsumer(consumerName, s.now().Sub(started))
	s.pipeline.IncAllocation(outcome.metric)
	s.publishResult(ctx, request, outcome.status, outcome.allocation)
	s.logg.Info(s.logg.WithField(ctx, "status", outcome.status.String()), "request processed")
	return nil
}

type processOutcome struct {
	status     enums.RequestStatus
	metric     string
	allocation *models.Allocation
}

// allocate runs the availability check, the advisory step and the atomic
// per-line allocation. Primary line items are all-or-nothing inside one
// transaction; advisory additions are best effort.
func (s *Service) allocate(ctx context.Context, request *models.FulfillmentRequest) (*processOutcome, error) {
	snapshots, shortfall, err := s.checkAvailability(ctx, request)
	if err != nil {
		return nil, err
	}
	if shortfall != nil {
		if terr := s.requests.TransitionStatus(ctx, request.RequestID, []enums.RequestStatus{enums.RequestStatusProcessing}, enums.RequestStatusInsufficientStock, shortfall); terr != nil {
			return nil, terr
		}
		s.logg.Warn(s.logg.WithField(ctx, "reason", *shortfall), "insufficient warehouse stock")
		return &processOutcome{status: enums.RequestStatusInsufficientStock, metric: "insufficient"}, nil
	}

	proposal := s.advisor.Propose(ctx, advisorInput(request, snapshots))

	allocation := &models.Allocation{
		AllocationID: newID("ALLOC"),
		RequestID:    request.RequestID,
		Status:       enums.AllocationStatusCompleted,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		for _, line := range request.LineItems {
			qty := line.RequestedQty
			if proposed, ok := proposal.PrimaryQuantities[line.ProductID]; ok && proposed > 0 {
				qty = proposed
			}
			allocated, aerr := s.allocateLine(ctx, tx, line.ProductID, qty, line.RequestedQty)
			if aerr != nil {
				return aerr
			}
			allocation.Items = append(allocation.Items, models.AllocationItem{
				ProductID:    line.ProductID,
				RequestedQty: line.RequestedQty,
				AllocatedQty: allocated,
			})
		}

		for _, extra := range sortedAdditions(proposal.AdditionalItems) {
			item := models.AllocationItem{ProductID: extra.ProductID, RequestedQty: extra.RequestedQty}
			if aerr := s.stock.Allocate(ctx, tx, extra.ProductID, extra.RequestedQty); aerr != nil {
				reason := aerr.Error()
				item.ErrorReason = &reason
				allocation.Status = enums.AllocationStatusPartial
				s.logg.Warn(s.logg.WithField(s.logg.WithProductID(ctx, extra.ProductID), "error", reason), "skipping advisory addition")
			} else {
				item.AllocatedQty = extra.RequestedQty
			}
			allocation.Items = append(allocation.Items, item)
		}

		scoped := s.requests.WithTx(tx)
		if cerr := scoped.CreateAllocation(ctx, allocation); cerr != nil {
			return cerr
		}
		return scoped.TransitionStatus(ctx, request.RequestID, []enums.RequestStatus{enums.RequestStatusProcessing}, enums.RequestStatusAllocated, nil)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInsufficientStock {
			// Stock drained between the availability check and the
			// conditional decrement. The transaction rolled back whole.
			msg := err.Error()
			if terr := s.requests.TransitionStatus(ctx, request.RequestID, []enums.RequestStatus{enums.RequestStatusProcessing}, enums.RequestStatusInsufficientStock, &msg); terr != nil {
				return nil, terr
			}
			return &processOutcome{status: enums.RequestStatusInsufficientStock, metric: "insufficient"}, nil
		}
		return nil, err
	}

	metric := "allocated"
	if allocation.Status == enums.AllocationStatusPartial {
		metric = "partial"
	}
	return &processOutcome{status: enums.RequestStatusAllocated, metric: metric, allocation: allocation}, nil
}

// allocateLine reserves a primary line. When the advisory quantity cannot be
// satisfied it falls back to the requested quantity before giving up, so an
// optimistic proposal never starves the store of what it actually asked for.
func (s *Service) allocateLine(ctx context.Context, tx *gorm.DB, productID string, qty, requestedQty int) (int, error) {
	err := s.stock.Allocate(ctx, tx, productID, qty)
	if err == nil {
		return qty, nil
	}
	if qty == requestedQty {
		return 0, err
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		return 0, err
	}
	s.logg.Warn(s.logg.WithProductID(ctx, productID), "advisory quantity unavailable, falling back to requested quantity")
	if err := s.stock.Allocate(ctx, tx, productID, requestedQty); err != nil {
		return 0, err
	}
	return requestedQty, nil
}

// checkAvailability snapshots warehouse stock for every line item. A missing
// stock row counts as zero availability.
func (s *Service) checkAvailability(ctx context.Context, request *models.FulfillmentRequest) ([]advisor.StockSnapshot, *string, error) {
	snapshots := make([]advisor.StockSnapshot, 0, len(request.LineItems))
	for _, line := range request.LineItems {
		available := 0
		item, err := s.stock.Find(ctx, line.ProductID)
		switch {
		case err == nil:
			available = item.AvailableStock
		default:
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
				return nil, nil, err
			}
		}
		snapshots = append(snapshots, advisor.StockSnapshot{ProductID: line.ProductID, AvailableStock: available})
		if available < line.RequestedQty {
			msg := fmt.Sprintf("insufficient stock for %s: available %d, requested %d", line.ProductID, available, line.RequestedQty)
			return nil, &msg, nil
		}
	}
	return snapshots, nil, nil
}

func (s *Service) publishResult(ctx context.Context, request *models.FulfillmentRequest, status enums.RequestStatus, allocation *models.Allocation) {
	event := payloads.AllocationResult{
		RequestID:  request.RequestID,
		StoreID:    request.StoreID,
		Status:     status,
		OccurredAt: s.now().UTC(),
	}
	if allocation != nil {
		event.AllocationID = allocation.AllocationID
		for _, item := range allocation.Items {
			line := payloads.AllocatedLine{ProductID: item.ProductID, AllocatedQty: item.AllocatedQty}
			if item.ErrorReason != nil {
				line.ErrorReason = *item.ErrorReason
			}
			event.Items = append(event.Items, line)
		}
	}
	if err := s.publisher.Publish(ctx, s.topic, request.StoreID, event); err != nil {
		// Allocation already committed; the event log lagging is a
		// downstream visibility problem, not a reason to unwind stock.
		s.logg.Error(ctx, "publishing allocation result", err)
	}
}

func advisorInput(request *models.FulfillmentRequest, snapshots []advisor.StockSnapshot) advisor.Input {
	input := advisor.Input{RequestID: request.RequestID, StoreID: request.StoreID, Stock: snapshots}
	for _, line := range request.LineItems {
		input.Lines = append(input.Lines, advisor.Line{
			ProductID:    line.ProductID,
			RequestedQty: line.RequestedQty,
			Priority:     line.Priority,
		})
	}
	return input
}

func sortedAdditions(items []advisor.Line) []advisor.Line {
	out := make([]advisor.Line, len(items))
	copy(out, items)
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func newID(prefix string) string {
	return prefix + "_" + strings.ToUpper(uuid.NewString()[:8])
}
