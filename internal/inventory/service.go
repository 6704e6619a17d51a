package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/andresvaldez/warehouse-backend/internal/threshold"
	"github.com/andresvaldez/warehouse-backend/pkg/db/models"
	"github.com/andresvaldez/warehouse-backend/pkg/enums"
	pkgerrors "github.com/andresvaldez/warehouse-backend/pkg/errors"
	"github.com/andresvaldez/warehouse-backend/pkg/eventlog"
	"github.com/andresvaldez/warehouse-backend/pkg/eventlog/payloads"
	"github.com/andresvaldez/warehouse-backend/pkg/logger"
	"github.com/andresvaldez/warehouse-backend/pkg/metrics"
	"github.com/andresvaldez/warehouse-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Topics names the event-log destinations the inventory service publishes to.
type Topics struct {
	InventoryUpdates string
	RestockSignals   string
}

// Service owns inventory record writes and the threshold-triggered signal path.
type Service interface {
	CreateRecord(ctx context.Context, input CreateRecordInput) (*models.InventoryRecord, error)
	GetRecord(ctx context.Context, storeID, productID string) (*models.InventoryRecord, error)
	ListRecords(ctx context.Context, storeID string, params pagination.Params) ([]models.InventoryRecord, string, error)
	UpdateThresholds(ctx context.Context, storeID, productID string, critical, warning, reorder int) (*models.InventoryRecord, error)
	ApplyMutation(ctx context.Context, input MutationInput) (*MutationResult, error)
	RecordSale(ctx context.Context, input SaleInput) (*models.SaleTransaction, error)
	SubmitSignal(ctx context.Context, signal payloads.RestockSignal) error
}

type service struct {
	repo      Repository
	tx        txRunner
	publisher eventlog.Publisher
	topics    Topics
	logg      *logger.Logger
	pipeline  *metrics.PipelineMetrics
	now       func() time.Time
}

// NewService wires the inventory service with its collaborators.
func NewService(repo Repository, tx txRunner, publisher eventlog.Publisher, topics Topics, logg *logger.Logger, pipeline *metrics.PipelineMetrics) Service {
	return &service{
		repo:      repo,
		tx:        tx,
		publisher: publisher,
		topics:    topics,
		logg:      logg,
		pipeline:  pipeline,
		now:       time.Now,
	}
}

func (s *service) CreateRecord(ctx context.Context, input CreateRecordInput) (*models.InventoryRecord, error) {
	if input.StoreID == "" || input.ProductID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store_id and product_id are required")
	}
	record := &models.InventoryRecord{
		StoreID:           input.StoreID,
		ProductID:         input.ProductID,
		CurrentStock:      input.CurrentStock,
		ReservedStock:     input.ReservedStock,
		CriticalThreshold: input.CriticalThreshold,
		WarningThreshold:  input.WarningThreshold,
		ReorderThreshold:  input.ReorderThreshold,
		MaxCapacity:       input.MaxCapacity,
		Location:          input.Location,
	}
	return s.repo.Create(ctx, record)
}

func (s *service) GetRecord(ctx context.Context, storeID, productID string) (*models.InventoryRecord, error) {
	return s.repo.Find(ctx, storeID, productID)
}

func (s *service) ListRecords(ctx context.Context, storeID string, params pagination.Params) ([]models.InventoryRecord, string, error) {
	return s.repo.List(ctx, storeID, params)
}

func (s *service) UpdateThresholds(ctx context.Context, storeID, productID string, critical, warning, reorder int) (*models.InventoryRecord, error) {
	if err := s.repo.UpdateThresholds(ctx, storeID, productID, critical, warning, reorder); err != nil {
		return nil, err
	}
	return s.repo.Find(ctx, storeID, productID)
}

func (s *service) ApplyMutation(ctx context.Context, input MutationInput) (*MutationResult, error) {
	var result *MutationResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		applied, terr := s.applyMutationTx(ctx, tx, input)
		if terr != nil {
			return terr
		}
		result = applied
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.publishMutationEvents(ctx, input.ChangeType, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) RecordSale(ctx context.Context, input SaleInput) (*models.SaleTransaction, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale quantity must be positive")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be non-negative")
	}
	at := input.Timestamp
	if at.IsZero() {
		at = s.now().UTC()
	}

	sale := &models.SaleTransaction{
		TransactionID: newID("TXN"),
		StoreID:       input.StoreID,
		ProductID:     input.ProductID,
		Quantity:      input.Quantity,
		UnitPrice:     input.UnitPrice,
		Discount:      input.Discount,
		Tax:           input.Tax,
		TotalAmount:   input.UnitPrice.Mul(decimalFromInt(input.Quantity)).Sub(input.Discount).Add(input.Tax),
		CashierID:     input.CashierID,
		Timestamp:     at,
	}

	var result *MutationResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, terr := s.repo.WithTx(tx).CreateSale(ctx, sale); terr != nil {
			return terr
		}
		applied, terr := s.applyMutationTx(ctx, tx, MutationInput{
			StoreID:    input.StoreID,
			ProductID:  input.ProductID,
			Quantity:   input.Quantity,
			ChangeType: enums.StockChangeSale,
		})
		if terr != nil {
			return terr
		}
		result = applied
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.publishMutationEvents(ctx, enums.StockChangeSale, result); err != nil {
		return nil, err
	}
	return sale, nil
}

// SubmitSignal publishes an operator-submitted restock signal onto the log.
func (s *service) SubmitSignal(ctx context.Context, signal payloads.RestockSignal) error {
	if signal.EmittedAt.IsZero() {
		signal.EmittedAt = s.now().UTC()
	}
	if err := signal.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid restock signal")
	}
	if err := s.publisher.Publish(ctx, s.topics.RestockSignals, signal.StoreID, signal); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish restock signal")
	}
	s.pipeline.IncSignalEmitted(signal.Priority.String())
	return nil
}

func (s *service) applyMutationTx(ctx context.Context, tx *gorm.DB, input MutationInput) (*MutationResult, error) {
	if input.StoreID == "" || input.ProductID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store_id and product_id are required")
	}
	if !input.ChangeType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown change type")
	}
	if input.Quantity == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-zero")
	}
	if input.ChangeType != enums.StockChangeAdjustment && input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	repo := s.repo.WithTx(tx)
	record, err := repo.Find(ctx, input.StoreID, input.ProductID)
	if err != nil {
		return nil, err
	}

	previous := record.CurrentStock
	newStock := previous
	switch input.ChangeType {
	case enums.StockChangeRestock:
		newStock = previous + input.Quantity
	case enums.StockChangeAdjustment:
		newStock = previous + input.Quantity
	default:
		newStock = previous - input.Quantity
	}
	if newStock < record.ReservedStock {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mutation would drop available stock below zero")
	}
	if record.MaxCapacity > 0 && newStock > record.MaxCapacity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mutation exceeds the record's max capacity")
	}

	at := s.now().UTC()
	updates := map[string]any{"current_stock": newStock}
	switch input.ChangeType {
	case enums.StockChangeSale:
		updates["last_sale_at"] = at
	case enums.StockChangeRestock:
		updates["last_restock_at"] = at
	}
	if err := repo.UpdateStock(ctx, input.StoreID, input.ProductID, updates); err != nil {
		return nil, err
	}
	record.CurrentStock = newStock

	result := &MutationResult{
		Record:        record,
		PreviousStock: previous,
		NewStock:      newStock,
	}
	mutation := threshold.Mutation{
		StoreID:       input.StoreID,
		ProductID:     input.ProductID,
		PreviousStock: previous,
		NewStock:      newStock,
		ChangeType:    input.ChangeType,
	}
	if signal, emitted := threshold.Evaluate(mutation, *record, at); emitted {
		result.Signal = signal
	}
	return result, nil
}

func (s *service) publishMutationEvents(ctx context.Context, changeType enums.StockChangeType, result *MutationResult) error {
	ctx = s.logg.WithStoreID(ctx, result.Record.StoreID)
	ctx = s.logg.WithProductID(ctx, result.Record.ProductID)

	update := payloads.InventoryUpdated{
		StoreID:       result.Record.StoreID,
		ProductID:     result.Record.ProductID,
		CurrentStock:  result.NewStock,
		PreviousStock: result.PreviousStock,
		ChangeType:    changeType,
		OccurredAt:    s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, s.topics.InventoryUpdates, update.StoreID, update); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish inventory update")
	}

	if result.Signal == nil {
		return nil
	}
	if err := s.publisher.Publish(ctx, s.topics.RestockSignals, result.Signal.StoreID, *result.Signal); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish restock signal")
	}
	s.pipeline.IncSignalEmitted(result.Signal.Priority.String())
	s.logg.Info(s.logg.WithField(ctx, "priority", result.Signal.Priority.String()), "restock signal emitted")
	return nil
}

func newID(prefix string) string {
	return prefix + "_" + strings.ToUpper(uuid.NewString()[:8])
}

func decimalFromInt(v int) decimal.Decimal {
	return decimal.NewFromInt(int64(v))
}
