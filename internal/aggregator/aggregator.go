package aggregator

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/andresvaldez/warehouse-backend/internal/catalog"
	"github.com/andresvaldez/warehouse-backend/internal/fulfillment"
	"github.com/andresvaldez/warehouse-backend/pkg/config"
	"github.com/andresvaldez/warehouse-backend/pkg/db/models"
	"github.com/andresvaldez/warehouse-backend/pkg/enums"
	pkgerrors "github.com/andresvaldez/warehouse-backend/pkg/errors"
	"github.com/andresvaldez/warehouse-backend/pkg/eventlog"
	"github.com/andresvaldez/warehouse-backend/pkg/eventlog/payloads"
	"github.com/andresvaldez/warehouse-backend/pkg/logger"
	"github.com/andresvaldez/warehouse-backend/pkg/metrics"
)

const consumerName = "aggregator"

// processedGuard is the redis-backed replay guard, narrowed for testing.
type processedGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, businessKey string) (bool, error)
	Delete(ctx context.Context, consumer, businessKey string) error
}

// window is one aggregation batch: signals keyed by store then product, so a
// later signal for the same (store, product) replaces the earlier one.
type window struct {
	start   time.Time
	signals map[string]map[string]payloads.RestockSignal
	count   int
}

func (w *window) key() string {
	return strconv.FormatInt(w.start.Unix(), 10)
}

// Service consolidates restock signals into one fulfillment request per store
// per aggregation window. Windows are derived from each signal's emitted_at,
// so replaying the log rebuilds the same windows and the (store_id,
// window_key) unique index keeps creation idempotent.
type Service struct {
	catalog   catalog.Accessor
	requests  fulfillment.Repository
	publisher eventlog.Publisher
	guard     processedGuard
	cfg       config.AggregatorConfig
	topic     string
	logg      *logger.Logger
	pipeline  *metrics.PipelineMetrics
	now       func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// NewService wires the aggregator with its collaborators. guard may be nil
// when redis is not available; the unique index still provides idempotence.
func NewService(catalogAccessor catalog.Accessor, requests fulfillment.Repository, publisher eventlog.Publisher, guard processedGuard, cfg config.AggregatorConfig, fulfillmentTopic string, logg *logger.Logger, pipeline *metrics.PipelineMetrics) *Service {
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = 15 * time.Second
	}
	if cfg.WindowMaxCount <= 0 {
		cfg.WindowMaxCount = 100
	}
	return &Service{
		catalog:   catalogAccessor,
		requests:  requests,
		publisher: publisher,
		guard:     guard,
		cfg:       cfg,
		topic:     fulfillmentTopic,
		logg:      logg,
		pipeline:  pipeline,
		now:       time.Now,
		windows:   make(map[string]*window),
	}
}

// HandleMessage is the event-log consumer entrypoint for the restock-signals
// topic.
func (s *Service) HandleMessage(ctx context.Context, msg eventlog.Message) error {
	var signal payloads.RestockSignal
	if err := payloads.Decode(msg.Value, &signal); err != nil {
		// Malformed signals are rejected, not retried: redelivery cannot fix them.
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dropping malformed restock signal")
		return nil
	}
	return s.Add(ctx, signal)
}

// Add places the signal into its window and flushes any window that filled up.
func (s *Service) Add(ctx context.Context, signal payloads.RestockSignal) error {
	if err := signal.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid restock signal")
	}

	s.mu.Lock()
	start := signal.EmittedAt.UTC().Truncate(s.cfg.WindowDuration)
	key := strconv.FormatInt(start.Unix(), 10)
	win, ok := s.windows[key]
	if !ok {
		win = &window{start: start, signals: make(map[string]map[string]payloads.RestockSignal)}
		s.windows[key] = win
	}
	if _, ok := win.signals[signal.StoreID]; !ok {
		win.signals[signal.StoreID] = make(map[string]payloads.RestockSignal)
	}
	// Last writer wins per (store, product) within a window.
	if _, seen := win.signals[signal.StoreID][signal.ProductID]; !seen {
		win.count++
	}
	win.signals[signal.StoreID][signal.ProductID] = signal

	var full *window
	if win.count >= s.cfg.WindowMaxCount {
		full = win
		delete(s.windows, key)
	}
	s.mu.Unlock()

	if full != nil {
		return s.flush(ctx, full)
	}
	return nil
}

// FlushDue closes every window whose time bound has passed. The worker calls
// this on a ticker.
func (s *Service) FlushDue(ctx context.Context) error {
	cutoff := s.now().UTC().Add(-s.cfg.WindowDuration)

	s.mu.Lock()
	var due []*window
	for key, win := range s.windows {
		if win.start.Before(cutoff) || win.start.Equal(cutoff) {
			due = append(due, win)
			delete(s.windows, key)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].start.Before(due[j].start) })
	var errs []error
	for _, win := range due {
		if err := s.flush(ctx, win); err != nil {
			errs = append(errs, err)
		}
	}
	return multierr.Combine(errs...)
}

// FlushAll drains every open window, used on shutdown.
func (s *Service) FlushAll(ctx context.Context) error {
	s.mu.Lock()
	var all []*window
	for key, win := range s.windows {
		all = append(all, win)
		delete(s.windows, key)
	}
	s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].start.Before(all[j].start) })
	var errs []error
	for _, win := range all {
		if err := s.flush(ctx, win); err != nil {
			errs = append(errs, err)
		}
	}
	return multierr.Combine(errs...)
}

func (s *Service) flush(ctx context.Context, win *window) error {
	stores := make([]string, 0, len(win.signals))
	for storeID := range win.signals {
		stores = append(stores, storeID)
	}
	sort.Strings(stores)

	for _, storeID := range stores {
		if err := s.buildRequest(ctx, storeID, win); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) buildRequest(ctx context.Context, storeID string, win *window) error {
	ctx = s.logg.WithStoreID(ctx, storeID)
	windowKey := win.key()

	if s.guard != nil {
		already, err := s.guard.CheckAndMarkProcessed(ctx, consumerName, storeID+":"+windowKey)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check aggregation replay guard")
		}
		if already {
			s.logg.Info(ctx, "window already aggregated, skipping")
			return nil
		}
	}

	group := win.signals[storeID]
	products := make([]string, 0, len(group))
	for productID := range group {
		products = append(products, productID)
	}
	sort.Strings(products)

	request := &models.FulfillmentRequest{
		RequestID: newID("FUL"),
		StoreID:   storeID,
		WindowKey: windowKey,
		Status:    enums.RequestStatusPending,
	}
	top := enums.PriorityLow
	for _, productID := range products {
		signal := group[productID]
		line, ok := s.buildLine(ctx, signal)
		if !ok {
			continue
		}
		request.LineItems = append(request.LineItems, line)
		if signal.Priority.AtLeast(top) {
			top = signal.Priority
		}
	}
	if len(request.LineItems) == 0 {
		s.logg.Warn(ctx, "aggregation window produced no usable line items")
		return nil
	}

	if _, err := s.requests.Create(ctx, request); err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
			// A prior run created this request but may have died before its
			// event went out. Re-publish from the stored row so replay
			// converges; the orchestrator's state machine absorbs duplicates.
			existing, findErr := s.requests.FindByWindow(ctx, storeID, windowKey)
			if findErr != nil {
				s.unmark(ctx, storeID, windowKey)
				return findErr
			}
			if err := s.publishRequested(ctx, existing); err != nil {
				s.unmark(ctx, storeID, windowKey)
				return err
			}
			s.logg.Info(ctx, "fulfillment request already existed for window, event re-published")
			return nil
		}
		s.unmark(ctx, storeID, windowKey)
		return err
	}

	if err := s.publishRequested(ctx, request); err != nil {
		s.unmark(ctx, storeID, windowKey)
		return err
	}

	s.pipeline.IncRequestCreated(top.String())
	s.logg.Info(s.logg.WithField(ctx, "request_id", request.RequestID), "fulfillment request aggregated")
	return nil
}

func (s *Service) publishRequested(ctx context.Context, request *models.FulfillmentRequest) error {
	event := payloads.FulfillmentRequested{
		RequestID: request.RequestID,
		StoreID:   request.StoreID,
		WindowKey: request.WindowKey,
		CreatedAt: s.now().UTC(),
	}
	for _, line := range request.LineItems {
		event.LineItems = append(event.LineItems, payloads.RequestedLine{
			ProductID:    line.ProductID,
			RequestedQty: line.RequestedQty,
			Volume:       line.Volume,
			Weight:       line.Weight,
			Priority:     line.Priority,
		})
	}
	if err := s.publisher.Publish(ctx, s.topic, request.StoreID, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish fulfillment request")
	}
	return nil
}

// unmark rolls the replay marker back so a redelivered window is retried
// instead of skipped after a mid-flush failure.
func (s *Service) unmark(ctx context.Context, storeID, windowKey string) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Delete(ctx, consumerName, storeID+":"+windowKey); err != nil {
		s.logg.Error(ctx, "failed to clear aggregation replay marker", err)
	}
}

// buildLine resolves the product's physical attributes. A catalog miss skips
// the line with a warning; missing dimensions degrade to zero volume.
func (s *Service) buildLine(ctx context.Context, signal payloads.RestockSignal) (models.FulfillmentLineItem, bool) {
	ctx = s.logg.WithProductID(ctx, signal.ProductID)

	product, err := s.catalog.GetProduct(ctx, signal.ProductID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "skipping line item, product lookup failed")
		return models.FulfillmentLineItem{}, false
	}

	unitVolume := product.Volume()
	if !product.HasDimensions() {
		s.logg.Warn(ctx, "product has no dimensions, using zero volume")
	}

	return models.FulfillmentLineItem{
		ProductID:    signal.ProductID,
		RequestedQty: signal.RequestedQty,
		Volume:       unitVolume * float64(signal.RequestedQty),
		Weight:       product.Weight * float64(signal.RequestedQty),
		Priority:     signal.Priority,
	}, true
}

func newID(prefix string) string {
	return prefix + "_" + strings.ToUpper(uuid.NewString()[:8])
}
