package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

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

type fakeCatalog struct {
	products map[string]*models.Product
}

func (f *fakeCatalog) GetProduct(_ context.Context, productID string) (*models.Product, error) {
	if p, ok := f.products[productID]; ok {
		return p, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (f *fakeCatalog) GetStore(_ context.Context, storeID string) (*models.Store, error) {
	return &models.Store{StoreID: storeID}, nil
}

type published struct {
	topic string
	key   string
	event payloads.FulfillmentRequested
}

type stubPublisher struct {
	events   []published
	failures int
}

func (p *stubPublisher) Publish(_ context.Context, topic, key string, payload any) error {
	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}
	event, _ := payload.(payloads.FulfillmentRequested)
	p.events = append(p.events, published{topic: topic, key: key, event: event})
	return nil
}

type stubGuard struct {
	marked map[string]bool
}

func (g *stubGuard) CheckAndMarkProcessed(_ context.Context, consumer, businessKey string) (bool, error) {
	if g.marked == nil {
		g.marked = make(map[string]bool)
	}
	key := consumer + ":" + businessKey
	if g.marked[key] {
		return true, nil
	}
	g.marked[key] = true
	return false, nil
}

func (g *stubGuard) Delete(_ context.Context, consumer, businessKey string) error {
	delete(g.marked, consumer+":"+businessKey)
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:aggregator_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.FulfillmentRequest{}, &models.FulfillmentLineItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*Service, *stubPublisher, *gorm.DB) {
	t.Helper()
	pub := &stubPublisher{}
	svc, db := newTestServiceWith(t, pub, nil)
	return svc, pub, db
}

func newTestServiceWith(t *testing.T, pub *stubPublisher, guard processedGuard) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	cat := &fakeCatalog{products: map[string]*models.Product{
		"PROD_001": {ProductID: "PROD_001", Weight: 0.4, Length: 10, Width: 5, Height: 4},
		"PROD_002": {ProductID: "PROD_002", Weight: 1.2},
	}}
	svc := NewService(cat, fulfillment.NewRepository(db), pub, guard,
		config.AggregatorConfig{WindowDuration: 15 * time.Second, WindowMaxCount: 100},
		"fulfillment-requests",
		logger.New(logger.Options{ServiceName: "aggregator-test"}),
		metrics.NewPipelineMetrics(nil))
	return svc, db
}

func signalAt(storeID, productID string, qty int, at time.Time) payloads.RestockSignal {
	return payloads.RestockSignal{
		StoreID:      storeID,
		ProductID:    productID,
		RequestedQty: qty,
		Priority:     enums.PriorityHigh,
		Reason:       "stock at or below warning threshold",
		EmittedAt:    at,
	}
}

func TestFlushBuildsOneRequestPerStore(t *testing.T) {
	t.Parallel()

	svc, pub, _ := newTestService(t)
	ctx := context.Background()
	at := time.Date(2026, 8, 10, 9, 0, 3, 0, time.UTC)

	for _, signal := range []payloads.RestockSignal{
		signalAt("STORE_001", "PROD_001", 10, at),
		signalAt("STORE_001", "PROD_002", 5, at.Add(time.Second)),
		signalAt("STORE_002", "PROD_001", 7, at.Add(2*time.Second)),
	} {
		if err := svc.Add(ctx, signal); err != nil {
			t.Fatalf("add signal: %v", err)
		}
	}
	if err := svc.FlushAll(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if len(pub.events) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(pub.events))
	}
	first := pub.events[0].event
	if first.StoreID != "STORE_001" || len(first.LineItems) != 2 {
		t.Fatalf("unexpected first request %+v", first)
	}
	// PROD_001 is 10 units of 200 volume each; PROD_002 has no dimensions.
	if first.LineItems[0].Volume != 2000 || first.LineItems[1].Volume != 0 {
		t.Fatalf("unexpected volumes %+v", first.LineItems)
	}
	if pub.events[1].key != "STORE_002" {
		t.Fatalf("events must be keyed by store_id, got %q", pub.events[1].key)
	}
}

func TestLastWriterWinsWithinWindow(t *testing.T) {
	t.Parallel()

	svc, pub, _ := newTestService(t)
	ctx := context.Background()
	at := time.Date(2026, 8, 10, 9, 0, 3, 0, time.UTC)

	if err := svc.Add(ctx, signalAt("STORE_001", "PROD_001", 10, at)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Add(ctx, signalAt("STORE_001", "PROD_001", 25, at.Add(time.Second))); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.FlushAll(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 request, got %d", len(pub.events))
	}
	lines := pub.events[0].event.LineItems
	if len(lines) != 1 || lines[0].RequestedQty != 25 {
		t.Fatalf("expected the later signal to win, got %+v", lines)
	}
}

func TestReplayProducesAtMostOneRequestPerWindow(t *testing.T) {
	t.Parallel()

	pub := &stubPublisher{}
	svc, db := newTestServiceWith(t, pub, &stubGuard{})
	ctx := context.Background()
	at := time.Date(2026, 8, 10, 9, 0, 3, 0, time.UTC)

	if err := svc.Add(ctx, signalAt("STORE_001", "PROD_001", 10, at)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.FlushAll(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	// Replay the same signal, e.g. after a consumer restart from offset zero.
	if err := svc.Add(ctx, signalAt("STORE_001", "PROD_001", 10, at)); err != nil {
		t.Fatalf("replay add: %v", err)
	}
	if err := svc.FlushAll(ctx); err != nil {
		t.Fatalf("replay flush: %v", err)
	}

	var count int64
	if err := db.Model(&models.FulfillmentRequest{}).Count(&count).Error; err != nil {
		t.Fatalf("count requests: %v", err)
	}
	if count != 1 {
		t.Fatalf("replay must not duplicate requests, got %d", count)
	}
	if len(pub.events) != 1 {
		t.Fatalf("replay must not republish, got %d events", len(pub.events))
	}
}

func TestFlushRetriesWindowAfterPublishFailure(t *testing.T) {
	t.Parallel()

	pub := &stubPublisher{failures: 1}
	guard := &stubGuard{}
	svc, db := newTestServiceWith(t, pub, guard)
	ctx := context.Background()
	at := time.Date(2026, 8, 10, 9, 0, 3, 0, time.UTC)

	if err := svc.Add(ctx, signalAt("STORE_001", "PROD_001", 10, at)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.FlushAll(ctx); err == nil {
		t.Fatal("expected flush to fail while the broker is down")
	}
	if len(guard.marked) != 0 {
		t.Fatalf("failed flush must clear the replay marker, got %v", guard.marked)
	}

	// The offset was never committed, so the consumer redelivers the signal.
	if err := svc.Add(ctx, signalAt("STORE_001", "PROD_001", 10, at)); err != nil {
		t.Fatalf("redeliver: %v", err)
	}
	if err := svc.FlushAll(ctx); err != nil {
		t.Fatalf("flush after recovery: %v", err)
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected the event exactly once after recovery, got %d", len(pub.events))
	}
	lines := pub.events[0].event.LineItems
	if len(lines) != 1 || lines[0].RequestedQty != 10 {
		t.Fatalf("recovered event must carry the stored line items, got %+v", lines)
	}
	var count int64
	if err := db.Model(&models.FulfillmentRequest{}).Count(&count).Error; err != nil {
		t.Fatalf("count requests: %v", err)
	}
	if count != 1 {
		t.Fatalf("recovery must not duplicate the request, got %d", count)
	}
}

func TestCatalogMissSkipsOnlyThatLine(t *testing.T) {
	t.Parallel()

	svc, pub, _ := newTestService(t)
	ctx := context.Background()
	at := time.Date(2026, 8, 10, 9, 0, 3, 0, time.UTC)

	if err := svc.Add(ctx, signalAt("STORE_001", "PROD_MISSING", 4, at)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Add(ctx, signalAt("STORE_001", "PROD_001", 10, at.Add(time.Second))); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.FlushAll(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 request, got %d", len(pub.events))
	}
	lines := pub.events[0].event.LineItems
	if len(lines) != 1 || lines[0].ProductID != "PROD_001" {
		t.Fatalf("missing product must be skipped, got %+v", lines)
	}
}

func TestWindowMaxCountForcesFlush(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	pub := &stubPublisher{}
	cat := &fakeCatalog{products: map[string]*models.Product{
		"PROD_001": {ProductID: "PROD_001", Weight: 0.4},
		"PROD_002": {ProductID: "PROD_002", Weight: 1.2},
	}}
	svc := NewService(cat, fulfillment.NewRepository(db), pub, nil,
		config.AggregatorConfig{WindowDuration: time.Hour, WindowMaxCount: 2},
		"fulfillment-requests",
		logger.New(logger.Options{ServiceName: "aggregator-test"}),
		metrics.NewPipelineMetrics(nil))

	ctx := context.Background()
	at := time.Date(2026, 8, 10, 9, 0, 3, 0, time.UTC)
	if err := svc.Add(ctx, signalAt("STORE_001", "PROD_001", 10, at)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Add(ctx, signalAt("STORE_001", "PROD_002", 5, at.Add(time.Second))); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Count bound reached: flushed without any timer.
	if len(pub.events) != 1 {
		t.Fatalf("expected forced flush, got %d events", len(pub.events))
	}
}

func TestHandleMessageDropsMalformedPayloads(t *testing.T) {
	t.Parallel()

	svc, pub, _ := newTestService(t)
	err := svc.HandleMessage(context.Background(), eventlog.Message{Value: []byte(`{"store_id":""}`)})
	if err != nil {
		t.Fatalf("malformed payloads must be dropped, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatal("malformed payloads must not produce requests")
	}
}
