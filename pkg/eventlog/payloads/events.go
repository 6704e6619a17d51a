package payloads

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andresvaldez/warehouse-backend/pkg/enums"
)

// RestockSignal is emitted by the threshold engine when a store's stock for
// one product crosses a threshold. Immutable once emitted.
type RestockSignal struct {
	StoreID      string         `json:"store_id"`
	ProductID    string         `json:"product_id"`
	RequestedQty int            `json:"requested_quantity"`
	Priority     enums.Priority `json:"priority"`
	Reason       string         `json:"reason"`
	EmittedAt    time.Time      `json:"emitted_at"`
}

// Validate rejects signals missing required fields.
func (s RestockSignal) Validate() error {
	if s.StoreID == "" {
		return errors.New("restock signal: store_id is required")
	}
	if s.ProductID == "" {
		return errors.New("restock signal: product_id is required")
	}
	if s.RequestedQty <= 0 {
		return fmt.Errorf("restock signal: requested_quantity must be positive, got %d", s.RequestedQty)
	}
	if !s.Priority.IsValid() {
		return fmt.Errorf("restock signal: unknown priority %q", s.Priority)
	}
	if s.EmittedAt.IsZero() {
		return errors.New("restock signal: emitted_at is required")
	}
	return nil
}

// InventoryUpdated mirrors a store inventory mutation onto the event log.
type InventoryUpdated struct {
	StoreID       string                `json:"store_id"`
	ProductID     string                `json:"product_id"`
	CurrentStock  int                   `json:"current_stock"`
	PreviousStock int                   `json:"previous_stock"`
	ChangeType    enums.StockChangeType `json:"change_type"`
	OccurredAt    time.Time             `json:"occurred_at"`
}

// Validate rejects updates missing required fields.
func (u InventoryUpdated) Validate() error {
	if u.StoreID == "" {
		return errors.New("inventory update: store_id is required")
	}
	if u.ProductID == "" {
		return errors.New("inventory update: product_id is required")
	}
	if !u.ChangeType.IsValid() {
		return fmt.Errorf("inventory update: unknown change type %q", u.ChangeType)
	}
	return nil
}

// RequestedLine is one product demand line in a fulfillment request event.
type RequestedLine struct {
	ProductID    string         `json:"product_id"`
	RequestedQty int            `json:"requested_quantity"`
	Volume       float64        `json:"volume"`
	Weight       float64        `json:"weight"`
	Priority     enums.Priority `json:"priority"`
}

// FulfillmentRequested is emitted by the aggregator, one per store per window.
type FulfillmentRequested struct {
	RequestID string          `json:"request_id"`
	StoreID   string          `json:"store_id"`
	WindowKey string          `json:"window_key"`
	LineItems []RequestedLine `json:"line_items"`
	CreatedAt time.Time       `json:"created_at"`
}

// Validate rejects requests missing required fields.
func (r FulfillmentRequested) Validate() error {
	if r.RequestID == "" {
		return errors.New("fulfillment request: request_id is required")
	}
	if r.StoreID == "" {
		return errors.New("fulfillment request: store_id is required")
	}
	if r.WindowKey == "" {
		return errors.New("fulfillment request: window_key is required")
	}
	if len(r.LineItems) == 0 {
		return errors.New("fulfillment request: at least one line item is required")
	}
	for i, line := range r.LineItems {
		if line.ProductID == "" {
			return fmt.Errorf("fulfillment request: line %d missing product_id", i)
		}
		if line.RequestedQty <= 0 {
			return fmt.Errorf("fulfillment request: line %d requested_quantity must be positive", i)
		}
	}
	return nil
}

// AllocatedLine is the per-product outcome in an allocation result event.
type AllocatedLine struct {
	ProductID    string `json:"product_id"`
	AllocatedQty int    `json:"allocated_quantity"`
	ErrorReason  string `json:"error_reason,omitempty"`
}

// AllocationResult is emitted by the orchestrator once a request reaches a
// terminal state.
type AllocationResult struct {
	RequestID    string              `json:"request_id"`
	StoreID      string              `json:"store_id"`
	AllocationID string              `json:"allocation_id,omitempty"`
	Status       enums.RequestStatus `json:"status"`
	Items        []AllocatedLine     `json:"items,omitempty"`
	OccurredAt   time.Time           `json:"occurred_at"`
}

// Validate rejects results missing required fields.
func (a AllocationResult) Validate() error {
	if a.RequestID == "" {
		return errors.New("allocation result: request_id is required")
	}
	if a.StoreID == "" {
		return errors.New("allocation result: store_id is required")
	}
	if err := a.Status.Validate(); err != nil {
		return fmt.Errorf("allocation result: %w", err)
	}
	return nil
}

type validatable interface {
	Validate() error
}

// Decode unmarshals raw event bytes into dest and rejects payloads that fail
// required-field validation.
func Decode(data []byte, dest validatable) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode event payload: %w", err)
	}
	return dest.Validate()
}
