package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/andresvaldez/warehouse-backend/api/responses"
	"github.com/andresvaldez/warehouse-backend/api/validators"
	"github.com/andresvaldez/warehouse-backend/internal/inventory"
	"github.com/andresvaldez/warehouse-backend/pkg/enums"
	pkgerrors "github.com/andresvaldez/warehouse-backend/pkg/errors"
	"github.com/andresvaldez/warehouse-backend/pkg/logger"
	"github.com/andresvaldez/warehouse-backend/pkg/pagination"
)

type createRecordRequest struct {
	StoreID           string  `json:"store_id" validate:"required"`
	ProductID         string  `json:"product_id" validate:"required"`
	CurrentStock      int     `json:"current_stock" validate:"gte=0"`
	ReservedStock     int     `json:"reserved_stock" validate:"gte=0"`
	CriticalThreshold int     `json:"critical_threshold" validate:"gte=0"`
	WarningThreshold  int     `json:"warning_threshold" validate:"gte=0"`
	ReorderThreshold  int     `json:"reorder_threshold" validate:"gte=0"`
	MaxCapacity       int     `json:"max_capacity" validate:"gt=0"`
	Location          *string `json:"location,omitempty"`
}

// InventoryCreate registers a store/product inventory record. Threshold
// ordering is enforced at the service boundary.
func InventoryCreate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createRecordRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.CreateRecord(r.Context(), inventory.CreateRecordInput{
			StoreID:           payload.StoreID,
			ProductID:         payload.ProductID,
			CurrentStock:      payload.CurrentStock,
			ReservedStock:     payload.ReservedStock,
			CriticalThreshold: payload.CriticalThreshold,
			WarningThreshold:  payload.WarningThreshold,
			ReorderThreshold:  payload.ReorderThreshold,
			MaxCapacity:       payload.MaxCapacity,
			Location:          payload.Location,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

// InventoryGet returns one inventory record by store and product.
func InventoryGet(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID := chi.URLParam(r, "storeID")
		productID := chi.URLParam(r, "productID")

		record, err := svc.GetRecord(r.Context(), storeID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// InventoryList returns cursor-paginated records, optionally scoped to a store.
func InventoryList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, next, err := svc.ListRecords(r.Context(), r.URL.Query().Get("store_id"), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"records": records, "next_cursor": next})
	}
}

type updateThresholdsRequest struct {
	CriticalThreshold int `json:"critical_threshold" validate:"gte=0"`
	WarningThreshold  int `json:"warning_threshold" validate:"gte=0"`
	ReorderThreshold  int `json:"reorder_threshold" validate:"gte=0"`
}

// InventoryUpdateThresholds replaces the three-tier thresholds on a record.
func InventoryUpdateThresholds(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload updateThresholdsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.UpdateThresholds(r.Context(),
			chi.URLParam(r, "storeID"), chi.URLParam(r, "productID"),
			payload.CriticalThreshold, payload.WarningThreshold, payload.ReorderThreshold)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

type mutationRequest struct {
	StoreID    string `json:"store_id" validate:"required"`
	ProductID  string `json:"product_id" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required"`
	ChangeType string `json:"change_type" validate:"required"`
}

// InventoryMutate applies one stock mutation and reports any restock signal
// it emitted.
func InventoryMutate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload mutationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		changeType := enums.StockChangeType(payload.ChangeType)
		if !changeType.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown change_type"))
			return
		}

		result, err := svc.ApplyMutation(r.Context(), inventory.MutationInput{
			StoreID:    payload.StoreID,
			ProductID:  payload.ProductID,
			Quantity:   payload.Quantity,
			ChangeType: changeType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"record":         result.Record,
			"previous_stock": result.PreviousStock,
			"new_stock":      result.NewStock,
			"restock_signal": result.Signal,
		})
	}
}

type saleRequest struct {
	StoreID   string  `json:"store_id" validate:"required"`
	ProductID string  `json:"product_id" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice string  `json:"unit_price" validate:"required"`
	Discount  string  `json:"discount,omitempty"`
	Tax       string  `json:"tax,omitempty"`
	CashierID *string `json:"cashier_id,omitempty"`
	Timestamp *string `json:"timestamp,omitempty"`
}

// SaleRecord books a point-of-sale transaction and applies the matching sale
// mutation in the same transaction.
func SaleRecord(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload saleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		unitPrice, err := decimal.NewFromString(payload.UnitPrice)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit_price"))
			return
		}
		discount, err := optionalDecimal(payload.Discount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount"))
			return
		}
		tax, err := optionalDecimal(payload.Tax)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tax"))
			return
		}

		timestamp := time.Now().UTC()
		if payload.Timestamp != nil {
			parsed, perr := time.Parse(time.RFC3339, *payload.Timestamp)
			if perr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, perr, "timestamp must be RFC 3339"))
				return
			}
			timestamp = parsed
		}

		sale, err := svc.RecordSale(r.Context(), inventory.SaleInput{
			StoreID:   payload.StoreID,
			ProductID: payload.ProductID,
			Quantity:  payload.Quantity,
			UnitPrice: unitPrice,
			Discount:  discount,
			Tax:       tax,
			CashierID: payload.CashierID,
			Timestamp: timestamp,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sale)
	}
}

func optionalDecimal(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
