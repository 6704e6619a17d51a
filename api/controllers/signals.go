package controllers

import (
	"net/http"
	"time"

	"github.com/andresvaldez/warehouse-backend/api/responses"
	"github.com/andresvaldez/warehouse-backend/api/validators"
	"github.com/andresvaldez/warehouse-backend/internal/inventory"
	"github.com/andresvaldez/warehouse-backend/pkg/enums"
	pkgerrors "github.com/andresvaldez/warehouse-backend/pkg/errors"
	"github.com/andresvaldez/warehouse-backend/pkg/eventlog/payloads"
	"github.com/andresvaldez/warehouse-backend/pkg/logger"
)

type restockSignalRequest struct {
	StoreID      string `json:"store_id" validate:"required"`
	ProductID    string `json:"product_id" validate:"required"`
	RequestedQty int    `json:"requested_quantity" validate:"required,gt=0"`
	Priority     string `json:"priority" validate:"required"`
	Reason       string `json:"reason,omitempty"`
}

// RestockSignalSubmit publishes a manual restock signal onto the event log,
// bypassing the threshold engine. Operators use it for known upcoming demand.
func RestockSignalSubmit(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload restockSignalRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		priority := enums.Priority(payload.Priority)
		if !priority.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown priority"))
			return
		}

		reason := payload.Reason
		if reason == "" {
			reason = "manual restock signal"
		}

		signal := payloads.RestockSignal{
			StoreID:      payload.StoreID,
			ProductID:    payload.ProductID,
			RequestedQty: payload.RequestedQty,
			Priority:     priority,
			Reason:       reason,
			EmittedAt:    time.Now().UTC(),
		}
		if err := svc.SubmitSignal(r.Context(), signal); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, signal)
	}
}
