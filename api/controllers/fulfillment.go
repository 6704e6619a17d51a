package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andresvaldez/warehouse-backend/api/responses"
	"github.com/andresvaldez/warehouse-backend/api/validators"
	"github.com/andresvaldez/warehouse-backend/internal/fulfillment"
	"github.com/andresvaldez/warehouse-backend/internal/orchestrator"
	"github.com/andresvaldez/warehouse-backend/pkg/enums"
	pkgerrors "github.com/andresvaldez/warehouse-backend/pkg/errors"
	"github.com/andresvaldez/warehouse-backend/pkg/logger"
	"github.com/andresvaldez/warehouse-backend/pkg/pagination"
)

// FulfillmentList returns cursor-paginated requests, filterable by store and
// status.
func FulfillmentList(repo fulfillment.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := enums.RequestStatus(r.URL.Query().Get("status"))
		if status != "" && !status.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown status"))
			return
		}

		requests, next, err := repo.List(r.Context(), r.URL.Query().Get("store_id"), status, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"requests": requests, "next_cursor": next})
	}
}

// FulfillmentGet returns one request with its line items.
func FulfillmentGet(repo fulfillment.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		request, err := repo.Find(r.Context(), chi.URLParam(r, "requestID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// FulfillmentProcess is the operator retry trigger. It re-runs the request
// through the orchestrator regardless of the auto-process priority bar.
func FulfillmentProcess(svc *orchestrator.Service, repo fulfillment.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := chi.URLParam(r, "requestID")
		if err := svc.Process(r.Context(), requestID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := repo.Find(r.Context(), requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, request)
	}
}
