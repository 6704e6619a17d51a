package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andresvaldez/warehouse-backend/api/responses"
	"github.com/andresvaldez/warehouse-backend/api/validators"
	"github.com/andresvaldez/warehouse-backend/internal/delivery"
	"github.com/andresvaldez/warehouse-backend/pkg/logger"
	"github.com/andresvaldez/warehouse-backend/pkg/pagination"
)

// DeliveryExecute creates an approved delivery plan, locks vehicles into
// loading and approves the referenced requests, all-or-nothing.
func DeliveryExecute(svc *delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload delivery.ExecuteInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plan, err := svc.Execute(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, plan)
	}
}

// DeliveryComplete releases the plan's vehicles and marks it completed.
func DeliveryComplete(svc *delivery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plan, err := svc.Complete(r.Context(), chi.URLParam(r, "planID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, plan)
	}
}

// DeliveryGet returns one plan with its items and vehicle assignments.
func DeliveryGet(repo delivery.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plan, err := repo.Find(r.Context(), chi.URLParam(r, "planID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, plan)
	}
}

// DeliveryList returns cursor-paginated plans.
func DeliveryList(repo delivery.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		plans, next, err := repo.List(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"plans": plans, "next_cursor": next})
	}
}
