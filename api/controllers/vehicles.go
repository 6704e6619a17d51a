package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andresvaldez/warehouse-backend/api/responses"
	"github.com/andresvaldez/warehouse-backend/api/validators"
	"github.com/andresvaldez/warehouse-backend/internal/vehicles"
	"github.com/andresvaldez/warehouse-backend/pkg/db/models"
	"github.com/andresvaldez/warehouse-backend/pkg/logger"
	"github.com/andresvaldez/warehouse-backend/pkg/pagination"
)

type createVehicleRequest struct {
	VehicleID         string  `json:"vehicle_id" validate:"required"`
	LicensePlate      string  `json:"license_plate" validate:"required"`
	VehicleType       string  `json:"vehicle_type" validate:"required"`
	MaxWeightCapacity float64 `json:"max_weight_capacity" validate:"required,gt=0"`
	MaxVolumeCapacity float64 `json:"max_volume_capacity" validate:"required,gt=0"`
	DriverID          *string `json:"driver_id,omitempty"`
}

// VehicleCreate registers a vehicle into the fleet, available by default.
func VehicleCreate(repo vehicles.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createVehicleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vehicle, err := repo.Create(r.Context(), &models.Vehicle{
			VehicleID:         payload.VehicleID,
			LicensePlate:      payload.LicensePlate,
			VehicleType:       payload.VehicleType,
			MaxWeightCapacity: payload.MaxWeightCapacity,
			MaxVolumeCapacity: payload.MaxVolumeCapacity,
			DriverID:          payload.DriverID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, vehicle)
	}
}

// VehicleGet returns one vehicle by id.
func VehicleGet(repo vehicles.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vehicle, err := repo.Find(r.Context(), chi.URLParam(r, "vehicleID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vehicle)
	}
}

// VehicleList returns the cursor-paginated fleet.
func VehicleList(repo vehicles.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		fleet, next, err := repo.List(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"vehicles": fleet, "next_cursor": next})
	}
}

type allocateVehiclesRequest struct {
	RequiredVolume float64 `json:"required_volume" validate:"gte=0"`
	RequiredWeight float64 `json:"required_weight" validate:"gte=0"`
}

// VehicleAllocate runs the greedy capacity assignment against the currently
// available fleet without mutating vehicle state. Callers feed the returned
// assignments into the delivery plan executor.
func VehicleAllocate(repo vehicles.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload allocateVehiclesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		fleet, err := repo.ListAvailable(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pool := make([]vehicles.PoolVehicle, 0, len(fleet))
		for _, vehicle := range fleet {
			pool = append(pool, vehicles.PoolVehicle{
				VehicleID:       vehicle.VehicleID,
				AvailableVolume: vehicle.AvailableVolumeCapacity(),
				AvailableWeight: vehicle.AvailableWeightCapacity(),
			})
		}

		result, err := vehicles.AllocateCapacity(payload.RequiredVolume, payload.RequiredWeight, pool)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
