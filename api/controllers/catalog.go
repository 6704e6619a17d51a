package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/andresvaldez/warehouse-backend/api/responses"
	"github.com/andresvaldez/warehouse-backend/api/validators"
	"github.com/andresvaldez/warehouse-backend/internal/catalog"
	"github.com/andresvaldez/warehouse-backend/pkg/db/models"
	"github.com/andresvaldez/warehouse-backend/pkg/enums"
	pkgerrors "github.com/andresvaldez/warehouse-backend/pkg/errors"
	"github.com/andresvaldez/warehouse-backend/pkg/logger"
	"github.com/andresvaldez/warehouse-backend/pkg/pagination"
)

type createProductRequest struct {
	ProductID  string  `json:"product_id" validate:"required"`
	Name       string  `json:"name" validate:"required"`
	Category   string  `json:"category" validate:"required"`
	Price      string  `json:"price" validate:"required"`
	Weight     float64 `json:"weight" validate:"gte=0"`
	Length     float64 `json:"length" validate:"gte=0"`
	Width      float64 `json:"width" validate:"gte=0"`
	Height     float64 `json:"height" validate:"gte=0"`
	Barcode    *string `json:"barcode,omitempty"`
	SupplierID *string `json:"supplier_id,omitempty"`
}

// ProductCreate registers a product in the catalog.
func ProductCreate(repo catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category := enums.ProductCategory(payload.Category)
		if !category.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown category"))
			return
		}
		price, err := decimal.NewFromString(payload.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price"))
			return
		}

		product, err := repo.CreateProduct(r.Context(), &models.Product{
			ProductID:  payload.ProductID,
			Name:       payload.Name,
			Category:   category,
			Price:      price,
			Weight:     payload.Weight,
			Length:     payload.Length,
			Width:      payload.Width,
			Height:     payload.Height,
			Barcode:    payload.Barcode,
			SupplierID: payload.SupplierID,
			IsActive:   true,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// ProductGet returns one product by id.
func ProductGet(repo catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product, err := repo.GetProduct(r.Context(), chi.URLParam(r, "productID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ProductList returns the cursor-paginated catalog.
func ProductList(repo catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		products, next, err := repo.ListProducts(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"products": products, "next_cursor": next})
	}
}

type createStoreRequest struct {
	StoreID     string  `json:"store_id" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Street      string  `json:"street,omitempty"`
	City        string  `json:"city,omitempty"`
	State       string  `json:"state,omitempty"`
	PostalCode  string  `json:"postal_code,omitempty"`
	ManagerName *string `json:"manager_name,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	MaxWeight   float64 `json:"max_weight" validate:"gte=0"`
	MaxVolume   float64 `json:"max_volume" validate:"gte=0"`
}

// StoreCreate registers a retail store.
func StoreCreate(repo catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createStoreRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		store, err := repo.CreateStore(r.Context(), &models.Store{
			StoreID:     payload.StoreID,
			Name:        payload.Name,
			Street:      payload.Street,
			City:        payload.City,
			State:       payload.State,
			PostalCode:  payload.PostalCode,
			Status:      enums.StoreStatusActive,
			ManagerName: payload.ManagerName,
			Phone:       payload.Phone,
			Email:       payload.Email,
			MaxWeight:   payload.MaxWeight,
			MaxVolume:   payload.MaxVolume,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, store)
	}
}

// StoreGet returns one store by id.
func StoreGet(repo catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := repo.GetStore(r.Context(), chi.URLParam(r, "storeID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, store)
	}
}

// StoreList returns cursor-paginated stores.
func StoreList(repo catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stores, next, err := repo.ListStores(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"stores": stores, "next_cursor": next})
	}
}
