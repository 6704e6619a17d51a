package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andresvaldez/warehouse-backend/api/controllers"
	"github.com/andresvaldez/warehouse-backend/api/middleware"
	"github.com/andresvaldez/warehouse-backend/internal/catalog"
	"github.com/andresvaldez/warehouse-backend/internal/delivery"
	"github.com/andresvaldez/warehouse-backend/internal/fulfillment"
	"github.com/andresvaldez/warehouse-backend/internal/inventory"
	"github.com/andresvaldez/warehouse-backend/internal/orchestrator"
	"github.com/andresvaldez/warehouse-backend/internal/vehicles"
	"github.com/andresvaldez/warehouse-backend/pkg/config"
	"github.com/andresvaldez/warehouse-backend/pkg/db"
	"github.com/andresvaldez/warehouse-backend/pkg/logger"
	"github.com/andresvaldez/warehouse-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient redis.Pinger,
	registry *prometheus.Registry,
	inventoryService inventory.Service,
	catalogRepo catalog.Repository,
	fulfillmentRepo fulfillment.Repository,
	orchestratorService *orchestrator.Service,
	vehicleRepo vehicles.Repository,
	deliveryService *delivery.Service,
	deliveryRepo delivery.Repository,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/inventory", func(r chi.Router) {
			r.Post("/", controllers.InventoryCreate(inventoryService, logg))
			r.Get("/", controllers.InventoryList(inventoryService, logg))
			r.Post("/mutations", controllers.InventoryMutate(inventoryService, logg))
			r.Route("/{storeID}/{productID}", func(r chi.Router) {
				r.Get("/", controllers.InventoryGet(inventoryService, logg))
				r.Put("/thresholds", controllers.InventoryUpdateThresholds(inventoryService, logg))
			})
		})

		r.Post("/sales", controllers.SaleRecord(inventoryService, logg))
		r.Post("/restock-signals", controllers.RestockSignalSubmit(inventoryService, logg))

		r.Route("/fulfillment/requests", func(r chi.Router) {
			r.Get("/", controllers.FulfillmentList(fulfillmentRepo, logg))
			r.Get("/{requestID}", controllers.FulfillmentGet(fulfillmentRepo, logg))
			r.Post("/{requestID}/process", controllers.FulfillmentProcess(orchestratorService, fulfillmentRepo, logg))
		})

		r.Route("/vehicles", func(r chi.Router) {
			r.Post("/", controllers.VehicleCreate(vehicleRepo, logg))
			r.Get("/", controllers.VehicleList(vehicleRepo, logg))
			r.Post("/allocate", controllers.VehicleAllocate(vehicleRepo, logg))
			r.Get("/{vehicleID}", controllers.VehicleGet(vehicleRepo, logg))
		})

		r.Route("/delivery-plans", func(r chi.Router) {
			r.Post("/execute", controllers.DeliveryExecute(deliveryService, logg))
			r.Get("/", controllers.DeliveryList(deliveryRepo, logg))
			r.Route("/{planID}", func(r chi.Router) {
				r.Get("/", controllers.DeliveryGet(deliveryRepo, logg))
				r.Post("/complete", controllers.DeliveryComplete(deliveryService, logg))
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.ProductCreate(catalogRepo, logg))
			r.Get("/", controllers.ProductList(catalogRepo, logg))
			r.Get("/{productID}", controllers.ProductGet(catalogRepo, logg))
		})

		r.Route("/stores", func(r chi.Router) {
			r.Post("/", controllers.StoreCreate(catalogRepo, logg))
			r.Get("/", controllers.StoreList(catalogRepo, logg))
			r.Get("/{storeID}", controllers.StoreGet(catalogRepo, logg))
		})
	})

	return r
}
