package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rockcreekarms/ordersync-backend/api/controllers"
	"github.com/rockcreekarms/ordersync-backend/api/middleware"
	"github.com/rockcreekarms/ordersync-backend/pkg/config"
	"github.com/rockcreekarms/ordersync-backend/pkg/db"
	"github.com/rockcreekarms/ordersync-backend/pkg/logger"
	"github.com/rockcreekarms/ordersync-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	intakeService controllers.IntakeService,
	syncService controllers.SyncService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var redisP redis.Pinger
	if redisClient != nil {
		redisP = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/orders", func(r chi.Router) {
		submit := controllers.SubmitOrder(intakeService, logg)
		if redisClient != nil {
			intakeLimit := middleware.RateLimit(
				redisClient,
				"intake",
				cfg.RateLimit.IntakeLimit,
				cfg.RateLimit.IntakeWindow,
				logg,
			)
			r.With(intakeLimit).Post("/", submit)
		} else {
			r.Post("/", submit)
		}
		r.Post("/{orderId}/sync", controllers.SyncOrder(syncService, logg))
		r.Get("/{orderId}", controllers.OrderStatus(intakeService, logg))
	})

	return r
}
