package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rockcreekarms/ordersync-backend/api/routes"
	"github.com/rockcreekarms/ordersync-backend/internal/catalog"
	"github.com/rockcreekarms/ordersync-backend/internal/compliance"
	"github.com/rockcreekarms/ordersync-backend/internal/crmproducts"
	"github.com/rockcreekarms/ordersync-backend/internal/orders"
	"github.com/rockcreekarms/ordersync-backend/internal/ordersync"
	"github.com/rockcreekarms/ordersync-backend/internal/searchindex"
	"github.com/rockcreekarms/ordersync-backend/pkg/config"
	"github.com/rockcreekarms/ordersync-backend/pkg/crm"
	"github.com/rockcreekarms/ordersync-backend/pkg/db"
	"github.com/rockcreekarms/ordersync-backend/pkg/logger"
	"github.com/rockcreekarms/ordersync-backend/pkg/metrics"
	"github.com/rockcreekarms/ordersync-backend/pkg/migrate"
	"github.com/rockcreekarms/ordersync-backend/pkg/pubsub"
	"github.com/rockcreekarms/ordersync-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	syncMetrics := metrics.NewSyncMetrics(prometheus.DefaultRegisterer)

	tokens, err := crm.NewTokenProvider(cfg.CRM, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create crm token provider", err)
		os.Exit(1)
	}
	crmClient, err := crm.NewClient(context.Background(), cfg.CRM, tokens, logg, syncMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create crm client", err)
		os.Exit(1)
	}

	index := searchindex.NewRedisIndex(redisClient, logg)
	catalogStore, err := catalog.NewStore(dbClient, index, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog store", err)
		os.Exit(1)
	}
	resolver, err := catalog.NewResolver(catalogStore, syncMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog resolver", err)
		os.Exit(1)
	}

	holds, err := compliance.NewService(compliance.NewRepository(dbClient.DB()), cfg.Compliance, syncMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create compliance service", err)
		os.Exit(1)
	}

	productGateway, err := crmproducts.NewGateway(crmClient, catalogStore, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create crm product gateway", err)
		os.Exit(1)
	}

	events, err := ordersync.NewPublisher(pubsubClient.OrdersPublisher(), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order event publisher", err)
		os.Exit(1)
	}

	orderStore, err := orders.NewStore(dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create order store", err)
		os.Exit(1)
	}
	intakeService, err := orders.NewService(orderStore, redisClient, events, cfg.Numbering, syncMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create intake service", err)
		os.Exit(1)
	}

	syncService, err := ordersync.NewService(
		ordersync.NewRepository(dbClient.DB()),
		resolver,
		productGateway,
		crmClient,
		crmClient,
		holds,
		syncMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create sync service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, intakeService, syncService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
