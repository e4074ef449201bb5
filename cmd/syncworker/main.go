package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rockcreekarms/ordersync-backend/internal/catalog"
	"github.com/rockcreekarms/ordersync-backend/internal/compliance"
	"github.com/rockcreekarms/ordersync-backend/internal/crmproducts"
	"github.com/rockcreekarms/ordersync-backend/internal/ordersync"
	"github.com/rockcreekarms/ordersync-backend/internal/searchindex"
	"github.com/rockcreekarms/ordersync-backend/pkg/config"
	"github.com/rockcreekarms/ordersync-backend/pkg/crm"
	"github.com/rockcreekarms/ordersync-backend/pkg/db"
	"github.com/rockcreekarms/ordersync-backend/pkg/logger"
	"github.com/rockcreekarms/ordersync-backend/pkg/metrics"
	"github.com/rockcreekarms/ordersync-backend/pkg/pubsub"
	"github.com/rockcreekarms/ordersync-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "sync-worker"

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	syncMetrics := metrics.NewSyncMetrics(prometheus.DefaultRegisterer)

	tokens, err := crm.NewTokenProvider(cfg.CRM, logg)
	requireResource(ctx, logg, "crm token provider", err)
	crmClient, err := crm.NewClient(context.Background(), cfg.CRM, tokens, logg, syncMetrics)
	requireResource(ctx, logg, "crm client", err)

	index := searchindex.NewRedisIndex(redisClient, logg)
	catalogStore, err := catalog.NewStore(dbClient, index, logg)
	requireResource(ctx, logg, "catalog store", err)
	resolver, err := catalog.NewResolver(catalogStore, syncMetrics, logg)
	requireResource(ctx, logg, "catalog resolver", err)

	holds, err := compliance.NewService(compliance.NewRepository(dbClient.DB()), cfg.Compliance, syncMetrics, logg)
	requireResource(ctx, logg, "compliance service", err)

	productGateway, err := crmproducts.NewGateway(crmClient, catalogStore, logg)
	requireResource(ctx, logg, "crm product gateway", err)

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
	requireResource(ctx, logg, "sync service", err)

	syncConsumer, err := ordersync.NewConsumer(syncService, pubsubClient.OrdersSubscription(), logg)
	requireResource(ctx, logg, "sync consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"env":         cfg.App.Env,
	})
	logg.Info(runCtx, "sync worker ready")

	if err := syncConsumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "sync worker not working", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
