package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sellaro-dev/sellaro-backend/api/routes"
	"github.com/sellaro-dev/sellaro-backend/internal/admin"
	"github.com/sellaro-dev/sellaro-backend/internal/cart"
	"github.com/sellaro-dev/sellaro-backend/internal/catalog"
	checkoutsvc "github.com/sellaro-dev/sellaro-backend/internal/checkout"
	"github.com/sellaro-dev/sellaro-backend/internal/orders"
	"github.com/sellaro-dev/sellaro-backend/internal/reservation"
	"github.com/sellaro-dev/sellaro-backend/internal/wallet"
	"github.com/sellaro-dev/sellaro-backend/pkg/config"
	"github.com/sellaro-dev/sellaro-backend/pkg/db"
	"github.com/sellaro-dev/sellaro-backend/pkg/logger"
	"github.com/sellaro-dev/sellaro-backend/pkg/metrics"
	"github.com/sellaro-dev/sellaro-backend/pkg/migrate"
	"github.com/sellaro-dev/sellaro-backend/pkg/payments"
	"github.com/sellaro-dev/sellaro-backend/pkg/redis"
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

	gateway, err := payments.NewSquareGateway(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create square gateway", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())

	cartService, err := cart.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	reservationService, err := reservation.NewService(catalogRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reservation service", err)
		os.Exit(1)
	}

	walletService, err := wallet.NewService(wallet.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(ordersRepo, dbClient, walletService, catalogRepo, gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	buyerLock, err := checkoutsvc.NewBuyerLock(redisClient, cfg.Checkout.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout lock", err)
		os.Exit(1)
	}

	commissionRate, err := cfg.Checkout.Rate()
	if err != nil {
		logg.Error(context.Background(), "invalid commission rate", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(
		cartService,
		reservationService,
		ordersRepo,
		dbClient,
		buyerLock,
		commissionRate,
		metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	adminService, err := admin.NewService(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create admin service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			checkoutService,
			ordersService,
			walletService,
			adminService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
