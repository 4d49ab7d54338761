package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sellaro-dev/sellaro-backend/api/controllers"
	"github.com/sellaro-dev/sellaro-backend/api/middleware"
	adminsvc "github.com/sellaro-dev/sellaro-backend/internal/admin"
	checkoutsvc "github.com/sellaro-dev/sellaro-backend/internal/checkout"
	ordersvc "github.com/sellaro-dev/sellaro-backend/internal/orders"
	walletsvc "github.com/sellaro-dev/sellaro-backend/internal/wallet"
	"github.com/sellaro-dev/sellaro-backend/pkg/config"
	"github.com/sellaro-dev/sellaro-backend/pkg/db"
	"github.com/sellaro-dev/sellaro-backend/pkg/logger"
	"github.com/sellaro-dev/sellaro-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	cache redis.Pinger,
	checkoutService checkoutsvc.Service,
	ordersService ordersvc.Service,
	walletService walletsvc.Service,
	adminService adminsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Identity(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, cache, logg))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireBuyer(logg))
			r.Post("/checkout", controllers.Checkout(checkoutService, logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.ListMyOrders(ordersService, logg))
				r.Get("/{orderID}", controllers.GetOrder(ordersService, logg))
			})
			r.Post("/sub-orders/{subOrderID}/pay", controllers.PaySubOrder(ordersService, logg))
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireVendor(logg))
			r.Route("/sub-orders", func(r chi.Router) {
				r.Get("/", controllers.ListVendorSubOrders(ordersService, logg))
				r.Post("/{subOrderID}/fulfill", controllers.StartFulfillment(ordersService, logg))
				r.Post("/{subOrderID}/complete", controllers.CompleteSubOrder(ordersService, logg))
				r.Post("/{subOrderID}/cancel", controllers.CancelSubOrder(ordersService, logg))
				r.Post("/{subOrderID}/refund", controllers.RefundSubOrder(ordersService, logg))
			})
			r.Route("/wallet", func(r chi.Router) {
				r.Get("/balance", controllers.WalletBalances(walletService, logg))
				r.Get("/statement", controllers.WalletStatement(walletService, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.RequireAdmin(logg))
		r.Get("/orders", controllers.AdminListOrders(adminService, logg))
		r.Get("/vendors/{vendorStoreID}/wallet", controllers.AdminVendorWalletLog(adminService, logg))
		r.Route("/sub-orders", func(r chi.Router) {
			r.Post("/{subOrderID}/cancel", controllers.CancelSubOrder(ordersService, logg))
			r.Post("/{subOrderID}/refund", controllers.RefundSubOrder(ordersService, logg))
		})
	})

	return r
}
