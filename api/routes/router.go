package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/velora-co/velora-backend/api/controllers"
	webhookcontrollers "github.com/velora-co/velora-backend/api/controllers/webhooks"
	"github.com/velora-co/velora-backend/api/middleware"
	"github.com/velora-co/velora-backend/internal/auth"
	"github.com/velora-co/velora-backend/internal/cart"
	"github.com/velora-co/velora-backend/internal/catalog"
	checkoutsvc "github.com/velora-co/velora-backend/internal/checkout"
	"github.com/velora-co/velora-backend/internal/inventory"
	"github.com/velora-co/velora-backend/internal/orders"
	"github.com/velora-co/velora-backend/internal/payments"
	squarewebhook "github.com/velora-co/velora-backend/internal/webhooks/square"
	"github.com/velora-co/velora-backend/pkg/auth/session"
	"github.com/velora-co/velora-backend/pkg/config"
	"github.com/velora-co/velora-backend/pkg/db"
	"github.com/velora-co/velora-backend/pkg/logger"
	"github.com/velora-co/velora-backend/pkg/metrics"
	"github.com/velora-co/velora-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	httpMetrics *metrics.HTTPMetrics,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionChecker session.AccessSessionChecker,
	authService auth.Service,
	registerService auth.RegisterService,
	catalogService catalog.Service,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	paymentsService payments.Service,
	inventoryService inventory.Service,
	squareClient webhookcontrollers.SigningClient,
	squareWebhookService webhookcontrollers.SquareWebhookService,
	squareWebhookGuard *squarewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/square", webhookcontrollers.SquareWebhook(squareWebhookService, squareClient, squareWebhookGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.Idempotency(redisClient, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(registerService, logg))
		r.Post("/logout", controllers.AuthLogout(authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
	})

	// Public storefront reads.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(catalogService, logg))
		r.Get("/{slug}", controllers.ProductDetail(catalogService, logg))
	})
	r.Get("/api/v1/track/{trackingCode}", controllers.TrackOrder(ordersService, logg))

	// Authenticated storefront.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Patch("/items/{variantId}", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/items/{variantId}", controllers.CartRemoveItem(cartService, logg))
		})

		r.Post("/checkout", controllers.Checkout(checkoutService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListMyOrders(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
			r.Post("/{orderId}/pay", controllers.PayOrder(paymentsService, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(paymentsService, logg))
		})
	})

	// Staff surface.
	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.RequireStaff(logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.AdminListProducts(catalogService, logg))
			r.Post("/", controllers.AdminCreateProduct(catalogService, logg))
			r.Patch("/{productId}", controllers.AdminUpdateProduct(catalogService, logg))
			r.Delete("/{productId}", controllers.AdminDeleteProduct(catalogService, logg))
			r.Post("/{productId}/variants", controllers.AdminAddVariant(catalogService, logg))
		})
		r.Route("/variants", func(r chi.Router) {
			r.Patch("/{variantId}", controllers.AdminUpdateVariant(catalogService, logg))
			r.Delete("/{variantId}", controllers.AdminDeleteVariant(catalogService, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/low-stock", controllers.AdminLowStockReport(inventoryService, logg))
			r.Post("/{variantId}/adjust", controllers.AdminAdjustStock(inventoryService, logg))
			r.Get("/{variantId}/logs", controllers.AdminInventoryLogs(inventoryService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
			r.Post("/{orderId}/ship", controllers.AdminShipOrder(ordersService, logg))
			r.Post("/{orderId}/deliver", controllers.AdminDeliverOrder(ordersService, logg))
			r.Post("/{orderId}/refund", controllers.AdminRefundOrder(paymentsService, logg))
			r.Post("/{orderId}/confirm-payment", controllers.AdminConfirmPayment(paymentsService, logg))
		})
	})

	return r
}
