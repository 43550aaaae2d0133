package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sneakrush/api/internal/service"
	"github.com/sneakrush/api/pkg/health"
	"github.com/sneakrush/api/pkg/middleware"
)

const serviceName = "sneakrush"

// NewRouter creates a chi router with all API routes registered.
func NewRouter(
	cartService *service.CartService,
	orderService *service.OrderService,
	inventoryService *service.InventoryService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	cartHandler := NewCartHandler(cartService, logger)
	orderHandler := NewOrderHandler(orderService, logger)
	variantHandler := NewVariantHandler(inventoryService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Identity())

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Get("/count", cartHandler.CountItems)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{variantId}", cartHandler.UpdateItemQuantity)
			r.Delete("/items/{variantId}", cartHandler.RemoveItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", orderHandler.Checkout)
			r.With(middleware.RequireRole(roleAdmin)).Get("/", orderHandler.ListOrders)
			r.Get("/me", orderHandler.ListMyOrders)
			r.Get("/{id}", orderHandler.GetOrder)
			r.With(middleware.RequireRole(roleAdmin)).Put("/{id}/status", orderHandler.UpdateOrderStatus)
			r.Post("/{id}/cancel", orderHandler.CancelOrder)
		})

		r.Route("/variants", func(r chi.Router) {
			r.Get("/{id}", variantHandler.GetVariant)
			r.With(middleware.RequireRole(roleAdmin)).Put("/{id}/stock", variantHandler.SetStock)
		})
	})

	return r
}
