package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	Timeout     time.Duration
	MaxBodySize int64
}

type Handlers struct {
	Cart     *CartHandler
	Orders   *OrdersHandler
	Users    *UserHandler
	Products *ProductHandler
	Admin    *AdminHandler
}

// NewRouter wires every route under /api/v1 and wraps the router with
// OpenTelemetry instrumentation.
func NewRouter(h Handlers, log zerolog.Logger, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Timeout))
	if cfg.MaxBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxBodySize))
	}
	r.Use(IdentityMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Post("/items", h.Cart.AddItem)
			r.Delete("/items/{productId}", h.Cart.RemoveItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.Orders.CreateOrder)
			r.Get("/", h.Orders.ListOrders)
			r.Get("/{id}", h.Orders.GetOrder)
			r.Post("/{id}/payment", h.Orders.CreatePayment)
			r.Post("/{id}/payment/capture", h.Orders.CapturePayment)
		})

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", h.Users.Me)
			r.Put("/", h.Users.UpdateProfile)
			r.Put("/address", h.Users.UpdateAddress)
			r.Put("/payment-method", h.Users.UpdatePaymentMethod)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/latest", h.Products.Latest)
			r.Get("/{slug}", h.Products.GetBySlug)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/summary", h.Admin.Summary)
			r.Get("/orders", h.Admin.ListOrders)
			r.Get("/orders/{id}/captures", h.Admin.OrderCaptures)
			r.Get("/users", h.Admin.ListUsers)
			r.Put("/users/{id}", h.Admin.UpdateUser)
			r.Delete("/users/{id}", h.Admin.DeleteUser)
			r.Get("/products", h.Admin.ListProducts)
			r.Post("/products", h.Admin.CreateProduct)
			r.Put("/products/{id}", h.Admin.UpdateProduct)
			r.Delete("/products/{id}", h.Admin.DeleteProduct)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
