package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/angelmondragon/surplus-backend/api/controllers"
	"github.com/angelmondragon/surplus-backend/api/middleware"
	"github.com/angelmondragon/surplus-backend/internal/addresses"
	"github.com/angelmondragon/surplus-backend/internal/auth"
	"github.com/angelmondragon/surplus-backend/internal/cart"
	"github.com/angelmondragon/surplus-backend/internal/categories"
	"github.com/angelmondragon/surplus-backend/internal/orders"
	products "github.com/angelmondragon/surplus-backend/internal/products"
	"github.com/angelmondragon/surplus-backend/internal/reviews"
	"github.com/angelmondragon/surplus-backend/internal/vendors"
	"github.com/angelmondragon/surplus-backend/pkg/auth/session"
	"github.com/angelmondragon/surplus-backend/pkg/config"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
	"github.com/angelmondragon/surplus-backend/pkg/logger"
	"github.com/angelmondragon/surplus-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/surplus-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Nil services answer with an
// internal error rather than panicking.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Registry *prometheus.Registry

	DB    controllers.Pinger
	Redis *pkgredis.Client

	Sessions session.AccessSessionChecker

	Auth       auth.Service
	Products   products.Service
	Categories categories.Service
	Cart       cart.Service
	Orders     orders.Service
	Reviews    reviews.Service
	Addresses  addresses.Service
	Vendors    vendors.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)
	if d.Registry != nil {
		r.Use(middleware.Metrics(metrics.NewHTTPMetrics(d.Registry)))
	}
	if cfg.Tracing.Enabled {
		r.Use(middleware.SpanRoute)
	}

	// Interfaces holding a nil *Client are not nil, so keep them unset.
	var (
		limiter middleware.WindowLimiter
		idem    pkgredis.IdempotencyStore
		health  = map[string]controllers.Pinger{"db": d.DB}
	)
	if d.Redis != nil {
		limiter = d.Redis
		idem = d.Redis
		health["redis"] = d.Redis
	}
	idempotent := func(policy middleware.IdempotencyPolicy) func(http.Handler) http.Handler {
		return middleware.Idempotency(idem, logg, policy)
	}

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
		r.Get("/ready", controllers.HealthReady(cfg, logg, health))
	})
	if d.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{Registry: d.Registry}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, limiter, logg)).Post("/register", controllers.AuthRegister(d.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, limiter, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(d.Auth, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(d.Products, logg))
			r.Get("/featured", controllers.ProductFeatured(d.Products, logg))
			r.Get("/trending", controllers.ProductTrending(d.Products, logg))
			r.Get("/{productId}", controllers.ProductDetail(d.Products, logg))
		})
		r.Get("/categories", controllers.CategoryList(d.Categories, logg))
		r.Get("/categories/{categoryId}", controllers.CategoryDetail(d.Categories, logg))
		r.Get("/reviews/product/{productId}", controllers.ReviewList(d.Reviews, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))

			r.Get("/auth/me", controllers.AuthMe(d.Auth, logg))
			r.Put("/auth/me", controllers.AuthUpdateProfile(d.Auth, logg))
			r.Post("/auth/change-password", controllers.AuthChangePassword(d.Auth, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(d.Cart, logg))
				r.Delete("/", controllers.CartClear(d.Cart, logg))
				r.Post("/items", controllers.CartAddItem(d.Cart, logg))
				r.Put("/items/{itemId}", controllers.CartUpdateItem(d.Cart, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(d.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.With(idempotent(middleware.OrderCreateIdempotency)).Post("/", controllers.OrderCreate(d.Orders, logg))
				r.Get("/", controllers.OrderList(d.Orders, logg))
				r.Get("/{orderId}", controllers.OrderDetail(d.Orders, logg))
				r.With(idempotent(middleware.OrderCancelIdempotency)).Post("/{orderId}/cancel", controllers.OrderCancel(d.Orders, logg))
			})

			r.Post("/reviews", controllers.ReviewCreate(d.Reviews, logg))
			r.Delete("/reviews/{reviewId}", controllers.ReviewDelete(d.Reviews, logg))

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.AddressList(d.Addresses, logg))
				r.Post("/", controllers.AddressCreate(d.Addresses, logg))
				r.Put("/{addressId}", controllers.AddressUpdate(d.Addresses, logg))
				r.Delete("/{addressId}", controllers.AddressDelete(d.Addresses, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(
					middleware.RequireRole(logg, enums.RoleVendor),
					middleware.VendorContext(d.Vendors, logg),
				)

				r.Post("/categories", controllers.CategoryCreate(d.Categories, logg))

				r.Route("/vendor", func(r chi.Router) {
					r.Get("/dashboard", controllers.VendorDashboard(d.Vendors, logg))

					r.Get("/products", controllers.VendorListProducts(d.Products, logg))
					r.Post("/products", controllers.VendorCreateProduct(d.Products, logg))
					r.Post("/products/image-upload", controllers.VendorProductImageUpload(d.Products, logg))
					r.Put("/products/{productId}", controllers.VendorUpdateProduct(d.Products, logg))
					r.Delete("/products/{productId}", controllers.VendorDeleteProduct(d.Products, logg))

					r.Get("/orders", controllers.VendorOrderList(d.Orders, logg))
					r.With(idempotent(middleware.OrderStatusIdempotency)).Put("/orders/{orderId}/status", controllers.VendorOrderStatus(d.Orders, logg))
				})
			})
		})
	})

	if !cfg.Tracing.Enabled {
		return r
	}
	// SpanRoute renames the span to the route pattern after routing.
	return otelhttp.NewHandler(r, "surplus-api", otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
		return req.Method
	}))
}
