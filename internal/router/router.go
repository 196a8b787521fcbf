package router

import (
	"net/http"

	"github.com/amogham/storefront/internal/auth"
	"github.com/amogham/storefront/internal/cart"
	"github.com/amogham/storefront/internal/config"
	"github.com/amogham/storefront/internal/handler"
	mw "github.com/amogham/storefront/internal/middleware"
	"github.com/amogham/storefront/internal/metrics"
	"github.com/amogham/storefront/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	Config    *config.Config
	Logger    *zap.Logger
	Gatherer  prometheus.Gatherer
	Metrics   *metrics.Metrics
	Sessions  *auth.SessionManager
	Carts     *cart.Sessions
	Catalog   handler.ProductSource
	Checkouts handler.CheckoutFactory
	CartGuard handler.CheckoutGuard
	Attempts  handler.AttemptStore
	Dashboard handler.Dashboard
	Hub       *ws.Hub
}

// New creates a Chi router with all application routes wired up.
// Shopper routes get a session cookie; /admin routes need an admin token.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	productHandler := handler.NewProductHandler(d.Catalog, d.Logger)
	r.Route("/products", productHandler.RegisterRoutes)

	// Shopper routes (session cookie)
	r.Group(func(r chi.Router) {
		r.Use(mw.Shopper(d.Carts, d.Config.SecureCookies))

		cartHandler := handler.NewCartHandler(d.Catalog, d.CartGuard, d.Metrics, d.Logger)
		r.Route("/cart", cartHandler.RegisterRoutes)

		checkoutHandler := handler.NewCheckoutHandler(d.Checkouts, d.Attempts, d.Logger)
		r.Route("/checkout", checkoutHandler.RegisterRoutes)
	})

	// Admin login (public)
	authHandler := handler.NewAuthHandler(d.Sessions, d.Logger)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/admin/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, d.Sessions, ws.TopicAdmin, w, r)
	})

	// Protected admin routes
	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.Authenticate(d.Sessions))
		r.Use(mw.RequireRole(auth.RoleAdmin))

		authHandler.RegisterProtectedRoutes(r)

		dashboardHandler := handler.NewDashboardHandler(d.Dashboard, d.Logger)
		dashboardHandler.RegisterRoutes(r)
	})

	d.Logger.Info("router initialized")
	return r
}
