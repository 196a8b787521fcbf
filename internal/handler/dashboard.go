package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/amogham/storefront/internal/admin"
	"github.com/amogham/storefront/internal/backend"
	"github.com/amogham/storefront/internal/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Dashboard is the admin order sync as seen by the dashboard endpoints.
// Satisfied by *admin.Sync; narrow interface for testability.
type Dashboard interface {
	Snapshot() admin.Snapshot
	Refresh(ctx context.Context, userTriggered bool) error
	Order(id string) (backend.Order, bool)
	ChangeStatus(ctx context.Context, id, status string) error
	RequestDeleteOrder(ctx context.Context, id string) admin.Confirmation
	RequestDeleteProduct(ctx context.Context, id string) admin.Confirmation
	Cancel(ctx context.Context, confirmationID string) error
	Confirm(ctx context.Context, confirmationID string) error
	SaveProduct(ctx context.Context, form admin.ProductForm, editingID string) (backend.Product, error)
	NextProductID(category string) string
}

// DashboardHandler serves the admin dashboard. Routes must sit behind
// middleware.Authenticate.
type DashboardHandler struct {
	sync   Dashboard
	now    func() time.Time
	logger *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(sync Dashboard, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{sync: sync, now: time.Now, logger: logger}
}

// RegisterRoutes registers dashboard endpoints, mounted at /admin.
// Dialogs and confirmations raised by a request belong to the admin session
// that made it.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(operatorScope)

		r.Get("/dashboard", h.Get)
		r.Post("/refresh", h.Refresh)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/export.xlsx", h.ExportOrders)
			r.Get("/{id}", h.GetOrder)
			r.Put("/{id}/status", h.ChangeStatus)
			r.Delete("/{id}", h.DeleteOrder)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/next-id", h.NextProductID)
			r.Get("/price-suggestions", h.PriceSuggestions)
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
		})

		r.Post("/confirmations/{cid}", h.Confirm)
		r.Delete("/confirmations/{cid}", h.Cancel)
	})
}

func operatorScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims := middleware.ClaimsFromContext(r.Context()); claims != nil && claims.ID != "" {
			r = r.WithContext(admin.WithOperator(r.Context(), claims.ID))
		}
		next.ServeHTTP(w, r)
	})
}

// --- Response types ---

type productRow struct {
	backend.Product
	StockStatus string `json:"stockStatus"`
}

type dashboardResponse struct {
	Stats         admin.Stats     `json:"stats"`
	Orders        []backend.Order `json:"orders"`
	PendingOrders []backend.Order `json:"pendingOrders"`
	Products      []productRow    `json:"products"`
	HasNewOrders  bool            `json:"hasNewOrders"`
	Refreshing    bool            `json:"refreshing"`
	LastRefresh   time.Time       `json:"lastRefresh"`
	LastError     string          `json:"lastError,omitempty"`
}

// --- Handlers ---

// Get returns the dashboard: stats over everything plus the order and
// product lists narrowed by ?status=&search= and ?category=&productSearch=.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap := h.sync.Snapshot()
	q := r.URL.Query()

	products := admin.FilterProducts(snap.Products, q.Get("category"), q.Get("productSearch"))
	rows := make([]productRow, len(products))
	for i, p := range products {
		rows[i] = productRow{Product: p, StockStatus: admin.StockStatus(int(p.Stock))}
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Stats:         admin.ComputeStats(snap.Products, snap.Orders),
		Orders:        admin.FilterOrders(snap.Orders, q.Get("status"), q.Get("search")),
		PendingOrders: admin.PendingOrders(snap.Orders),
		Products:      rows,
		HasNewOrders:  snap.HasNewOrders,
		Refreshing:    snap.Refreshing,
		LastRefresh:   snap.LastRefresh,
		LastError:     snap.LastError,
	})
}

// Refresh refetches products and orders on the operator's request.
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.Refresh(r.Context(), true); err != nil {
		if errors.Is(err, admin.ErrRefreshInProgress) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "refresh already in progress"})
			return
		}
		h.logger.Warn("dashboard refresh", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Failed to refresh data."})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Confirm answers yes to a pending delete.
func (h *DashboardHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.Confirm(r.Context(), chi.URLParam(r, "cid")); err != nil {
		if errors.Is(err, admin.ErrUnknownConfirmation) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "confirmation not found"})
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Cancel answers no to a pending delete.
func (h *DashboardHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.Cancel(r.Context(), chi.URLParam(r, "cid")); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "confirmation not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
