package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/amogham/storefront/internal/cart"
	"github.com/amogham/storefront/internal/checkout"
	"github.com/amogham/storefront/internal/metrics"
	"github.com/amogham/storefront/internal/middleware"
	"github.com/amogham/storefront/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartHandler serves the shopper's cart. Routes must sit behind
// middleware.Shopper, which attaches the session's cart.
type CartHandler struct {
	products ProductSource
	guard    CheckoutGuard
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// CheckoutGuard serializes cart edits with the session's checkout.
// WhileIdle returns checkout.ErrCheckoutInProgress instead of running fn
// while a payment for the session is in flight.
type CheckoutGuard interface {
	WhileIdle(sessionID string, fn func() error) error
}

var errCartItemNotFound = errors.New("cart item not found")

// NewCartHandler creates a new CartHandler. guard and m may be nil; without a
// guard edits are never blocked.
func NewCartHandler(products ProductSource, guard CheckoutGuard, m *metrics.Metrics, logger *zap.Logger) *CartHandler {
	return &CartHandler{products: products, guard: guard, metrics: m, logger: logger}
}

// RegisterRoutes registers cart endpoints, mounted at /cart.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Delete("/", h.Clear)
	r.Post("/items", h.Add)
	r.Patch("/items/{id}", h.Update)
	r.Delete("/items/{id}", h.Remove)
}

// --- Request / Response types ---

type addItemRequest struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Quantity  *int   `json:"quantity"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity"`
}

type cartResponse struct {
	Items []cart.Item     `json:"items"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

func toCartResponse(st *cart.Store) cartResponse {
	return cartResponse{
		Items: st.Items(),
		Total: st.Total(),
		Count: st.Count(),
	}
}

// edit runs fn unless the session's checkout holds the cart. It reports false
// after writing the 409 itself; otherwise it returns fn's error.
func (h *CartHandler) edit(w http.ResponseWriter, r *http.Request, fn func() error) (bool, error) {
	if h.guard == nil {
		return true, fn()
	}
	err := h.guard.WhileIdle(middleware.SessionFromContext(r.Context()), fn)
	if errors.Is(err, checkout.ErrCheckoutInProgress) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "cart is locked while a payment is in progress"})
		return false, nil
	}
	return true, err
}

// --- Handlers ---

// Get returns the session's cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	st := middleware.CartFromContext(r.Context())
	if st == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "no shopper session"})
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(st))
}

// Add puts a product variant into the cart. Quantity defaults to 1.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	st := middleware.CartFromContext(r.Context())
	if st == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "no shopper session"})
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.ProductID == "" || req.Size == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "productId and size are required"})
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	p, err := h.products.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		if isNotFound(err) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		h.logger.Error("get product for cart", zap.String("product_id", req.ProductID), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to load product"})
		return
	}
	if !p.InStock() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "product is out of stock"})
		return
	}

	pp := p.Pricing()
	v, ok := pricing.ResolveVariant(pp, req.Size)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown size for this product"})
		return
	}

	ok, err = h.edit(w, r, func() error { return st.AddToCart(r.Context(), pp, v, qty) })
	if !ok {
		return
	}
	if err != nil {
		if errors.Is(err, cart.ErrInvalidQuantity) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	h.metrics.CartMutation("add")

	writeJSON(w, http.StatusOK, toCartResponse(st))
}

// Update sets a line's quantity; zero or less removes the line.
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	st := middleware.CartFromContext(r.Context())
	if st == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "no shopper session"})
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Quantity == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity is required"})
		return
	}

	id := chi.URLParam(r, "id")
	ok, err := h.edit(w, r, func() error {
		if _, found := st.Item(id); !found {
			return errCartItemNotFound
		}
		st.UpdateQuantity(r.Context(), id, *req.Quantity)
		return nil
	})
	if !ok {
		return
	}
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	h.metrics.CartMutation("update")

	writeJSON(w, http.StatusOK, toCartResponse(st))
}

// Remove drops a line. Removing an unknown line is not an error.
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	st := middleware.CartFromContext(r.Context())
	if st == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "no shopper session"})
		return
	}

	if ok, _ := h.edit(w, r, func() error {
		st.RemoveFromCart(r.Context(), chi.URLParam(r, "id"))
		return nil
	}); !ok {
		return
	}
	h.metrics.CartMutation("remove")

	writeJSON(w, http.StatusOK, toCartResponse(st))
}

// Clear empties the cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	st := middleware.CartFromContext(r.Context())
	if st == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "no shopper session"})
		return
	}

	if ok, _ := h.edit(w, r, func() error {
		st.ClearCart(r.Context())
		return nil
	}); !ok {
		return
	}
	h.metrics.CartMutation("clear")

	writeJSON(w, http.StatusOK, toCartResponse(st))
}
