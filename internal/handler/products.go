package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/amogham/storefront/internal/backend"
	"github.com/amogham/storefront/internal/pricing"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProductSource defines the catalog reads the storefront needs.
// Satisfied by *backend.Client; narrow interface for testability.
type ProductSource interface {
	ListProducts(ctx context.Context) ([]backend.Product, error)
	GetProduct(ctx context.Context, id string) (*backend.Product, error)
}

// ProductHandler serves the shopper-facing catalog.
type ProductHandler struct {
	products ProductSource
	logger   *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(products ProductSource, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{products: products, logger: logger}
}

// RegisterRoutes registers catalog endpoints, mounted at /products.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// --- Response types ---

type productResponse struct {
	backend.Product
	Variants []pricing.Variant `json:"variants"`
	InStock  bool              `json:"inStock"`
}

func toProductResponse(p backend.Product) productResponse {
	return productResponse{
		Product:  p,
		Variants: pricing.ResolveVariants(p.Pricing()),
		InStock:  p.InStock(),
	}
}

// --- Handlers ---

// List returns the catalog with resolved variants, optionally narrowed by
// ?category= and a case-insensitive ?q= name search.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("list products", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to load products"})
		return
	}

	category := r.URL.Query().Get("category")
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		if category != "" && p.Category != category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(p.TeluguName, q) {
			continue
		}
		resp = append(resp, toProductResponse(p))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single product with its variants.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if isNotFound(err) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		h.logger.Error("get product", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to load product"})
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(*p))
}

// --- Helpers ---

func isNotFound(err error) bool {
	var apiErr *backend.APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
