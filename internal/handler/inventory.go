package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/amogham/storefront/internal/admin"
	"github.com/amogham/storefront/internal/enum"
	"github.com/amogham/storefront/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// --- Response types ---

type priceSuggestionResponse struct {
	Price250g decimal.Decimal `json:"price250g"`
	Price500g decimal.Decimal `json:"price500g"`
	Price1kg  decimal.Decimal `json:"price1kg"`
}

// --- Handlers ---

// CreateProduct adds a product from the operator's form.
func (h *DashboardHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, "")
}

// UpdateProduct replaces the product stored under {id}.
func (h *DashboardHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, chi.URLParam(r, "id"))
}

func (h *DashboardHandler) saveProduct(w http.ResponseWriter, r *http.Request, editingID string) {
	var form admin.ProductForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	p, err := h.sync.SaveProduct(r.Context(), form, editingID)
	if err != nil {
		var ferr *admin.FormError
		if errors.As(err, &ferr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": ferr.Message})
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Error saving product: " + cause(err).Error()})
		return
	}

	status := http.StatusOK
	if editingID == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, p)
}

// DeleteProduct starts the two-step delete of a product.
func (h *DashboardHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusAccepted, h.sync.RequestDeleteProduct(r.Context(), chi.URLParam(r, "id")))
}

// NextProductID suggests the id for a new product in ?category=.
func (h *DashboardHandler) NextProductID(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		category = enum.CategorySweets
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": h.sync.NextProductID(category)})
}

// PriceSuggestions pre-fills the size prices for ?basePrice=.
func (h *DashboardHandler) PriceSuggestions(w http.ResponseWriter, r *http.Request) {
	base, err := decimal.NewFromString(r.URL.Query().Get("basePrice"))
	if err != nil || base.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid basePrice"})
		return
	}

	quarter, half, full := pricing.SuggestedOverrides(base)
	writeJSON(w, http.StatusOK, priceSuggestionResponse{Price250g: quarter, Price500g: half, Price1kg: full})
}
