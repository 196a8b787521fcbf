package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/amogham/storefront/internal/admin"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// --- Request types ---

type updateStatusRequest struct {
	Status string `json:"status"`
}

// --- Handlers ---

// GetOrder returns one order from the dashboard's list.
func (h *DashboardHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.sync.Order(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// ChangeStatus updates an order's status. The dashboard shows the new status
// at once and reverts it if the backend refuses.
func (h *DashboardHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.sync.ChangeStatus(r.Context(), id, req.Status); err != nil {
		switch {
		case errors.Is(err, admin.ErrInvalidStatus):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		case errors.Is(err, admin.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		default:
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Failed to update status: " + cause(err).Error()})
		}
		return
	}

	o, _ := h.sync.Order(id)
	writeJSON(w, http.StatusOK, o)
}

// DeleteOrder starts the two-step delete of an order and returns the
// confirmation the operator must answer.
func (h *DashboardHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusAccepted, h.sync.RequestDeleteOrder(r.Context(), chi.URLParam(r, "id")))
}

// ExportOrders downloads the orders matching ?status=&search= as an Excel workbook.
func (h *DashboardHandler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orders := admin.FilterOrders(h.sync.Snapshot().Orders, q.Get("status"), q.Get("search"))

	var buf bytes.Buffer
	if err := admin.ExportOrdersXLSX(orders, &buf); err != nil {
		h.logger.Error("export orders", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to export orders"})
		return
	}

	filename := admin.ExportFilename(h.now().Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// cause strips one layer of wrapping context, leaving the backend's message.
func cause(err error) error {
	if u := errors.Unwrap(err); u != nil {
		return u
	}
	return err
}
