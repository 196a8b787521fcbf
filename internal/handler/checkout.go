package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/amogham/storefront/internal/cart"
	"github.com/amogham/storefront/internal/checkout"
	"github.com/amogham/storefront/internal/checkout/razorpay"
	"github.com/amogham/storefront/internal/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Checkouter runs checkouts for one shopper. Satisfied by *checkout.Orchestrator.
type Checkouter interface {
	Checkout(ctx context.Context, f checkout.Form) (*checkout.Result, error)
	Quote(city string) checkout.Totals
	State() string
	Processing() bool
}

// CheckoutFactory returns the orchestrator of a shopper session.
type CheckoutFactory func(sessionID string, c *cart.Store) Checkouter

// AttemptStore is the hosted-gateway side of a payment attempt.
// Satisfied by *razorpay.Bridge.
type AttemptStore interface {
	Pending(owner string) (razorpay.Attempt, bool)
	Resolve(owner, id string, out checkout.Outcome) error
}

// CheckoutHandler serves the checkout flow. Routes must sit behind
// middleware.Shopper.
type CheckoutHandler struct {
	orchestrators CheckoutFactory
	attempts      AttemptStore
	logger        *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(orchestrators CheckoutFactory, attempts AttemptStore, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{orchestrators: orchestrators, attempts: attempts, logger: logger}
}

// RegisterRoutes registers checkout endpoints, mounted at /checkout.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Checkout)
	r.Get("/status", h.Status)
	r.Get("/quote", h.Quote)
	r.Get("/countries", h.Countries)
	r.Get("/attempt", h.Attempt)
	r.Post("/attempts/{id}/success", h.Success)
	r.Post("/attempts/{id}/failure", h.Failure)
	r.Post("/attempts/{id}/dismiss", h.Dismiss)
}

// --- Response types ---

type checkoutResponse struct {
	Status string           `json:"status"`
	Order  interface{}      `json:"order,omitempty"`
	Totals *checkout.Totals `json:"totals,omitempty"`
}

type validationResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

type statusResponse struct {
	State      string `json:"state"`
	Processing bool   `json:"processing"`
}

type countryResponse struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	DialCode    string `json:"dialCode"`
	PhoneLength int    `json:"phoneLength"`
}

// --- Helpers ---

func (h *CheckoutHandler) session(w http.ResponseWriter, r *http.Request) (string, Checkouter, bool) {
	sid := middleware.SessionFromContext(r.Context())
	st := middleware.CartFromContext(r.Context())
	if sid == "" || st == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "no shopper session"})
		return "", nil, false
	}
	return sid, h.orchestrators(sid, st), true
}

// --- Handlers ---

// Checkout runs a full payment attempt for the session's cart. It blocks
// until the browser reports the gateway outcome or the request ends.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	sid, orch, ok := h.session(w, r)
	if !ok {
		return
	}

	var form checkout.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := orch.Checkout(razorpay.WithOwner(r.Context(), sid), form)
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{
		Status: "completed",
		Order:  result.Order,
		Totals: &result.Totals,
	})
}

func (h *CheckoutHandler) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Error: verr.Error(), Fields: verr.Fields})
	case errors.Is(err, checkout.ErrEmptyCart):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Your cart is empty."})
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "A payment is already in progress."})
	case errors.Is(err, checkout.ErrScriptLoad):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Failed to load payment gateway. Please try again."})
	case errors.Is(err, checkout.ErrDismissed):
		writeJSON(w, http.StatusOK, checkoutResponse{Status: "dismissed"})
	case errors.Is(err, checkout.ErrPaymentFailed):
		var gerr *checkout.GatewayError
		msg := "Payment failed."
		if errors.As(err, &gerr) {
			msg = "Payment failed. " + gerr.Error()
		}
		writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": msg})
	case errors.Is(err, checkout.ErrOrderNotSaved):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Payment successful but failed to save order. Please contact support."})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		if r.Context().Err() != nil {
			// Shopper went away; nobody is listening.
			return
		}
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "checkout timed out"})
	default:
		h.logger.Error("checkout", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// Status reports where the session's checkout is.
func (h *CheckoutHandler) Status(w http.ResponseWriter, r *http.Request) {
	_, orch, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{State: orch.State(), Processing: orch.Processing()})
}

// Quote prices the session's cart for delivery to ?city=.
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	_, orch, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, orch.Quote(r.URL.Query().Get("city")))
}

// Countries lists the delivery countries with their phone rules.
func (h *CheckoutHandler) Countries(w http.ResponseWriter, r *http.Request) {
	resp := make([]countryResponse, len(checkout.Countries))
	for i, c := range checkout.Countries {
		resp[i] = countryResponse{Name: c.Name, Code: c.Code, DialCode: c.DialCode, PhoneLength: c.PhoneLength}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Attempt returns the session's open payment attempt with the options the
// browser passes to the gateway widget.
func (h *CheckoutHandler) Attempt(w http.ResponseWriter, r *http.Request) {
	sid := middleware.SessionFromContext(r.Context())
	a, ok := h.attempts.Pending(sid)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no payment in progress"})
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Success reports a completed payment for an attempt.
func (h *CheckoutHandler) Success(w http.ResponseWriter, r *http.Request) {
	var out checkout.Success
	if err := json.NewDecoder(r.Body).Decode(&out); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if out.PaymentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "razorpay_payment_id is required"})
		return
	}
	h.resolve(w, r, out)
}

// Failure reports a failed payment for an attempt.
func (h *CheckoutHandler) Failure(w http.ResponseWriter, r *http.Request) {
	var out checkout.Failure
	if err := json.NewDecoder(r.Body).Decode(&out); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	h.resolve(w, r, out)
}

// Dismiss reports that the shopper closed the gateway.
func (h *CheckoutHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, checkout.Dismissed{})
}

func (h *CheckoutHandler) resolve(w http.ResponseWriter, r *http.Request, out checkout.Outcome) {
	sid := middleware.SessionFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.attempts.Resolve(sid, id, out); err != nil {
		switch {
		case errors.Is(err, razorpay.ErrUnknownAttempt):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "payment attempt not found"})
		case errors.Is(err, razorpay.ErrBadSignature):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "payment signature mismatch"})
		default:
			h.logger.Error("resolve payment attempt", zap.String("attempt_id", id), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
