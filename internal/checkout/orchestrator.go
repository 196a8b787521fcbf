// Package checkout turns a cart and a delivery form into a paid order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/amogham/storefront/internal/backend"
	"github.com/amogham/storefront/internal/cart"
	"github.com/amogham/storefront/internal/enum"
	"github.com/amogham/storefront/internal/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrCheckoutInProgress = errors.New("a checkout is already in progress")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrScriptLoad         = errors.New("failed to load payment gateway script")
	ErrPaymentFailed      = errors.New("payment failed")
	ErrDismissed          = errors.New("payment dismissed")
	ErrOrderNotSaved      = errors.New("payment successful but failed to save order")
)

// CartStore is the part of the cart the orchestrator reads and clears.
type CartStore interface {
	Items() []cart.Item
	Total() decimal.Decimal
	ClearCart(ctx context.Context)
}

// OrderCreator persists order records.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req backend.CreateOrderRequest) (*backend.Order, error)
}

// Options is the store-level configuration of every payment attempt.
type Options struct {
	KeyID       string
	Currency    string
	StoreName   string
	Description string
	Image       string
	LocalCity   string
	ShippingFee decimal.Decimal
}

// Result is what the confirmation view shows after a successful checkout.
type Result struct {
	Order  *backend.Order `json:"order"`
	Totals Totals         `json:"totals"`
}

// Orchestrator runs checkout attempts for one cart, one at a time.
type Orchestrator struct {
	cart    CartStore
	scripts ScriptLoader
	gateway Gateway
	orders  OrderCreator
	opts    Options
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu         sync.Mutex
	state      string
	processing bool
}

// NewOrchestrator creates an idle Orchestrator. m may be nil.
func NewOrchestrator(c CartStore, scripts ScriptLoader, gw Gateway, orders OrderCreator, opts Options, logger *zap.Logger, m *metrics.Metrics) *Orchestrator {
	if opts.Description == "" {
		opts.Description = "Order Payment"
	}
	return &Orchestrator{
		cart:    c,
		scripts: scripts,
		gateway: gw,
		orders:  orders,
		opts:    opts,
		logger:  logger,
		metrics: m,
		state:   enum.CheckoutIdle,
	}
}

// State returns the current checkout state.
func (o *Orchestrator) State() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Processing reports whether an attempt is running.
func (o *Orchestrator) Processing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.processing
}

func (o *Orchestrator) setState(s string) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.processing {
		return ErrCheckoutInProgress
	}
	o.processing = true
	o.state = enum.CheckoutValidating
	return nil
}

func (o *Orchestrator) finish() {
	o.mu.Lock()
	o.processing = false
	o.state = enum.CheckoutIdle
	o.mu.Unlock()
}

// Quote returns the totals the current cart would be charged for city.
func (o *Orchestrator) Quote(city string) Totals {
	return ComputeTotals(o.cart.Total(), city, o.opts.LocalCity, o.opts.ShippingFee)
}

// WhileIdle runs fn unless a checkout is in progress, in which case it
// returns ErrCheckoutInProgress without calling fn. A checkout cannot start
// while fn runs, so cart edits made through fn never race a snapshot.
func (o *Orchestrator) WhileIdle(fn func() error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.processing {
		return ErrCheckoutInProgress
	}
	return fn()
}

// Checkout validates f, takes payment through the gateway and records the
// order. Before the gateway opens, ending ctx aborts the attempt. Once it is
// open the attempt runs to its outcome regardless of ctx, and the order is
// saved even if the caller has gone away.
//
// On success the cart is cleared. If the payment succeeds but the order
// cannot be saved, the cart is kept and ErrOrderNotSaved is returned.
func (o *Orchestrator) Checkout(ctx context.Context, f Form) (*Result, error) {
	if err := o.begin(); err != nil {
		return nil, err
	}
	defer o.finish()

	result, err := o.run(ctx, f)
	o.metrics.Checkout(resultLabel(err))
	return result, err
}

func (o *Orchestrator) run(ctx context.Context, f Form) (*Result, error) {
	items := o.cart.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if fields := ValidateForm(f); fields != nil {
		return nil, &ValidationError{Fields: fields}
	}

	// Everything charged and recorded derives from this snapshot.
	totals := ComputeTotals(Subtotal(items), f.City, o.opts.LocalCity, o.opts.ShippingFee)
	req := o.buildOrder(f, items, totals)

	o.setState(enum.CheckoutScriptLoading)
	if err := o.scripts.Load(ctx); err != nil {
		o.logger.Error("load gateway script", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrScriptLoad, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paymentCtx := context.WithoutCancel(ctx)

	o.setState(enum.CheckoutGatewayOpen)
	outcomes, err := o.gateway.Open(paymentCtx, o.gatewayOptions(f, req, totals))
	if err != nil {
		o.logger.Error("open gateway", zap.Error(err))
		return nil, fmt.Errorf("open gateway: %w", err)
	}

	outcome, ok := <-outcomes
	if !ok {
		return nil, errors.New("gateway closed without an outcome")
	}

	switch out := outcome.(type) {
	case Success:
		return o.completed(paymentCtx, req, totals, out)
	case Failure:
		return nil, o.failed(paymentCtx, req, out)
	case Dismissed:
		return nil, ErrDismissed
	default:
		return nil, fmt.Errorf("unexpected gateway outcome %T", outcome)
	}
}

func (o *Orchestrator) completed(ctx context.Context, req backend.CreateOrderRequest, totals Totals, out Success) (*Result, error) {
	o.setState(enum.CheckoutCreatingOrder)
	req.Status = enum.OrderStatusCompleted
	req.PaymentID = out.PaymentID
	req.RazorpayOrderID = out.GatewayOrderID
	req.RazorpaySignature = out.Signature

	order, err := o.orders.CreateOrder(ctx, req)
	if err != nil {
		o.metrics.OrderCreateFailed(req.Status)
		o.logger.Error("save paid order",
			zap.String("payment_id", out.PaymentID),
			zap.String("customer_email", req.CustomerEmail),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrOrderNotSaved, err)
	}

	o.cart.ClearCart(ctx)
	o.logger.Info("order placed", zap.String("order_id", order.ID.String()), zap.String("payment_id", out.PaymentID))
	return &Result{Order: order, Totals: totals}, nil
}

// failed records the failed attempt. Saving it is best-effort.
func (o *Orchestrator) failed(ctx context.Context, req backend.CreateOrderRequest, out Failure) error {
	o.setState(enum.CheckoutCreatingOrder)
	gwErr := &GatewayError{Code: out.Code, Description: out.Description}
	req.Status = enum.OrderStatusFailed
	req.PaymentError = gwErr.Error()

	if _, err := o.orders.CreateOrder(ctx, req); err != nil {
		o.metrics.OrderCreateFailed(req.Status)
		o.logger.Error("save failed order", zap.Error(err))
	}
	return fmt.Errorf("%w: %w", ErrPaymentFailed, gwErr)
}

// buildOrder snapshots the cart into an order payload.
func (o *Orchestrator) buildOrder(f Form, items []cart.Item, totals Totals) backend.CreateOrderRequest {
	lines := make([]backend.OrderItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, backend.OrderItem{
			ProductID:   productIDOf(it),
			ProductName: it.Name,
			Size:        it.Size,
			Quantity:    it.Quantity,
			Price:       it.UnitPrice,
		})
	}
	return backend.CreateOrderRequest{
		CustomerName:    f.CustomerName,
		CustomerEmail:   f.CustomerEmail,
		CustomerPhone:   f.Phone(),
		DeliveryAddress: f.DeliveryAddress(),
		Items:           lines,
		Subtotal:        totals.Subtotal,
		ShippingCharge:  totals.Shipping,
		TotalAmount:     totals.Total,
		Status:          enum.OrderStatusPending,
	}
}

func productIDOf(it cart.Item) string {
	if it.ProductID != "" {
		return it.ProductID
	}
	return strings.SplitN(it.ID, "-", 2)[0]
}

func (o *Orchestrator) gatewayOptions(f Form, req backend.CreateOrderRequest, totals Totals) GatewayOptions {
	return GatewayOptions{
		Key:         o.opts.KeyID,
		Amount:      ToMinorUnits(totals.Total),
		Currency:    o.opts.Currency,
		Name:        o.opts.StoreName,
		Description: o.opts.Description,
		Image:       o.opts.Image,
		Prefill: Prefill{
			Name:    f.CustomerName,
			Email:   f.CustomerEmail,
			Contact: f.MobileNumber,
		},
		Notes: map[string]string{"address": req.DeliveryAddress},
	}
}

func resultLabel(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, ErrEmptyCart):
		return "empty"
	case errors.Is(err, ErrScriptLoad):
		return "script_error"
	case errors.Is(err, ErrPaymentFailed):
		return "payment_failed"
	case errors.Is(err, ErrDismissed):
		return "dismissed"
	case errors.Is(err, ErrOrderNotSaved):
		return "order_not_saved"
	default:
		return "error"
	}
}
