// Package admin keeps the operator dashboard in step with the backend:
// periodic polling, optimistic status edits, confirmed deletes and
// new-order detection.
package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amogham/storefront/internal/backend"
	"github.com/amogham/storefront/internal/enum"
	"github.com/amogham/storefront/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultPollInterval    = 10 * time.Second
	PulseDuration          = 3 * time.Second
	DefaultConfirmationTTL = 5 * time.Minute
)

var (
	ErrAlreadyStarted       = errors.New("sync already started")
	ErrRefreshInProgress    = errors.New("refresh already in progress")
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidStatus        = errors.New("invalid order status")
	ErrUnknownConfirmation  = errors.New("unknown or expired confirmation")
	errPartialRefreshFailed = errors.New("one or more lists failed to load")
)

// Backend is the slice of the REST client the dashboard uses.
type Backend interface {
	ListProducts(ctx context.Context) ([]backend.Product, error)
	ListOrders(ctx context.Context) ([]backend.Order, error)
	CreateProduct(ctx context.Context, p backend.Product) error
	UpdateProduct(ctx context.Context, id string, p backend.Product) error
	DeleteProduct(ctx context.Context, id string) error
	UpdateOrderStatus(ctx context.Context, id, status string) error
	DeleteOrder(ctx context.Context, id string) error
}

// Confirmation kinds.
const (
	ConfirmDeleteOrder   = "order.delete"
	ConfirmDeleteProduct = "product.delete"
)

// Confirmation is a destructive request waiting for the operator's answer.
// Only the operator who asked can answer it, and only until ExpiresAt.
type Confirmation struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	TargetID  string    `json:"targetId"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
	Operator  string    `json:"-"`
}

// Snapshot is a consistent copy of the dashboard state.
type Snapshot struct {
	Products     []backend.Product `json:"products"`
	Orders       []backend.Order   `json:"orders"`
	HasNewOrders bool              `json:"hasNewOrders"`
	Refreshing   bool              `json:"refreshing"`
	LastRefresh  time.Time         `json:"lastRefresh"`
	LastError    string            `json:"lastError,omitempty"`
}

// Config holds the collaborators of a Sync. Dialogs and Notifier may be nil.
type Config struct {
	Backend         Backend
	Scheduler       Scheduler
	Dialogs         Dialogs
	Notifier        Notifier
	Interval        time.Duration
	ConfirmationTTL time.Duration
	Logger          *zap.Logger
	Metrics         *metrics.Metrics
}

// Sync is the dashboard's view of products and orders.
type Sync struct {
	backend    Backend
	sched      Scheduler
	dialogs    Dialogs
	notifier   Notifier
	interval   time.Duration
	confirmTTL time.Duration
	logger     *zap.Logger
	metrics    *metrics.Metrics

	mu                 sync.Mutex
	products           []backend.Product
	orders             []backend.Order
	previousOrderCount int
	hasNewOrders       bool
	pulse              Timer
	refreshing         bool
	lastRefresh        time.Time
	lastError          string
	confirmations      map[string]Confirmation

	ticker Ticker
	stop   chan struct{}
	done   chan struct{}
}

// New creates a stopped Sync.
func New(cfg Config) *Sync {
	s := &Sync{
		backend:       cfg.Backend,
		sched:         cfg.Scheduler,
		dialogs:       cfg.Dialogs,
		notifier:      cfg.Notifier,
		interval:      cfg.Interval,
		confirmTTL:    cfg.ConfirmationTTL,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		products:      []backend.Product{},
		orders:        []backend.Order{},
		confirmations: make(map[string]Confirmation),
	}
	if s.sched == nil {
		s.sched = RealScheduler{}
	}
	if s.dialogs == nil {
		s.dialogs = nopDialogs{}
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.interval <= 0 {
		s.interval = DefaultPollInterval
	}
	if s.confirmTTL <= 0 {
		s.confirmTTL = DefaultConfirmationTTL
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// ── Lifecycle ──

// Start fetches both lists immediately and then on every tick until Stop.
func (s *Sync) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.ticker != nil {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	ticker := s.sched.Every(s.interval)
	s.ticker = ticker
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	s.Refresh(ctx, false)

	go func() {
		defer close(done)
		for {
			select {
			case <-ticker.C():
				s.Refresh(ctx, false)
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop cancels the schedule and waits for the poll loop to exit. An
// in-flight fetch is not aborted.
func (s *Sync) Stop() {
	s.mu.Lock()
	ticker, stop, done := s.ticker, s.stop, s.done
	s.ticker = nil
	if s.pulse != nil {
		s.pulse.Stop()
		s.pulse = nil
	}
	s.mu.Unlock()

	if ticker == nil {
		return
	}
	ticker.Stop()
	close(stop)
	<-done
}

// ── Refresh ──

// Refresh fetches products and orders concurrently and replaces both lists.
// A list whose fetch fails is emptied. Only user-triggered refreshes show a
// dialog. A refresh started while another is running is skipped.
func (s *Sync) Refresh(ctx context.Context, userTriggered bool) error {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return ErrRefreshInProgress
	}
	s.refreshing = true
	s.mu.Unlock()

	var err error
	defer func() {
		s.mu.Lock()
		s.refreshing = false
		s.lastRefresh = time.Now()
		s.lastError = ""
		if err != nil {
			s.lastError = err.Error()
		}
		s.mu.Unlock()
	}()

	var (
		wg          sync.WaitGroup
		productsErr error
		ordersErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		productsErr = s.fetchProducts(ctx)
	}()
	go func() {
		defer wg.Done()
		ordersErr = s.fetchOrders(ctx)
	}()
	wg.Wait()

	err = errors.Join(productsErr, ordersErr)
	if userTriggered {
		if err != nil {
			s.show(ctx, Dialog{Kind: DialogError, Message: "Failed to refresh data. Check the server logs for details."})
		} else {
			s.show(ctx, Dialog{Kind: DialogSuccess, Message: "Dashboard data refreshed successfully!"})
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %w", errPartialRefreshFailed, err)
	}
	return nil
}

func (s *Sync) fetchProducts(ctx context.Context) error {
	products, err := s.backend.ListProducts(ctx)
	s.metrics.Fetch("products", err)
	if err != nil {
		s.logger.Warn("fetch products", zap.Error(err))
	}
	if err != nil || products == nil {
		products = []backend.Product{}
	}

	s.mu.Lock()
	s.products = products
	s.mu.Unlock()
	return err
}

func (s *Sync) fetchOrders(ctx context.Context) error {
	orders, err := s.backend.ListOrders(ctx)
	s.metrics.Fetch("orders", err)
	if err != nil {
		s.logger.Warn("fetch orders", zap.Error(err))
	}
	if err != nil || orders == nil {
		orders = []backend.Order{}
	}
	SortOrders(orders)

	s.mu.Lock()
	pending := s.applyOrders(orders)
	s.mu.Unlock()

	if pending > 0 {
		s.metrics.NewOrderNotification()
		s.logger.Info("new orders", zap.Int("pending", pending), zap.Int("total", len(orders)))
		s.notifier.NewOrders(pending)
	}
	return err
}

// applyOrders replaces the order list and runs new-order detection. It
// returns the pending count when a notification is due, else 0. The
// previous count is updated on every call. Caller must hold s.mu.
func (s *Sync) applyOrders(orders []backend.Order) int {
	prev := s.previousOrderCount
	s.orders = orders
	s.previousOrderCount = len(orders)

	if prev == 0 || len(orders) <= prev {
		return 0
	}
	pending := len(PendingOrders(orders))
	if pending == 0 {
		return 0
	}

	s.hasNewOrders = true
	if s.pulse != nil {
		s.pulse.Stop()
	}
	s.pulse = s.sched.AfterFunc(PulseDuration, func() {
		s.mu.Lock()
		s.hasNewOrders = false
		s.mu.Unlock()
	})
	return pending
}

// ── Reads ──

// Snapshot returns copies of the current lists and flags.
func (s *Sync) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]backend.Product, len(s.products))
	copy(products, s.products)
	orders := make([]backend.Order, len(s.orders))
	copy(orders, s.orders)
	return Snapshot{
		Products:     products,
		Orders:       orders,
		HasNewOrders: s.hasNewOrders,
		Refreshing:   s.refreshing,
		LastRefresh:  s.lastRefresh,
		LastError:    s.lastError,
	}
}

// Orders returns a copy of the current order list, newest first.
func (s *Sync) Orders() []backend.Order {
	return s.Snapshot().Orders
}

// Products returns a copy of the current product list.
func (s *Sync) Products() []backend.Product {
	return s.Snapshot().Products
}

// Order returns the order with the given id.
func (s *Sync) Order(id string) (backend.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOfOrder(id); i >= 0 {
		return s.orders[i], true
	}
	return backend.Order{}, false
}

func (s *Sync) indexOfOrder(id string) int {
	for i := range s.orders {
		if s.orders[i].ID.String() == id {
			return i
		}
	}
	return -1
}

// ── Mutations ──

// ChangeStatus sets the order's status locally, then on the backend. If the
// backend rejects it, the local order is restored from its snapshot and an
// error dialog is shown. A poll landing in between may overwrite either value.
func (s *Sync) ChangeStatus(ctx context.Context, id, status string) error {
	if !enum.IsValidOrderStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	s.mu.Lock()
	i := s.indexOfOrder(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrOrderNotFound
	}
	original := s.orders[i]
	s.orders[i].Status = status
	s.mu.Unlock()

	if err := s.backend.UpdateOrderStatus(ctx, id, status); err != nil {
		s.mu.Lock()
		if j := s.indexOfOrder(id); j >= 0 {
			s.orders[j] = original
		}
		s.mu.Unlock()

		s.metrics.StatusRollback()
		s.logger.Warn("update order status",
			zap.String("order_id", id),
			zap.String("status", status),
			zap.Error(err),
		)
		s.show(ctx, Dialog{Kind: DialogError, Message: "Failed to update status: " + err.Error()})
		return fmt.Errorf("update status of order %s: %w", id, err)
	}
	return nil
}

// RequestDeleteOrder asks the operator behind ctx to confirm deleting an
// order. Nothing changes until Confirm.
func (s *Sync) RequestDeleteOrder(ctx context.Context, id string) Confirmation {
	return s.request(ctx, ConfirmDeleteOrder, id, "Permanently delete this order?")
}

// RequestDeleteProduct asks the operator to confirm deleting a product.
func (s *Sync) RequestDeleteProduct(ctx context.Context, id string) Confirmation {
	return s.request(ctx, ConfirmDeleteProduct, id, "Delete this product permanently?")
}

func (s *Sync) request(ctx context.Context, kind, target, message string) Confirmation {
	now := time.Now()
	c := Confirmation{
		ID:        uuid.NewString(),
		Kind:      kind,
		TargetID:  target,
		Message:   message,
		ExpiresAt: now.Add(s.confirmTTL),
		Operator:  OperatorFrom(ctx),
	}
	s.mu.Lock()
	for id, old := range s.confirmations {
		if !now.Before(old.ExpiresAt) {
			delete(s.confirmations, id)
		}
	}
	s.confirmations[c.ID] = c
	s.mu.Unlock()

	s.show(ctx, Dialog{Kind: DialogConfirm, Message: message, ConfirmationID: c.ID})
	return c
}

// take removes and returns the confirmation if the operator behind ctx may
// still answer it.
func (s *Sync) take(ctx context.Context, id string) (Confirmation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.confirmations[id]
	if !ok || c.Operator != OperatorFrom(ctx) {
		return Confirmation{}, false
	}
	delete(s.confirmations, id)
	if !time.Now().Before(c.ExpiresAt) {
		return Confirmation{}, false
	}
	return c, true
}

// Pending counts the confirmations still awaiting an answer.
func (s *Sync) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.confirmations)
}

// Cancel drops a pending confirmation.
func (s *Sync) Cancel(ctx context.Context, confirmationID string) error {
	if _, ok := s.take(ctx, confirmationID); !ok {
		return ErrUnknownConfirmation
	}
	return nil
}

// Confirm performs the confirmed delete. On success the affected list is
// refetched; on failure an error dialog is shown and local state is untouched.
func (s *Sync) Confirm(ctx context.Context, confirmationID string) error {
	c, ok := s.take(ctx, confirmationID)
	if !ok {
		return ErrUnknownConfirmation
	}

	switch c.Kind {
	case ConfirmDeleteOrder:
		if err := s.backend.DeleteOrder(ctx, c.TargetID); err != nil {
			s.logger.Warn("delete order", zap.String("order_id", c.TargetID), zap.Error(err))
			s.show(ctx, Dialog{Kind: DialogError, Message: "Failed to delete order: " + err.Error()})
			return fmt.Errorf("delete order %s: %w", c.TargetID, err)
		}
		s.fetchOrders(ctx)
		s.show(ctx, Dialog{Kind: DialogSuccess, Message: "Order deleted successfully!"})

	case ConfirmDeleteProduct:
		if err := s.backend.DeleteProduct(ctx, c.TargetID); err != nil {
			s.logger.Warn("delete product", zap.String("product_id", c.TargetID), zap.Error(err))
			s.show(ctx, Dialog{Kind: DialogError, Message: "Failed to delete product: " + err.Error()})
			return fmt.Errorf("delete product %s: %w", c.TargetID, err)
		}
		s.fetchProducts(ctx)
		s.show(ctx, Dialog{Kind: DialogSuccess, Message: "Product deleted successfully!"})

	default:
		return fmt.Errorf("unknown confirmation kind %q", c.Kind)
	}
	return nil
}

// SaveProduct validates the form and creates the product, or updates the
// product stored under editingID when set. A new product without an id gets
// the next id of its category.
func (s *Sync) SaveProduct(ctx context.Context, form ProductForm, editingID string) (backend.Product, error) {
	if err := form.Validate(); err != nil {
		s.show(ctx, Dialog{Kind: DialogError, Message: err.Error()})
		return backend.Product{}, err
	}

	p := form.Product()
	var err error
	if editingID != "" {
		if p.ID == "" {
			p.ID = backend.ID(editingID)
		}
		err = s.backend.UpdateProduct(ctx, editingID, p)
	} else {
		if p.ID == "" {
			p.ID = backend.ID(s.NextProductID(p.Category))
		}
		err = s.backend.CreateProduct(ctx, p)
	}
	if err != nil {
		s.logger.Warn("save product", zap.String("product_id", p.ID.String()), zap.Error(err))
		s.show(ctx, Dialog{Kind: DialogError, Message: "Error saving product: " + err.Error()})
		return backend.Product{}, fmt.Errorf("save product %s: %w", p.ID, err)
	}

	s.fetchProducts(ctx)
	msg := "Product added successfully!"
	if editingID != "" {
		msg = "Product updated successfully!"
	}
	s.show(ctx, Dialog{Kind: DialogSuccess, Message: msg})
	return p, nil
}

// NextProductID is NextProductID over the current product list.
func (s *Sync) NextProductID(category string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NextProductID(s.products, category)
}

// show sends d to the operator behind ctx, or to every operator when ctx
// carries none.
func (s *Sync) show(ctx context.Context, d Dialog) {
	d.Operator = OperatorFrom(ctx)
	s.dialogs.Show(d)
}
