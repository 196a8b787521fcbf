package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/amogham/storefront/internal/admin"
	"github.com/amogham/storefront/internal/backend"
	"github.com/amogham/storefront/internal/handler"
	"github.com/amogham/storefront/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"go.uber.org/zap"
)

// --- Fake order backend driving a real admin.Sync ---

type fakeOrderBackend struct {
	mu        sync.Mutex
	products  []backend.Product
	orders    []backend.Order
	statusErr error
	deleteErr error
	created   []backend.Product
}

func (b *fakeOrderBackend) ListProducts(context.Context) ([]backend.Product, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backend.Product(nil), b.products...), nil
}

func (b *fakeOrderBackend) ListOrders(context.Context) ([]backend.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backend.Order(nil), b.orders...), nil
}

func (b *fakeOrderBackend) CreateProduct(_ context.Context, p backend.Product) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, p)
	b.products = append(b.products, p)
	return nil
}

func (b *fakeOrderBackend) UpdateProduct(_ context.Context, id string, p backend.Product) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.products {
		if b.products[i].ID.String() == id {
			b.products[i] = p
			return nil
		}
	}
	return &backend.APIError{Status: http.StatusNotFound, Message: "Product not found"}
}

func (b *fakeOrderBackend) DeleteProduct(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.products {
		if b.products[i].ID.String() == id {
			b.products = append(b.products[:i], b.products[i+1:]...)
			return nil
		}
	}
	return nil
}

func (b *fakeOrderBackend) UpdateOrderStatus(_ context.Context, id, status string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.statusErr != nil {
		return b.statusErr
	}
	for i := range b.orders {
		if b.orders[i].ID.String() == id {
			b.orders[i].Status = status
		}
	}
	return nil
}

func (b *fakeOrderBackend) DeleteOrder(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.deleteErr != nil {
		return b.deleteErr
	}
	for i := range b.orders {
		if b.orders[i].ID.String() == id {
			b.orders = append(b.orders[:i], b.orders[i+1:]...)
			break
		}
	}
	return nil
}

var day = time.Date(2025, 10, 14, 9, 30, 0, 0, time.UTC)

func newFakeOrderBackend() *fakeOrderBackend {
	return &fakeOrderBackend{
		products: []backend.Product{
			{ID: "sw1", Name: "Kaju Barfi", Category: "Sweets", BasePrice: backend.Price(decimal.NewFromInt(800)), Unit: "1KG", Stock: 2},
			{ID: "sn1", Name: "Chekkalu", Category: "Snacks", BasePrice: backend.Price(decimal.NewFromInt(120)), Unit: "Pack", Stock: 40},
		},
		orders: []backend.Order{
			{ID: "101", CustomerName: "Ravi", Status: "pending", TotalAmount: decimal.NewFromInt(499), CreatedAt: day},
			{ID: "102", CustomerName: "Sita", Status: "completed", TotalAmount: decimal.NewFromInt(1250), CreatedAt: day.Add(time.Hour)},
		},
	}
}

type recordingDialogs struct {
	mu      sync.Mutex
	dialogs []admin.Dialog
}

func (r *recordingDialogs) Show(d admin.Dialog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dialogs = append(r.dialogs, d)
}

func (r *recordingDialogs) last() admin.Dialog {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.dialogs) == 0 {
		return admin.Dialog{}
	}
	return r.dialogs[len(r.dialogs)-1]
}

type dashboardFixture struct {
	backend *fakeOrderBackend
	dialogs *recordingDialogs
	sync    *admin.Sync
	router  *chi.Mux
}

func setupDashboard(t *testing.T) *dashboardFixture {
	t.Helper()
	f := &dashboardFixture{backend: newFakeOrderBackend(), dialogs: &recordingDialogs{}}
	f.sync = admin.New(admin.Config{Backend: f.backend, Dialogs: f.dialogs, Logger: zap.NewNop()})
	if err := f.sync.Refresh(context.Background(), false); err != nil {
		t.Fatalf("initial refresh: %v", err)
	}

	f.router = chi.NewRouter()
	f.router.Route("/admin", handler.NewDashboardHandler(f.sync, zap.NewNop()).RegisterRoutes)
	return f
}

func (f *dashboardFixture) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

// --- Tests ---

func TestDashboardGet(t *testing.T) {
	f := setupDashboard(t)

	rr := f.request("GET", "/admin/dashboard", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}

	var got struct {
		Stats struct {
			TotalOrders   int    `json:"totalOrders"`
			Revenue       string `json:"revenue"`
			PendingOrders int    `json:"pendingOrders"`
			LowStock      int    `json:"lowStock"`
		} `json:"stats"`
		Orders        []backend.Order `json:"orders"`
		PendingOrders []backend.Order `json:"pendingOrders"`
		Products      []struct {
			ID          string `json:"id"`
			StockStatus string `json:"stockStatus"`
		} `json:"products"`
	}
	decodeJSON(t, rr, &got)

	if got.Stats.TotalOrders != 2 || got.Stats.Revenue != "1250" || got.Stats.PendingOrders != 1 || got.Stats.LowStock != 1 {
		t.Errorf("stats: got %+v", got.Stats)
	}
	if len(got.Orders) != 2 || got.Orders[0].ID != "102" {
		t.Errorf("orders should be newest first: %+v", got.Orders)
	}
	if len(got.PendingOrders) != 1 || got.PendingOrders[0].ID != "101" {
		t.Errorf("pending: %+v", got.PendingOrders)
	}
	if got.Products[0].StockStatus != admin.StockLow || got.Products[1].StockStatus != admin.StockIn {
		t.Errorf("stock badges: %+v", got.Products)
	}

	rr = f.request("GET", "/admin/dashboard?status=pending&category=Snacks", nil)
	decodeJSON(t, rr, &got)
	if len(got.Orders) != 1 || got.Orders[0].ID != "101" {
		t.Errorf("status filter: %+v", got.Orders)
	}
	if len(got.Products) != 1 || got.Products[0].ID != "sn1" {
		t.Errorf("category filter: %+v", got.Products)
	}
	if got.Stats.TotalOrders != 2 {
		t.Errorf("stats must ignore filters: %+v", got.Stats)
	}
}

func TestDashboardRefresh(t *testing.T) {
	f := setupDashboard(t)
	f.backend.mu.Lock()
	f.backend.orders = append(f.backend.orders, backend.Order{ID: "103", Status: "pending", CreatedAt: day.Add(2 * time.Hour)})
	f.backend.mu.Unlock()

	if rr := f.request("POST", "/admin/refresh", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d", rr.Code)
	}
	if n := len(f.sync.Orders()); n != 3 {
		t.Errorf("orders after refresh: got %d, want 3", n)
	}
	if d := f.dialogs.last(); d.Kind != admin.DialogSuccess || d.Message != "Dashboard data refreshed successfully!" {
		t.Errorf("dialog: got %+v", d)
	}
}

func TestChangeStatus(t *testing.T) {
	f := setupDashboard(t)

	rr := f.request("PUT", "/admin/orders/101/status", map[string]string{"status": "shipped"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body %s", rr.Code, rr.Body.String())
	}
	o, _ := f.sync.Order("101")
	if o.Status != "shipped" {
		t.Errorf("local status: got %q", o.Status)
	}

	tests := []struct {
		name   string
		path   string
		status string
		want   int
	}{
		{"invalid status", "/admin/orders/101/status", "shipped-ish", http.StatusBadRequest},
		{"unknown order", "/admin/orders/999/status", "completed", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := f.request("PUT", tt.path, map[string]string{"status": tt.status}); rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestChangeStatusRollback(t *testing.T) {
	f := setupDashboard(t)
	f.backend.statusErr = &backend.APIError{Status: 500, Message: "db locked"}

	rr := f.request("PUT", "/admin/orders/101/status", map[string]string{"status": "completed"})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d", rr.Code)
	}
	var body map[string]string
	decodeJSON(t, rr, &body)
	if body["error"] != "Failed to update status: db locked" {
		t.Errorf("error: got %q", body["error"])
	}

	o, _ := f.sync.Order("101")
	if o.Status != "pending" {
		t.Errorf("status should roll back, got %q", o.Status)
	}
}

func TestDeleteOrderConfirmFlow(t *testing.T) {
	f := setupDashboard(t)

	rr := f.request("DELETE", "/admin/orders/101", nil)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status: got %d", rr.Code)
	}
	var c admin.Confirmation
	decodeJSON(t, rr, &c)
	if c.Message != "Permanently delete this order?" || c.TargetID != "101" {
		t.Errorf("confirmation: %+v", c)
	}
	if len(f.sync.Orders()) != 2 {
		t.Fatal("nothing may be deleted before confirmation")
	}

	if rr := f.request("POST", "/admin/confirmations/"+c.ID, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("confirm: got %d", rr.Code)
	}
	if _, ok := f.sync.Order("101"); ok {
		t.Error("order still listed after delete")
	}
	if d := f.dialogs.last(); d.Message != "Order deleted successfully!" {
		t.Errorf("dialog: %+v", d)
	}

	if rr := f.request("POST", "/admin/confirmations/"+c.ID, nil); rr.Code != http.StatusNotFound {
		t.Errorf("second confirm: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestDeleteCancelAndFailure(t *testing.T) {
	f := setupDashboard(t)

	var c admin.Confirmation
	decodeJSON(t, f.request("DELETE", "/admin/products/sw1", nil), &c)
	if rr := f.request("DELETE", "/admin/confirmations/"+c.ID, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("cancel: got %d", rr.Code)
	}
	if len(f.sync.Products()) != 2 {
		t.Error("cancelled delete removed a product")
	}

	f.backend.deleteErr = errors.New("constraint violation")
	decodeJSON(t, f.request("DELETE", "/admin/orders/102", nil), &c)
	if rr := f.request("POST", "/admin/confirmations/"+c.ID, nil); rr.Code != http.StatusBadGateway {
		t.Errorf("failed delete: got %d", rr.Code)
	}
	if d := f.dialogs.last(); d.Message != "Failed to delete order: constraint violation" {
		t.Errorf("dialog: %+v", d)
	}
}

func TestConfirmationsBelongToTheirAdminSession(t *testing.T) {
	f := setupDashboard(t)
	sessions := newSessionManager(t)
	alice, err := sessions.Login("admin-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	bob, err := sessions.Login("admin-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	aliceClaims, _ := sessions.Validate(alice.Token)

	r := chi.NewRouter()
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(sessions))
		handler.NewDashboardHandler(f.sync, zap.NewNop()).RegisterRoutes(r)
	})
	as := func(token, method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	var c admin.Confirmation
	decodeJSON(t, as(alice.Token, "DELETE", "/admin/orders/101"), &c)
	if d := f.dialogs.last(); d.ConfirmationID != c.ID || d.Operator != aliceClaims.ID {
		t.Errorf("confirm dialog should target the asking session, got %+v", d)
	}

	if rr := as(bob.Token, "POST", "/admin/confirmations/"+c.ID); rr.Code != http.StatusNotFound {
		t.Errorf("other session confirmed: got %d", rr.Code)
	}
	if _, ok := f.sync.Order("101"); !ok {
		t.Fatal("order deleted by another session")
	}
	if rr := as(alice.Token, "POST", "/admin/confirmations/"+c.ID); rr.Code != http.StatusNoContent {
		t.Fatalf("confirm: got %d", rr.Code)
	}
	if d := f.dialogs.last(); d.Message != "Order deleted successfully!" || d.Operator != aliceClaims.ID {
		t.Errorf("dialog: %+v", d)
	}
}

func TestSaveProduct(t *testing.T) {
	f := setupDashboard(t)

	form := map[string]interface{}{
		"name":       "Ariselu",
		"teluguName": "అరిసెలు",
		"basePrice":  "650",
		"image":      "https://cdn.example.com/ariselu.jpg",
		"stock":      20,
	}
	rr := f.request("POST", "/admin/products", form)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: got %d; body %s", rr.Code, rr.Body.String())
	}
	var p backend.Product
	decodeJSON(t, rr, &p)
	if p.ID != "sw2" || p.Category != "Sweets" || p.Unit != "1KG" {
		t.Errorf("defaults: got %+v", p)
	}

	form["image"] = "not a url"
	rr = f.request("POST", "/admin/products", form)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad image: got %d", rr.Code)
	}
	var body map[string]string
	decodeJSON(t, rr, &body)
	if body["error"] != admin.ErrProductImageURL.Message {
		t.Errorf("error: got %q", body["error"])
	}

	form["image"] = "https://cdn.example.com/barfi.jpg"
	form["name"] = "Kaju Barfi Special"
	form["stock"] = 5
	if rr := f.request("PUT", "/admin/products/sw1", form); rr.Code != http.StatusOK {
		t.Fatalf("update: got %d; body %s", rr.Code, rr.Body.String())
	}
	if d := f.dialogs.last(); d.Message != "Product updated successfully!" {
		t.Errorf("dialog: %+v", d)
	}
}

func TestProductHelpers(t *testing.T) {
	f := setupDashboard(t)

	var next map[string]string
	decodeJSON(t, f.request("GET", "/admin/products/next-id?category=Snacks", nil), &next)
	if next["id"] != "sn2" {
		t.Errorf("next id: got %q", next["id"])
	}

	var prices map[string]string
	decodeJSON(t, f.request("GET", "/admin/products/price-suggestions?basePrice=650", nil), &prices)
	if prices["price250g"] != "163" || prices["price500g"] != "325" || prices["price1kg"] != "650" {
		t.Errorf("suggestions: got %v", prices)
	}

	if rr := f.request("GET", "/admin/products/price-suggestions?basePrice=abc", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("bad price: got %d", rr.Code)
	}
}

func TestExportOrders(t *testing.T) {
	f := setupDashboard(t)

	rr := f.request("GET", "/admin/orders/export.xlsx?status=completed", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("content type: %q", ct)
	}
	wantDisposition := fmt.Sprintf(`attachment; filename="orders_%s.xlsx"`, time.Now().Format("2006-01-02"))
	if cd := rr.Header().Get("Content-Disposition"); cd != wantDisposition {
		t.Errorf("disposition: got %q, want %q", cd, wantDisposition)
	}

	file, err := xlsx.OpenBinary(rr.Body.Bytes())
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	rows := file.Sheets[0].Rows
	if len(rows) != 2 || rows[1].Cells[0].Value != "102" {
		t.Errorf("expected header plus order 102, got %d rows", len(rows))
	}
}
