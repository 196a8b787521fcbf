package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amogham/storefront/internal/enum"
	"github.com/amogham/storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

// Errors returned by record validation.
var (
	ErrMissingID       = errors.New("id is required")
	ErrMissingName     = errors.New("name is required")
	ErrNegativePrice   = errors.New("price must be >= 0")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrEmptyItems      = errors.New("items are required")
	ErrInvalidQuantity = errors.New("quantity must be > 0")
	ErrTotalMismatch   = errors.New("totalAmount must equal subtotal + shippingCharge")
	ErrSubtotalItems   = errors.New("subtotal must equal the sum of item price x quantity")
	ErrMissingCustomer = errors.New("customer name, email, phone and address are required")
)

// ID accepts either a JSON string or a JSON number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// OptionalPrice is a price that may be absent, null, or an empty string.
type OptionalPrice struct {
	decimal.NullDecimal
}

func (p *OptionalPrice) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		p.NullDecimal = decimal.NullDecimal{}
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("price %q: %w", s, err)
	}
	p.NullDecimal = decimal.NewNullDecimal(d)
	return nil
}

func (p OptionalPrice) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.Decimal)
}

// Ptr returns the price or nil when absent.
func (p OptionalPrice) Ptr() *decimal.Decimal {
	if !p.Valid {
		return nil
	}
	d := p.Decimal
	return &d
}

// Price wraps a price.
func Price(d decimal.Decimal) OptionalPrice {
	return OptionalPrice{decimal.NewNullDecimal(d)}
}

// Stock accepts a number or a numeric string; anything unparseable is 0.
type Stock int

func (s *Stock) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		*s = Stock(int(n))
		return nil
	}
	*s = 0
	return nil
}

// Product is a catalog product as served by /admin/products.
type Product struct {
	ID                ID            `json:"id"`
	Name              string        `json:"name"`
	TeluguName        string        `json:"teluguName,omitempty"`
	Description       string        `json:"description,omitempty"`
	TeluguDescription string        `json:"teluguDescription,omitempty"`
	Category          string        `json:"category"`
	BasePrice         OptionalPrice `json:"basePrice"`
	Price250g         OptionalPrice `json:"price250g"`
	Price500g         OptionalPrice `json:"price500g"`
	Price1kg          OptionalPrice `json:"price1kg"`
	Unit              string        `json:"unit"`
	Image             string        `json:"image"`
	Stock             Stock         `json:"stock"`
}

// Validate checks the fields the storefront relies on.
func (p Product) Validate() error {
	if p.ID == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrMissingName
	}
	for _, price := range []OptionalPrice{p.BasePrice, p.Price250g, p.Price500g, p.Price1kg} {
		if price.Valid && price.Decimal.IsNegative() {
			return ErrNegativePrice
		}
	}
	return nil
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// Pricing returns the view the variant engine works on. A missing base price is zero.
func (p Product) Pricing() pricing.Product {
	return pricing.Product{
		ID:        p.ID.String(),
		Name:      p.Name,
		Image:     p.Image,
		Unit:      p.Unit,
		BasePrice: p.BasePrice.Decimal,
		Price250g: p.Price250g.Ptr(),
		Price500g: p.Price500g.Ptr(),
		Price1kg:  p.Price1kg.Ptr(),
	}
}

// OrderItem is the immutable snapshot of one cart line inside an order.
type OrderItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Size        string          `json:"size"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Order is an order record as served by /payment/orders.
type Order struct {
	ID              ID              `json:"id"`
	CustomerName    string          `json:"customerName"`
	CustomerEmail   string          `json:"customerEmail"`
	CustomerPhone   string          `json:"customerPhone"`
	DeliveryAddress string          `json:"deliveryAddress"`
	Items           []OrderItem     `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingCharge  decimal.Decimal `json:"shippingCharge"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Status          string          `json:"status"`
	PaymentID       string          `json:"paymentId,omitempty"`
	RazorpayOrderID string          `json:"razorpayOrderId,omitempty"`
	PaymentError    string          `json:"paymentError,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Validate checks a fetched order.
func (o Order) Validate() error {
	if o.ID == "" {
		return ErrMissingID
	}
	if !enum.IsValidOrderStatus(o.Status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, o.Status)
	}
	return nil
}

// CreateOrderRequest is the body of POST /payment/orders.
type CreateOrderRequest struct {
	CustomerName      string          `json:"customerName"`
	CustomerEmail     string          `json:"customerEmail"`
	CustomerPhone     string          `json:"customerPhone"`
	DeliveryAddress   string          `json:"deliveryAddress"`
	Items             []OrderItem     `json:"items"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	ShippingCharge    decimal.Decimal `json:"shippingCharge"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	Status            string          `json:"status"`
	PaymentID         string          `json:"paymentId,omitempty"`
	RazorpayOrderID   string          `json:"razorpayOrderId,omitempty"`
	RazorpaySignature string          `json:"razorpaySignature,omitempty"`
	PaymentError      string          `json:"paymentError,omitempty"`
}

// Validate is run before the request leaves the process.
func (r CreateOrderRequest) Validate() error {
	if strings.TrimSpace(r.CustomerName) == "" || strings.TrimSpace(r.CustomerEmail) == "" ||
		strings.TrimSpace(r.CustomerPhone) == "" || strings.TrimSpace(r.DeliveryAddress) == "" {
		return ErrMissingCustomer
	}
	if len(r.Items) == 0 {
		return ErrEmptyItems
	}
	sum := decimal.Zero
	for i, it := range r.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		if it.Price.IsNegative() {
			return fmt.Errorf("item[%d]: %w", i, ErrNegativePrice)
		}
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	if !enum.IsValidOrderStatus(r.Status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, r.Status)
	}
	if !sum.Equal(r.Subtotal) {
		return ErrSubtotalItems
	}
	if !r.Subtotal.Add(r.ShippingCharge).Equal(r.TotalAmount) {
		return ErrTotalMismatch
	}
	return nil
}
