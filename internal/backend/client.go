// Package backend is the HTTP client for the storefront's REST backend
// (catalog under /admin/products, orders under /payment/orders).
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/amogham/storefront/internal/enum"
	"go.uber.org/zap"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP error! status: %d", e.Status)
}

// Client talks to the backend. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Client; baseURL is the API root without trailing slash.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// --- Products ---

// ListProducts fetches the catalog. Records that fail validation are dropped.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	raw, err := c.list(ctx, "/admin/products")
	if err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(raw))
	for _, r := range raw {
		var p Product
		if err := json.Unmarshal(r, &p); err != nil {
			c.logger.Warn("drop undecodable product", zap.Error(err))
			continue
		}
		if err := p.Validate(); err != nil {
			c.logger.Warn("drop invalid product", zap.String("id", p.ID.String()), zap.Error(err))
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

// GetProduct returns the product with the given id from the catalog listing.
// The backend has no single-product endpoint.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	products, err := c.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID.String() == id {
			return &products[i], nil
		}
	}
	return nil, &APIError{Status: http.StatusNotFound, Message: "product not found"}
}

// CreateProduct posts a new product.
func (c *Client) CreateProduct(ctx context.Context, p Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/admin/products", p, nil)
}

// UpdateProduct replaces the product stored under id.
func (c *Client) UpdateProduct(ctx context.Context, id string, p Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, "/admin/products/"+url.PathEscape(id), p, nil)
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/products/"+url.PathEscape(id), nil, nil)
}

// --- Orders ---

// ListOrders fetches every order. Records that fail validation are dropped.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	raw, err := c.list(ctx, "/payment/orders")
	if err != nil {
		return nil, err
	}

	orders := make([]Order, 0, len(raw))
	for _, r := range raw {
		var o Order
		if err := json.Unmarshal(r, &o); err != nil {
			c.logger.Warn("drop undecodable order", zap.Error(err))
			continue
		}
		if err := o.Validate(); err != nil {
			c.logger.Warn("drop invalid order", zap.String("id", o.ID.String()), zap.Error(err))
			continue
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// CreateOrder validates and posts an order, returning the stored record.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid order: %w", err)
	}
	var out Order
	if err := c.do(ctx, http.MethodPost, "/payment/orders", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type statusBody struct {
	Status string `json:"status"`
}

// UpdateOrderStatus sets an order's status.
func (c *Client) UpdateOrderStatus(ctx context.Context, id, status string) error {
	if !enum.IsValidOrderStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return c.do(ctx, http.MethodPut, "/payment/orders/"+url.PathEscape(id)+"/status", statusBody{Status: status}, nil)
}

// DeleteOrder removes an order.
func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/payment/orders/"+url.PathEscape(id), nil, nil)
}

// --- Transport ---

// list GETs path and returns the elements of the JSON array it serves.
// A body that is not an array is treated as an empty list.
func (c *Client) list(ctx context.Context, path string) ([]json.RawMessage, error) {
	var body json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		c.logger.Warn("expected JSON array", zap.String("path", path))
		return []json.RawMessage{}, nil
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
	}
	return apiErr
}
