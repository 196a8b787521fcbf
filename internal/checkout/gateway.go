package checkout

import (
	"context"
	"fmt"
)

// Prefill is the contact info shown pre-filled in the gateway UI.
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// GatewayOptions configures one payment attempt.
type GatewayOptions struct {
	Key         string            `json:"key"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Image       string            `json:"image"`
	Prefill     Prefill           `json:"prefill"`
	Notes       map[string]string `json:"notes"`
}

// Outcome is how a payment attempt ended: Success, Failure or Dismissed.
type Outcome interface {
	outcome()
}

// Success carries the gateway's payment reference.
type Success struct {
	PaymentID      string `json:"razorpay_payment_id"`
	GatewayOrderID string `json:"razorpay_order_id"`
	Signature      string `json:"razorpay_signature"`
}

// Failure carries the gateway's error.
type Failure struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Dismissed means the shopper closed the gateway without paying.
type Dismissed struct{}

func (Success) outcome()   {}
func (Failure) outcome()   {}
func (Dismissed) outcome() {}

// GatewayError is a payment failure reported by the gateway.
type GatewayError struct {
	Code        string
	Description string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("Code: %s, Desc: %s", e.Code, e.Description)
}

// Gateway is an opened-on-demand payment capability. Open starts an attempt
// and returns a channel that receives exactly one Outcome.
type Gateway interface {
	Open(ctx context.Context, opts GatewayOptions) (<-chan Outcome, error)
}
