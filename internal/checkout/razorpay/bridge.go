// Package razorpay bridges the hosted Razorpay checkout, which runs in the
// shopper's browser, to the checkout.Gateway capability.
//
// Open registers a pending attempt. The browser fetches the attempt's
// options, runs the hosted checkout and reports back; Resolve hands the
// reported outcome to the waiting checkout exactly once. An attempt nobody
// reports on within the bridge's TTL is resolved as dismissed.
package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/amogham/storefront/internal/checkout"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUnknownAttempt = errors.New("unknown or finished payment attempt")
	ErrBadSignature   = errors.New("payment signature mismatch")
	ErrNoOwner        = errors.New("payment attempt has no owner")
)

// DefaultAttemptTTL is how long an attempt stays resolvable.
const DefaultAttemptTTL = 30 * time.Minute

type ownerKey struct{}

// WithOwner tags ctx with the shopper session that opens attempts.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

// Attempt is one open payment, as handed to the browser.
type Attempt struct {
	ID        string                  `json:"id"`
	Owner     string                  `json:"-"`
	Options   checkout.GatewayOptions `json:"options"`
	CreatedAt time.Time               `json:"createdAt"`
	ExpiresAt time.Time               `json:"expiresAt"`
	done      chan checkout.Outcome
	expiry    *time.Timer
}

var _ checkout.Gateway = (*Bridge)(nil)

// Bridge implements checkout.Gateway. Safe for concurrent use.
type Bridge struct {
	secret string
	ttl    time.Duration
	logger *zap.Logger

	mu       sync.Mutex
	attempts map[string]*Attempt
}

// NewBridge creates a Bridge. An empty secret disables signature checks; a
// non-positive ttl means DefaultAttemptTTL.
func NewBridge(secret string, ttl time.Duration, logger *zap.Logger) *Bridge {
	if ttl <= 0 {
		ttl = DefaultAttemptTTL
	}
	return &Bridge{
		secret:   secret,
		ttl:      ttl,
		logger:   logger,
		attempts: make(map[string]*Attempt),
	}
}

// Open registers an attempt owned by the session in ctx. The attempt
// outlives ctx: the shopper may report a payment after the request that
// opened it has gone. It expires as Dismissed after the bridge's TTL.
func (b *Bridge) Open(ctx context.Context, opts checkout.GatewayOptions) (<-chan checkout.Outcome, error) {
	owner := ownerFrom(ctx)
	if owner == "" {
		return nil, ErrNoOwner
	}

	now := time.Now()
	a := &Attempt{
		ID:        uuid.NewString(),
		Owner:     owner,
		Options:   opts,
		CreatedAt: now,
		ExpiresAt: now.Add(b.ttl),
		done:      make(chan checkout.Outcome, 1),
	}

	b.mu.Lock()
	b.attempts[a.ID] = a
	a.expiry = time.AfterFunc(b.ttl, func() { b.expire(a.ID) })
	b.mu.Unlock()

	b.logger.Info("payment attempt opened",
		zap.String("attempt_id", a.ID),
		zap.Int64("amount", opts.Amount),
	)
	return a.done, nil
}

func (b *Bridge) expire(id string) {
	b.mu.Lock()
	a, ok := b.attempts[id]
	if ok {
		delete(b.attempts, id)
	}
	b.mu.Unlock()

	if ok {
		b.logger.Info("payment attempt expired", zap.String("attempt_id", id))
		a.done <- checkout.Dismissed{}
	}
}

// Pending returns the newest open attempt of owner.
func (b *Bridge) Pending(owner string) (Attempt, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var latest *Attempt
	for _, a := range b.attempts {
		if a.Owner != owner {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	if latest == nil {
		return Attempt{}, false
	}
	return *latest, true
}

// Resolve delivers the outcome of attempt id. Only the owning session may
// resolve it, and a Success must carry a valid signature when the bridge
// has a secret and the payment was tied to a gateway order.
func (b *Bridge) Resolve(owner, id string, out checkout.Outcome) error {
	if s, ok := out.(checkout.Success); ok && b.secret != "" && s.GatewayOrderID != "" {
		if !VerifySignature(s.GatewayOrderID, s.PaymentID, s.Signature, b.secret) {
			b.logger.Warn("payment signature mismatch", zap.String("attempt_id", id))
			return ErrBadSignature
		}
	}

	b.mu.Lock()
	a, ok := b.attempts[id]
	if !ok || a.Owner != owner {
		b.mu.Unlock()
		return ErrUnknownAttempt
	}
	delete(b.attempts, id)
	a.expiry.Stop()
	b.mu.Unlock()

	a.done <- out
	return nil
}

// Len is the number of attempts waiting for an outcome.
func (b *Bridge) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.attempts)
}

// VerifySignature checks a Razorpay payment signature:
// hex(HMAC_SHA256(orderID + "|" + paymentID, secret)).
func VerifySignature(orderID, paymentID, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
