package razorpay_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/amogham/storefront/internal/checkout"
	"github.com/amogham/storefront/internal/checkout/razorpay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	sig := sign("order_1", "pay_1", "s3cret")
	assert.True(t, razorpay.VerifySignature("order_1", "pay_1", sig, "s3cret"))
	assert.False(t, razorpay.VerifySignature("order_1", "pay_2", sig, "s3cret"))
	assert.False(t, razorpay.VerifySignature("order_1", "pay_1", sig, "other"))
	assert.False(t, razorpay.VerifySignature("order_1", "pay_1", "", "s3cret"))
}

func TestBridge_OpenRequiresOwner(t *testing.T) {
	b := razorpay.NewBridge("", 0, zap.NewNop())
	_, err := b.Open(context.Background(), checkout.GatewayOptions{})
	assert.ErrorIs(t, err, razorpay.ErrNoOwner)
}

func TestBridge_ResolveDeliversOnce(t *testing.T) {
	b := razorpay.NewBridge("", 0, zap.NewNop())
	ctx := razorpay.WithOwner(context.Background(), "sid-1")

	ch, err := b.Open(ctx, checkout.GatewayOptions{Amount: 49900, Currency: "INR"})
	require.NoError(t, err)

	a, ok := b.Pending("sid-1")
	require.True(t, ok)
	assert.Equal(t, int64(49900), a.Options.Amount)

	_, ok = b.Pending("sid-2")
	assert.False(t, ok)

	// Another session cannot resolve it.
	assert.ErrorIs(t, b.Resolve("sid-2", a.ID, checkout.Dismissed{}), razorpay.ErrUnknownAttempt)

	require.NoError(t, b.Resolve("sid-1", a.ID, checkout.Failure{Code: "E", Description: "declined"}))
	assert.ErrorIs(t, b.Resolve("sid-1", a.ID, checkout.Dismissed{}), razorpay.ErrUnknownAttempt)

	select {
	case out := <-ch:
		assert.Equal(t, checkout.Failure{Code: "E", Description: "declined"}, out)
	case <-time.After(time.Second):
		t.Fatal("outcome not delivered")
	}
	assert.Equal(t, 0, b.Len())
}

func TestBridge_SignatureChecked(t *testing.T) {
	b := razorpay.NewBridge("s3cret", 0, zap.NewNop())
	ctx := razorpay.WithOwner(context.Background(), "sid")
	ch, err := b.Open(ctx, checkout.GatewayOptions{})
	require.NoError(t, err)
	a, _ := b.Pending("sid")

	bad := checkout.Success{PaymentID: "pay_1", GatewayOrderID: "order_1", Signature: "forged"}
	assert.ErrorIs(t, b.Resolve("sid", a.ID, bad), razorpay.ErrBadSignature)
	assert.Equal(t, 1, b.Len(), "attempt stays open after a forged signature")

	good := checkout.Success{PaymentID: "pay_1", GatewayOrderID: "order_1", Signature: sign("order_1", "pay_1", "s3cret")}
	require.NoError(t, b.Resolve("sid", a.ID, good))
	assert.Equal(t, good, <-ch)
}

func TestBridge_ResolvableAfterContextEnds(t *testing.T) {
	b := razorpay.NewBridge("", 0, zap.NewNop())
	ctx, cancel := context.WithCancel(razorpay.WithOwner(context.Background(), "sid"))

	ch, err := b.Open(ctx, checkout.GatewayOptions{Amount: 40000})
	require.NoError(t, err)
	a, ok := b.Pending("sid")
	require.True(t, ok)

	cancel()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, b.Len(), "the opening request ending does not drop the attempt")

	paid := checkout.Success{PaymentID: "pay_7"}
	require.NoError(t, b.Resolve("sid", a.ID, paid))
	assert.Equal(t, paid, <-ch)
}

func TestBridge_ExpiresAsDismissed(t *testing.T) {
	b := razorpay.NewBridge("", 20*time.Millisecond, zap.NewNop())
	ctx := razorpay.WithOwner(context.Background(), "sid")

	ch, err := b.Open(ctx, checkout.GatewayOptions{})
	require.NoError(t, err)
	a, _ := b.Pending("sid")
	assert.WithinDuration(t, a.CreatedAt.Add(20*time.Millisecond), a.ExpiresAt, time.Millisecond)

	select {
	case out := <-ch:
		assert.Equal(t, checkout.Dismissed{}, out)
	case <-time.After(time.Second):
		t.Fatal("attempt never expired")
	}
	assert.Equal(t, 0, b.Len())
	assert.ErrorIs(t, b.Resolve("sid", a.ID, checkout.Success{PaymentID: "late"}), razorpay.ErrUnknownAttempt)
}
