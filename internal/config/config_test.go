package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("POLL_INTERVAL", "")
	t.Setenv("SHIPPING_FEE", "")
	t.Setenv("LOCAL_DELIVERY_CITY", "")

	cfg := Load()

	if cfg.Port != "8081" {
		t.Errorf("port: got %q, want 8081", cfg.Port)
	}
	if cfg.PollInterval != 10*time.Second {
		t.Errorf("poll interval: got %v, want 10s", cfg.PollInterval)
	}
	if cfg.ShippingFee.String() != "99" {
		t.Errorf("shipping fee: got %s, want 99", cfg.ShippingFee)
	}
	if cfg.LocalDeliveryCity != "Siddipet" {
		t.Errorf("local city: got %q", cfg.LocalDeliveryCity)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "3s")
	t.Setenv("SHIPPING_FEE", "120.50")
	t.Setenv("BACKEND_URL", "http://api.local/api/")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg := Load()

	if cfg.PollInterval != 3*time.Second {
		t.Errorf("poll interval: got %v", cfg.PollInterval)
	}
	if cfg.ShippingFee.String() != "120.5" {
		t.Errorf("shipping fee: got %s", cfg.ShippingFee)
	}
	if cfg.BackendURL != "http://api.local/api" {
		t.Errorf("backend url: got %q", cfg.BackendURL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("origins: got %v", cfg.AllowedOrigins)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "soon")
	t.Setenv("SHIPPING_FEE", "-5")

	cfg := Load()

	if cfg.PollInterval != 10*time.Second {
		t.Errorf("poll interval: got %v", cfg.PollInterval)
	}
	if cfg.ShippingFee.String() != "99" {
		t.Errorf("shipping fee: got %s", cfg.ShippingFee)
	}
}

func TestLoadPaymentAndCartTTLs(t *testing.T) {
	t.Setenv("PAYMENT_ATTEMPT_TTL", "")
	t.Setenv("CART_IDLE_TTL", "0s")

	cfg := Load()

	if cfg.PaymentAttemptTTL != 30*time.Minute {
		t.Errorf("payment attempt ttl: got %v, want 30m", cfg.PaymentAttemptTTL)
	}
	if cfg.CartIdleTTL != 30*time.Minute {
		t.Errorf("cart idle ttl: got %v, want 30m", cfg.CartIdleTTL)
	}

	t.Setenv("PAYMENT_ATTEMPT_TTL", "15m")
	t.Setenv("CART_IDLE_TTL", "2h")
	cfg = Load()
	if cfg.PaymentAttemptTTL != 15*time.Minute || cfg.CartIdleTTL != 2*time.Hour {
		t.Errorf("ttls: got %v and %v", cfg.PaymentAttemptTTL, cfg.CartIdleTTL)
	}
}
