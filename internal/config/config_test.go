package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Setenv("REMOTE_API_BASE_URL", "https://backend.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "https://backend.example", cfg.Remote.BaseURL)
	assert.Equal(t, 5*time.Minute, cfg.Checkout.BuyNowCouponTTL)
}

func TestLoad_RequiresRemoteBaseURL(t *testing.T) {
	t.Setenv("REMOTE_API_BASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REMOTE_API_BASE_URL")
}

func TestLoad_OverridesFromEnvironment(t *testing.T) {
	t.Setenv("REMOTE_API_BASE_URL", "https://backend.example")
	t.Setenv("PORT", "9090")
	t.Setenv("BUY_NOW_COUPON_TTL", "2m")
	t.Setenv("BYPASS_PAYMENT_CHECKOUT", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.Checkout.BuyNowCouponTTL)
	assert.False(t, cfg.Checkout.BypassPayment)
}

func TestLoad_RejectsInvalidTTL(t *testing.T) {
	t.Setenv("REMOTE_API_BASE_URL", "https://backend.example")
	t.Setenv("BUY_NOW_COUPON_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BUY_NOW_COUPON_TTL")
}
