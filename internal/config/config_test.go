package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-checkout/internal/config"
)

// baseEnv clears keys that would otherwise leak in from the host environment.
func baseEnv(overrides map[string]string) map[string]string {
	env := map[string]string{
		"STORE_DRIVER":          "",
		"DATABASE_URL":          "",
		"PAYMENT_MODE":          "",
		"STRIPE_SECRET_KEY":     "",
		"STRIPE_PAYMENT_METHOD": "",
		"PAYPAL_CLIENT_ID":      "",
		"PAYPAL_CLIENT_SECRET":  "",
		"RATE_LIMIT_MAX":        "",
		"PORT":                  "",
	}
	for k, v := range overrides {
		env[k] = v
	}
	return env
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(baseEnv(nil))
	require.NoError(t, err)
	require.Equal(t, config.StoreMemory, cfg.StoreDriver)
	require.Equal(t, config.PaymentSandbox, cfg.PaymentMode)
	require.Equal(t, "EUR", cfg.CurrencyCode)
	require.Equal(t, 30, cfg.RateLimitMax)
	require.Equal(t, time.Minute, cfg.RateLimitWindow)
	require.Equal(t, 5*time.Minute, cfg.CatalogCacheTTL)
	require.Equal(t, ":8080", cfg.HTTPAddr())
}

func TestLoadInfersPostgresFromDatabaseURL(t *testing.T) {
	cfg, err := config.LoadForTests(baseEnv(map[string]string{
		"DATABASE_URL": "postgres://checkout@localhost:5432/checkout",
		"PORT":         ":9090",
	}))
	require.NoError(t, err)
	require.Equal(t, config.StorePostgres, cfg.StoreDriver)
	require.Equal(t, ":9090", cfg.HTTPAddr())
}

func TestLoadRejectsPostgresWithoutURL(t *testing.T) {
	_, err := config.LoadForTests(baseEnv(map[string]string{"STORE_DRIVER": "postgres"}))
	require.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoadLiveModeRequiresCredentials(t *testing.T) {
	_, err := config.LoadForTests(baseEnv(map[string]string{"PAYMENT_MODE": "live"}))
	require.ErrorContains(t, err, "STRIPE_SECRET_KEY")
	require.ErrorContains(t, err, "STRIPE_PAYMENT_METHOD")
	require.ErrorContains(t, err, "PAYPAL_CLIENT_ID")

	cfg, err := config.LoadForTests(baseEnv(map[string]string{
		"PAYMENT_MODE":          "LIVE",
		"STRIPE_SECRET_KEY":     "sk_live_123",
		"STRIPE_PAYMENT_METHOD": "pm_1QabcLiveCard",
		"PAYPAL_CLIENT_ID":      "id",
		"PAYPAL_CLIENT_SECRET":  "secret",
	}))
	require.NoError(t, err)
	require.Equal(t, config.PaymentLive, cfg.PaymentMode)
	require.Equal(t, "pm_1QabcLiveCard", cfg.StripePaymentMethod)
}

func TestLoadLiveModeHasNoTestCardFallback(t *testing.T) {
	_, err := config.LoadForTests(baseEnv(map[string]string{
		"PAYMENT_MODE":         "live",
		"STRIPE_SECRET_KEY":    "sk_live_123",
		"PAYPAL_CLIENT_ID":     "id",
		"PAYPAL_CLIENT_SECRET": "secret",
	}))
	require.EqualError(t, err, "STRIPE_PAYMENT_METHOD is required when PAYMENT_MODE=live")

	cfg, err := config.LoadForTests(baseEnv(nil))
	require.NoError(t, err)
	require.Equal(t, "pm_card_visa", cfg.StripePaymentMethod)
}

func TestLoadRejectsUnknownModes(t *testing.T) {
	_, err := config.LoadForTests(baseEnv(map[string]string{"PAYMENT_MODE": "crypto"}))
	require.Error(t, err)
	_, err = config.LoadForTests(baseEnv(map[string]string{"STORE_DRIVER": "mysql"}))
	require.Error(t, err)
	_, err = config.LoadForTests(baseEnv(map[string]string{"RATE_LIMIT_MAX": "0"}))
	require.Error(t, err)
}
