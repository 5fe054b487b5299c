package app

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Addr:        "0.0.0.0:8080",
		DatabaseURL: "postgres://localhost/gelstore",
		Stripe:      StripeConfig{SecretKey: "sk_test_123"},
		Checkout:    CheckoutConfig{TaxRate: "0.08", FreeShippingThreshold: "50"},
		Cart:        CartConfig{Backend: CartBackendPostgres},
	}
}

func TestCheckoutConfig_Pricing(t *testing.T) {
	p, err := CheckoutConfig{TaxRate: "0.0725", FreeShippingThreshold: "75"}.Pricing()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("0.0725").Equal(p.TaxRate))
	assert.True(t, decimal.NewFromInt(75).Equal(p.FreeShippingThreshold))
	assert.Equal(t, "usd", p.Currency)

	for _, c := range []CheckoutConfig{
		{TaxRate: "eight", FreeShippingThreshold: "50"},
		{TaxRate: "1.5", FreeShippingThreshold: "50"},
		{TaxRate: "-0.01", FreeShippingThreshold: "50"},
		{TaxRate: "0.08", FreeShippingThreshold: "-1"},
	} {
		_, err := c.Pricing()
		assert.Error(t, err, "%+v", c)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no database", func(c *Config) { c.DatabaseURL = "" }},
		{"no stripe key", func(c *Config) { c.Stripe.SecretKey = "" }},
		{"redis without url", func(c *Config) { c.Cart.Backend = CartBackendRedis }},
		{"unknown backend", func(c *Config) { c.Cart.Backend = "mongo" }},
		{"bad tax", func(c *Config) { c.Checkout.TaxRate = "x" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			assert.Error(t, c.validate())
		})
	}
}

func TestConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("REDIS_URL", "redis://platform:6379/0")
	t.Setenv("PORT", "9090")

	c := Config{Addr: "0.0.0.0:8080"}
	c.applyPlatformDefaults()
	assert.Equal(t, "postgres://platform/db", c.DatabaseURL)
	assert.Equal(t, "redis://platform:6379/0", c.Redis.URL)
	assert.Equal(t, "0.0.0.0:9090", c.Addr)

	c = Config{Addr: "127.0.0.1:7000", DatabaseURL: "postgres://explicit/db"}
	c.applyPlatformDefaults()
	assert.Equal(t, "postgres://explicit/db", c.DatabaseURL)
	assert.Equal(t, "127.0.0.1:7000", c.Addr)
}
