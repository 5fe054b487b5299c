package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/refuel-athletics/gelstore/internal/domain/checkout"
)

// Cart persistence backends.
const (
	CartBackendPostgres = "postgres"
	CartBackendRedis    = "redis"
	CartBackendMemory   = "memory"
)

// Config holds the complete application configuration, loadable from
// environment variables (GEL_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (GEL_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	AccountURL  string `default:"" usage:"Account page linked from confirmation emails" flag:"account-url"`
	Redis       RedisConfig
	Stripe      StripeConfig
	SendGrid    SendGridConfig
	Kafka       KafkaConfig
	Checkout    CheckoutConfig
	Cart        CartConfig
	Session     SessionConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// RedisConfig points at the cart cache.
type RedisConfig struct {
	URL     string        `usage:"Redis URL (GEL_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	CartTTL time.Duration `default:"720h" usage:"Cached cart lifetime" flag:"redis-cart-ttl"`
}

// StripeConfig configures the payment gateway.
type StripeConfig struct {
	SecretKey  string        `usage:"Stripe secret key" flag:"stripe-secret-key"`
	Timeout    time.Duration `default:"30s" usage:"Stripe request timeout" flag:"stripe-timeout"`
	MaxRetries int64         `default:"2" usage:"Stripe network retries" flag:"stripe-max-retries"`
}

// SendGridConfig configures confirmation emails. Empty APIKey disables them.
type SendGridConfig struct {
	APIKey    string `usage:"SendGrid API key" flag:"sendgrid-api-key"`
	FromEmail string `default:"orders@refuelathletics.com" usage:"Sender address" flag:"sendgrid-from-email"`
	FromName  string `default:"ReFuel Athletics" usage:"Sender name" flag:"sendgrid-from-name"`
}

// KafkaConfig configures order events. Empty Brokers disables them.
type KafkaConfig struct {
	Brokers      []string      `usage:"Kafka bootstrap brokers" flag:"kafka-brokers"`
	Topic        string        `default:"gelstore.orders" usage:"Order event topic" flag:"kafka-topic"`
	WriteTimeout time.Duration `default:"10s" usage:"Kafka write timeout" flag:"kafka-write-timeout"`
}

// CheckoutConfig overrides the checkout pricing rules.
type CheckoutConfig struct {
	TaxRate               string `default:"0.08" usage:"Sales tax rate applied to the subtotal" flag:"tax-rate"`
	FreeShippingThreshold string `default:"50" usage:"Subtotal from which shipping is free" flag:"free-shipping-threshold"`
}

// Pricing returns the checkout pricing with the configured overrides.
func (c CheckoutConfig) Pricing() (checkout.Pricing, error) {
	p := checkout.DefaultPricing()
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return p, errors.Wrap(err, "parse tax rate")
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return p, errors.Errorf("tax rate %s out of range", rate)
	}
	threshold, err := decimal.NewFromString(c.FreeShippingThreshold)
	if err != nil {
		return p, errors.Wrap(err, "parse free shipping threshold")
	}
	if threshold.IsNegative() {
		return p, errors.Errorf("free shipping threshold %s is negative", threshold)
	}
	p.TaxRate = rate
	p.FreeShippingThreshold = threshold
	return p, nil
}

// CartConfig controls the cart write-through.
type CartConfig struct {
	Backend      string        `default:"postgres" usage:"Cart persistence: postgres, redis or memory" flag:"cart-backend"`
	Debounce     time.Duration `default:"800ms" usage:"Coalescing window for cart writes" flag:"cart-debounce"`
	WriteTimeout time.Duration `default:"5s" usage:"Timeout of one cart load or save" flag:"cart-write-timeout"`
	IdleTimeout  time.Duration `default:"2h" usage:"Evict shopper state idle for this long" flag:"cart-idle-timeout"`
}

// SessionConfig controls the session cookie and the sign-in identity.
type SessionConfig struct {
	SecureCookies bool          `default:"true" usage:"Set Secure on the session cookie" flag:"secure-cookies"`
	CookieMaxAge  time.Duration `default:"720h" usage:"Session cookie lifetime" flag:"cookie-max-age"`
	// The auth proxy must strip these headers from client requests.
	IdentityHeader      string `default:"X-Auth-User-Id" usage:"Header carrying the verified user ID" flag:"identity-header"`
	IdentityEmailHeader string `default:"X-Auth-User-Email" usage:"Header carrying the verified email" flag:"identity-email-header"`
	IdentityNameHeader  string `default:"X-Auth-User-Name" usage:"Header carrying the verified display name" flag:"identity-name-header"`
	TrustBodyIdentity   bool   `default:"false" usage:"Accept user_id from the sign-in body (development only)" flag:"trust-body-identity"`
}

// RateLimitConfig controls the per-client token bucket rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"true" usage:"Allow credentials (session cookie)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "GEL",
		Files:     []string{"config.yaml", "/etc/gelstore/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set GEL_DATABASE_URL or DATABASE_URL")
	}
	if c.Stripe.SecretKey == "" {
		return errors.New("stripe secret key is required: set GEL_STRIPE_SECRET_KEY")
	}
	switch c.Cart.Backend {
	case CartBackendPostgres, CartBackendMemory:
	case CartBackendRedis:
		if c.Redis.URL == "" {
			return errors.New("redis cart backend needs GEL_REDIS_URL or REDIS_URL")
		}
	default:
		return errors.Errorf("unknown cart backend %q", c.Cart.Backend)
	}
	if _, err := c.Checkout.Pricing(); err != nil {
		return errors.Wrap(err, "checkout")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's GEL_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Redis.URL == "" {
		c.Redis.URL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
