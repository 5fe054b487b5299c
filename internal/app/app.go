package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/refuel-athletics/gelstore/internal/domain/cart"
	"github.com/refuel-athletics/gelstore/internal/domain/checkout"
	"github.com/refuel-athletics/gelstore/internal/domain/formula"
	"github.com/refuel-athletics/gelstore/internal/domain/order"
	"github.com/refuel-athletics/gelstore/internal/gateway/stripe"
	"github.com/refuel-athletics/gelstore/internal/handler"
	"github.com/refuel-athletics/gelstore/internal/notify"
	"github.com/refuel-athletics/gelstore/internal/storage/memory"
	"github.com/refuel-athletics/gelstore/internal/storage/postgres"
	"github.com/refuel-athletics/gelstore/internal/storage/redis"
	"github.com/refuel-athletics/gelstore/pkg/health"
	"github.com/refuel-athletics/gelstore/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("cart_backend", cfg.Cart.Backend),
	)

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Repositories.
	orderRepo := postgres.NewOrderRepository(pool)
	formulaRepo := postgres.NewFormulaRepository(pool)

	var carts cart.Persistence
	switch cfg.Cart.Backend {
	case CartBackendMemory:
		carts = memory.NewCartRepository()
	case CartBackendRedis:
		opts, err := goredis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return errors.Wrap(err, "parse redis url")
		}
		rdb := goredis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		healthSvc.AddReadinessCheck("redis", 2*time.Second, health.RedisCheck(rdb))
		carts = redis.NewCartStore(rdb,
			redis.WithTTL(cfg.Redis.CartTTL),
			redis.WithBacking(postgres.NewCartRepository(pool)),
			redis.WithLogger(lg.Named("cart.redis")),
		)
	default:
		carts = postgres.NewCartRepository(pool)
	}

	healthSvc.Start(ctx, 10*time.Second)

	// Domain services.
	ledger := order.NewLedger(orderRepo, lg.Named("ledger"))
	library := formula.NewLibrary(formulaRepo)

	gateway, err := stripe.New(stripe.Config{
		SecretKey:  cfg.Stripe.SecretKey,
		Timeout:    cfg.Stripe.Timeout,
		MaxRetries: cfg.Stripe.MaxRetries,
	}, lg.Named("stripe"))
	if err != nil {
		return errors.Wrap(err, "create stripe gateway")
	}

	notifier, closeNotifier, err := newNotifier(cfg, lg)
	if err != nil {
		return errors.Wrap(err, "create notifier")
	}
	defer closeNotifier()

	pricing, err := cfg.Checkout.Pricing()
	if err != nil {
		return errors.Wrap(err, "checkout pricing")
	}
	checkoutOpts := []checkout.Option{
		checkout.WithPricing(pricing),
		checkout.WithTracerProvider(m.TracerProvider()),
		checkout.WithMeterProvider(m.MeterProvider()),
	}
	if notifier != nil {
		checkoutOpts = append(checkoutOpts, checkout.WithNotifier(notifier))
	}

	shoppers := handler.NewShoppers(carts, gateway, ledger, handler.ShoppersConfig{
		IdleTimeout: cfg.Cart.IdleTimeout,
		CartOptions: []cart.Option{
			cart.WithDebounce(cfg.Cart.Debounce),
			cart.WithWriteTimeout(cfg.Cart.WriteTimeout),
			cart.WithLogger(lg.Named("cart")),
		},
		CheckoutOptions: checkoutOpts,
	}, lg.Named("shoppers"))
	go shoppers.Run(ctx, time.Minute)

	h := handler.New(handler.Config{
		SecureCookies:       cfg.Session.SecureCookies,
		CookieMaxAge:        cfg.Session.CookieMaxAge,
		IdentityHeader:      cfg.Session.IdentityHeader,
		IdentityEmailHeader: cfg.Session.IdentityEmailHeader,
		IdentityNameHeader:  cfg.Session.IdentityNameHeader,
		TrustBodyIdentity:   cfg.Session.TrustBodyIdentity,
	}, shoppers, library, ledger)

	// Router: health endpoints + storefront API on one server.
	mux := chi.NewRouter()
	mux.Get("/livez", healthSvc.LiveEndpoint)
	mux.Get("/readyz", healthSvc.ReadyEndpoint)
	mux.Mount("/api", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// Confirm waits on the gateway.
		WriteTimeout:   45 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", handler.SessionHeader},
				ExposeHeaders:    []string{handler.SessionHeader, "X-Request-ID"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:     cfg.RateLimit.Max,
				Window:  cfg.RateLimit.Window,
				KeyFunc: httpmiddleware.SessionKey(handler.SessionHeader),
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.RouteContext(),
			httpmiddleware.Instrument("gelstore", m),
			httpmiddleware.LogRequests(),
			httpmiddleware.Labeler(),
		),
	}
	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		// Pending cart writes and confirmation emails outlive the requests.
		shoppers.Shutdown(shutdownCtx)
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newNotifier fans confirmations out to every configured channel. It
// returns a nil notifier when none is configured.
func newNotifier(cfg *Config, lg *zap.Logger) (order.Notifier, func(), error) {
	d := notify.NewDispatcher(lg.Named("notify"))
	closeFn := func() {}

	if cfg.SendGrid.APIKey != "" {
		mailer, err := notify.NewMailer(notify.MailerConfig{
			APIKey:     cfg.SendGrid.APIKey,
			FromEmail:  cfg.SendGrid.FromEmail,
			FromName:   cfg.SendGrid.FromName,
			AccountURL: cfg.AccountURL,
		}, lg.Named("notify.email"))
		if err != nil {
			return nil, closeFn, errors.Wrap(err, "sendgrid")
		}
		d.Add("email", mailer)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := notify.NewPublisher(notify.PublisherConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}, lg.Named("notify.kafka"))
		if err != nil {
			return nil, closeFn, errors.Wrap(err, "kafka")
		}
		d.Add("kafka", pub)
		closeFn = func() {
			if err := pub.Close(); err != nil {
				lg.Warn("Close kafka publisher", zap.Error(err))
			}
		}
	}

	if d.Len() == 0 {
		lg.Info("No order notification channel configured")
		return nil, closeFn, nil
	}
	return d, closeFn, nil
}
