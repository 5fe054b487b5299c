package handler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/refuel-athletics/gelstore/internal/domain/cart"
	"github.com/refuel-athletics/gelstore/internal/domain/checkout"
	"github.com/refuel-athletics/gelstore/internal/domain/order"
	"github.com/refuel-athletics/gelstore/internal/domain/session"
)

// Shopper is the server-side state behind one browser token: the session,
// its cart and its checkout.
type Shopper struct {
	Token string
	Cart  *cart.Store

	mu       sync.Mutex
	sess     session.Session
	checkout *checkout.Orchestrator
	lastSeen time.Time
}

// Session returns the current session.
func (s *Shopper) Session() session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

// Checkout returns the current checkout.
func (s *Shopper) Checkout() *checkout.Orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkout
}

// ShoppersConfig configures a Shoppers registry.
type ShoppersConfig struct {
	// IdleTimeout evicts shoppers not seen for this long.
	IdleTimeout time.Duration
	// CartOptions apply to every new cart.
	CartOptions []cart.Option
	// CheckoutOptions apply to every new checkout.
	CheckoutOptions []checkout.Option
}

// Shoppers owns the per-token shopper state.
type Shoppers struct {
	persist cart.Persistence
	gateway checkout.Gateway
	sink    order.Sink
	cfg     ShoppersConfig
	lg      *zap.Logger
	now     func() time.Time

	mu    sync.Mutex
	byTok map[string]*Shopper
}

// NewShoppers creates an empty registry. persist may be nil, in which case
// carts live only in memory.
func NewShoppers(
	persist cart.Persistence,
	gw checkout.Gateway,
	sink order.Sink,
	cfg ShoppersConfig,
	lg *zap.Logger,
) *Shoppers {
	if lg == nil {
		lg = zap.NewNop()
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 2 * time.Hour
	}
	return &Shoppers{
		persist: persist,
		gateway: gw,
		sink:    sink,
		cfg:     cfg,
		lg:      lg,
		now:     time.Now,
		byTok:   make(map[string]*Shopper),
	}
}

// Get returns the shopper for token, creating an anonymous one when token is
// empty or unknown.
func (r *Shoppers) Get(token string) *Shopper {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.byTok[token]; ok && token != "" {
		s.mu.Lock()
		s.lastSeen = r.now()
		s.mu.Unlock()
		return s
	}

	tok := uuid.NewString()
	sess := session.NewAnonymous()
	s := &Shopper{
		Token:    tok,
		Cart:     cart.NewStore(r.persist, append([]cart.Option{cart.WithLogger(r.lg)}, r.cfg.CartOptions...)...),
		sess:     sess,
		lastSeen: r.now(),
	}
	s.checkout = r.newCheckout(s.Cart, sess)
	r.byTok[tok] = s
	return s
}

// SignIn binds the shopper to a user. The remote cart, if any, replaces the
// local one and checkout restarts for the new session.
func (r *Shoppers) SignIn(ctx context.Context, s *Shopper, userID, email, name string) session.Session {
	s.mu.Lock()
	sess := s.sess.WithUser(userID, email, name)
	s.sess = sess
	old := s.checkout
	s.checkout = r.newCheckout(s.Cart, sess)
	s.mu.Unlock()

	old.Close()
	s.Cart.SignIn(ctx, sess)
	r.lg.Info("Shopper signed in", zap.String("session_id", sess.ID))
	return sess
}

// SignOut drops the user binding. The local cart is cleared without a
// remote write.
func (r *Shoppers) SignOut(s *Shopper) session.Session {
	s.mu.Lock()
	sess := session.NewAnonymous()
	s.sess = sess
	old := s.checkout
	s.checkout = r.newCheckout(s.Cart, sess)
	s.mu.Unlock()

	old.Close()
	s.Cart.SignOut()
	return sess
}

// Evict flushes and forgets shoppers idle longer than the configured
// timeout. It returns how many were removed.
func (r *Shoppers) Evict(ctx context.Context) int {
	cutoff := r.now().Add(-r.cfg.IdleTimeout)

	r.mu.Lock()
	var idle []*Shopper
	for tok, s := range r.byTok {
		s.mu.Lock()
		stale := s.lastSeen.Before(cutoff)
		s.mu.Unlock()
		if stale {
			idle = append(idle, s)
			delete(r.byTok, tok)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.Cart.Flush(ctx)
		s.Checkout().Wait()
	}
	return len(idle)
}

// Run evicts idle shoppers every interval until ctx is done.
func (r *Shoppers) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Evict(ctx); n > 0 {
				r.lg.Debug("Evicted idle shoppers", zap.Int("count", n))
			}
		}
	}
}

// Shutdown writes every pending cart change and waits for in-flight
// notifications.
func (r *Shoppers) Shutdown(ctx context.Context) {
	r.mu.Lock()
	all := make([]*Shopper, 0, len(r.byTok))
	for _, s := range r.byTok {
		all = append(all, s)
	}
	r.mu.Unlock()

	for _, s := range all {
		s.Cart.Flush(ctx)
		s.Checkout().Wait()
	}
	r.lg.Info("Shopper state flushed", zap.Int("shoppers", len(all)))
}

func (r *Shoppers) newCheckout(c *cart.Store, sess session.Session) *checkout.Orchestrator {
	opts := append([]checkout.Option{checkout.WithLogger(r.lg)}, r.cfg.CheckoutOptions...)
	return checkout.New(c, r.gateway, r.sink, sess, opts...)
}
