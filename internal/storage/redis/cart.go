// Package redis keeps cart snapshots in Redis with a sliding TTL.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/refuel-athletics/gelstore/internal/domain/cart"
)

// DefaultTTL is how long an untouched cart survives.
const DefaultTTL = 30 * 24 * time.Hour

var _ cart.Persistence = (*CartStore)(nil)

// CartStore implements cart.Persistence. When a backing store is set, Redis
// acts as a read-through cache in front of it and writes go to both.
type CartStore struct {
	client  redis.UniversalClient
	ttl     time.Duration
	backing cart.Persistence
	lg      *zap.Logger
}

// Option configures a CartStore.
type Option func(*CartStore)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *CartStore) { s.ttl = ttl }
}

// WithBacking puts the store in front of a durable persistence.
func WithBacking(p cart.Persistence) Option {
	return func(s *CartStore) { s.backing = p }
}

// WithLogger sets the logger.
func WithLogger(lg *zap.Logger) Option {
	return func(s *CartStore) { s.lg = lg }
}

// NewCartStore creates a CartStore on client.
func NewCartStore(client redis.UniversalClient, opts ...Option) *CartStore {
	s := &CartStore{client: client, ttl: DefaultTTL, lg: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load reads the snapshot, falling back to the backing store on a miss.
func (s *CartStore) Load(ctx context.Context, sessionID string) ([]cart.LineItem, bool, error) {
	data, err := s.client.Get(ctx, cartKey(sessionID)).Bytes()
	switch {
	case err == nil:
		var items []cart.LineItem
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, false, errors.Wrapf(err, "decode cart %s", sessionID)
		}
		return items, true, nil
	case errors.Is(err, redis.Nil):
	default:
		if s.backing == nil {
			return nil, false, errors.Wrapf(err, "redis get cart %s", sessionID)
		}
		s.lg.Warn("Redis cart read failed, using backing store",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	if s.backing == nil {
		return nil, false, nil
	}
	items, found, err := s.backing.Load(ctx, sessionID)
	if err != nil || !found {
		return items, found, err
	}
	if err := s.set(ctx, sessionID, items); err != nil {
		s.lg.Warn("Cart cache fill failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	return items, true, nil
}

// Save writes the snapshot and refreshes its TTL.
func (s *CartStore) Save(ctx context.Context, sessionID string, items []cart.LineItem) error {
	if s.backing != nil {
		if err := s.backing.Save(ctx, sessionID, items); err != nil {
			return err
		}
	}
	return s.set(ctx, sessionID, items)
}

func (s *CartStore) set(ctx context.Context, sessionID string, items []cart.LineItem) error {
	if items == nil {
		items = []cart.LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}
	if err := s.client.Set(ctx, cartKey(sessionID), data, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "redis set cart %s", sessionID)
	}
	return nil
}

func cartKey(sessionID string) string {
	return "gelstore:cart:" + sessionID
}
