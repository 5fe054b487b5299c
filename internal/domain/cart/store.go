package cart

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/refuel-athletics/gelstore/internal/domain/session"
)

// Defaults for the remote write-through.
const (
	DefaultDebounce     = 800 * time.Millisecond
	DefaultWriteTimeout = 5 * time.Second
)

// Option configures a Store.
type Option func(*Store)

// WithDebounce sets the coalescing window for remote writes.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.window = d }
}

// WithWriteTimeout bounds a single remote load or save.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Store) { s.writeTimeout = d }
}

// WithLogger sets the logger used for swallowed persistence failures.
func WithLogger(lg *zap.Logger) Option {
	return func(s *Store) { s.lg = lg }
}

// Store is the in-memory cart of one shopper. Mutations apply immediately
// and schedule a trailing-edge debounced save of the latest snapshot. The
// in-memory cart stays authoritative: remote failures are logged, never
// returned to the caller.
//
// Store is safe for concurrent use.
type Store struct {
	persist      Persistence
	lg           *zap.Logger
	window       time.Duration
	writeTimeout time.Duration

	mu    sync.Mutex
	items []LineItem
	open  bool
	sess  *session.Session
	timer *time.Timer
	dirty bool
	// epoch changes on every sign-in and sign-out so writes scheduled for
	// a previous session are dropped.
	epoch uint64

	// writeMu keeps at most one save in flight.
	writeMu sync.Mutex
}

// NewStore creates an empty cart. persist may be nil, in which case the cart
// is purely local.
func NewStore(persist Persistence, opts ...Option) *Store {
	s := &Store{
		persist:      persist,
		window:       DefaultDebounce,
		writeTimeout: DefaultWriteTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	if s.lg == nil {
		s.lg = zap.NewNop()
	}
	return s
}

// SignIn binds the cart to sess and performs the one-time load: a remote
// snapshot, when present, replaces the local items. Local and remote carts
// are never merged. A failed load keeps the local cart.
func (s *Store) SignIn(ctx context.Context, sess session.Session) {
	s.mu.Lock()
	s.stopTimerLocked()
	s.epoch++
	epoch := s.epoch
	s.sess = &sess
	s.mu.Unlock()

	if s.persist == nil {
		return
	}

	loadCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	items, found, err := s.persist.Load(loadCtx, sess.ID)
	if err != nil {
		s.lg.Warn("Cart load failed, keeping local cart",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		return
	}
	if !found {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		// Signed out or switched session while loading.
		return
	}
	s.items = sanitize(items)
	s.dirty = false
	s.lg.Debug("Cart restored",
		zap.String("session_id", sess.ID),
		zap.Int("items", len(s.items)),
	)
}

// SignOut clears the local cart and drops any pending write. Nothing is
// written remotely on sign-out.
func (s *Store) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.epoch++
	s.sess = nil
	s.items = nil
	s.dirty = false
	s.open = false
}

// Session returns the bound session, if any.
func (s *Store) Session() (session.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return session.Session{}, false
	}
	return *s.sess, true
}

// AddItem appends item, or adds its quantity to an existing item with the
// same ID. The cart is marked open.
func (s *Store) AddItem(item LineItem) error {
	if err := item.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := false
	for i := range s.items {
		if s.items[i].ID == item.ID {
			if s.items[i].Qty+item.Qty > MaxQuantity {
				return errors.Wrapf(ErrInvalidItem, "quantity of item %s would exceed %d", item.ID, MaxQuantity)
			}
			s.items[i].Qty += item.Qty
			merged = true
			break
		}
	}
	if !merged {
		s.items = append(s.items, item)
	}
	s.open = true
	s.changedLocked()
	return nil
}

// UpdateQuantity sets the quantity of item id. A quantity of zero or less
// removes the item; one above MaxQuantity is rejected.
func (s *Store) UpdateQuantity(id string, qty int) error {
	if qty <= 0 {
		s.RemoveItem(id)
		return nil
	}
	if qty > MaxQuantity {
		return errors.Wrapf(ErrInvalidItem, "quantity %d above %d", qty, MaxQuantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Qty = qty
			s.changedLocked()
			return nil
		}
	}
	return ErrItemNotFound
}

// RemoveItem deletes item id. Removing a missing item is a no-op.
func (s *Store) RemoveItem(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			s.changedLocked()
			return
		}
	}
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.changedLocked()
}

// Snapshot returns the items with totals derived under the same lock, so
// totals always match the items.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NewSnapshot(s.items)
}

// IsOpen reports whether the cart drawer is shown.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// SetOpen shows or hides the cart drawer.
func (s *Store) SetOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = open
}

// Flush writes a pending snapshot immediately instead of waiting for the
// debounce window. It is used on shutdown.
func (s *Store) Flush(ctx context.Context) {
	s.mu.Lock()
	s.stopTimerLocked()
	epoch := s.epoch
	s.mu.Unlock()
	s.write(ctx, epoch)
}

func (s *Store) changedLocked() {
	s.dirty = true
	if s.sess == nil || s.persist == nil {
		return
	}
	s.stopTimerLocked()
	epoch := s.epoch
	s.timer = time.AfterFunc(s.window, func() {
		s.write(context.Background(), epoch)
	})
}

func (s *Store) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// write saves the newest snapshot. The snapshot is taken only after the
// previous write finished, so a late write never carries stale items.
func (s *Store) write(ctx context.Context, epoch uint64) {
	if s.persist == nil {
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.epoch != epoch || s.sess == nil || !s.dirty {
		s.mu.Unlock()
		return
	}
	sessionID := s.sess.ID
	items := cloneItems(s.items)
	s.dirty = false
	s.mu.Unlock()

	writeCtx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	if err := s.persist.Save(writeCtx, sessionID, items); err != nil {
		s.lg.Warn("Cart save failed",
			zap.String("session_id", sessionID),
			zap.Int("items", len(items)),
			zap.Error(err),
		)
		return
	}
	s.lg.Debug("Cart saved", zap.String("session_id", sessionID), zap.Int("items", len(items)))
}

// sanitize drops rows a remote snapshot should never contain: empty IDs,
// non-positive quantities and duplicate IDs (first wins).
func sanitize(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.validate() != nil {
			continue
		}
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}
