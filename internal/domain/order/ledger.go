package order

import (
	"context"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

const (
	seenCapacity = 1_000_000
	seenFPR      = 0.001
)

var (
	_ Sink    = (*Ledger)(nil)
	_ History = (*Ledger)(nil)
)

// Ledger records orders exactly once per payment. A bloom filter of payment
// references already recorded by this process short-circuits the common
// path: a miss means the payment is new and goes straight to insert; a hit
// is confirmed against the repository first.
type Ledger struct {
	repo Repository
	lg   *zap.Logger
	now  func() time.Time

	mu   sync.Mutex
	seen *bloom.BloomFilter
}

// NewLedger creates a Ledger over repo.
func NewLedger(repo Repository, lg *zap.Logger) *Ledger {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Ledger{
		repo: repo,
		lg:   lg,
		now:  time.Now,
		seen: bloom.NewWithEstimates(seenCapacity, seenFPR),
	}
}

// CreateOrder validates and persists o. Reference, Status and CreatedAt are
// filled in when empty. Recording a payment that already has an order
// returns the existing reference and writes nothing.
func (l *Ledger) CreateOrder(ctx context.Context, o *Order) (string, error) {
	if err := o.Validate(); err != nil {
		return "", err
	}

	if l.maybeSeen(o.PaymentRef) {
		existing, err := l.repo.FindByPaymentRef(ctx, o.PaymentRef)
		switch {
		case err == nil:
			l.lg.Info("Order already recorded for payment",
				zap.String("payment_ref", o.PaymentRef),
				zap.String("reference", existing.Reference),
			)
			return existing.Reference, nil
		case errors.Is(err, ErrNotFound):
			// False positive.
		default:
			return "", errors.Wrap(err, "find order by payment")
		}
	}

	if o.Reference == "" {
		o.Reference = NewReference()
	}
	if o.Status == "" {
		o.Status = StatusPaid
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = l.now().UTC()
	}

	ref, created, err := l.repo.Create(ctx, o)
	if err != nil {
		return "", errors.Wrap(err, "create order")
	}
	l.markSeen(o.PaymentRef)

	if created {
		l.lg.Info("Order recorded",
			zap.String("reference", ref),
			zap.String("payment_ref", o.PaymentRef),
			zap.String("total", o.Total.StringFixed(2)),
		)
	}
	return ref, nil
}

// ListByUser returns the user's orders, newest first.
func (l *Ledger) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	if userID == "" {
		return nil, nil
	}
	orders, err := l.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

func (l *Ledger) maybeSeen(paymentRef string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen.TestString(paymentRef)
}

func (l *Ledger) markSeen(paymentRef string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen.AddString(paymentRef)
}
