package notify

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/refuel-athletics/gelstore/internal/domain/order"
)

var _ order.Notifier = (*Dispatcher)(nil)

// Dispatcher fans a confirmation out to every configured notifier. A failing
// notifier does not stop the others.
type Dispatcher struct {
	targets map[string]order.Notifier
	lg      *zap.Logger
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(lg *zap.Logger) *Dispatcher {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Dispatcher{targets: make(map[string]order.Notifier), lg: lg}
}

// Add registers n under name. Nil notifiers are ignored.
func (d *Dispatcher) Add(name string, n order.Notifier) *Dispatcher {
	if n != nil {
		d.targets[name] = n
	}
	return d
}

// Len reports the number of registered notifiers.
func (d *Dispatcher) Len() int { return len(d.targets) }

// SendOrderConfirmation notifies all targets concurrently and returns the
// first error.
func (d *Dispatcher) SendOrderConfirmation(ctx context.Context, reference, email string, o *order.Order) error {
	var g errgroup.Group
	for name, n := range d.targets {
		g.Go(func() error {
			if err := n.SendOrderConfirmation(ctx, reference, email, o); err != nil {
				d.lg.Warn("Notification failed",
					zap.String("notifier", name),
					zap.String("reference", reference),
					zap.Error(err),
				)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
