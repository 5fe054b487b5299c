package notify

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refuel-athletics/gelstore/internal/domain/order"
)

type countingNotifier struct {
	calls atomic.Int32
	err   error
}

func (n *countingNotifier) SendOrderConfirmation(context.Context, string, string, *order.Order) error {
	n.calls.Add(1)
	return n.err
}

func TestDispatcher(t *testing.T) {
	ok := &countingNotifier{}
	failing := &countingNotifier{err: errors.New("smtp down")}

	d := NewDispatcher(nil).Add("email", failing).Add("events", ok).Add("none", nil)
	assert.Equal(t, 2, d.Len())

	err := d.SendOrderConfirmation(context.Background(), "ORD-1", "ana@example.com", testOrder())
	require.Error(t, err)
	assert.Equal(t, int32(1), ok.calls.Load())
	assert.Equal(t, int32(1), failing.calls.Load())
}

func TestDispatcher_Empty(t *testing.T) {
	require.NoError(t, NewDispatcher(nil).SendOrderConfirmation(context.Background(), "ORD-1", "a@b.co", testOrder()))
}
