package notify

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func TestPublisher_SendOrderConfirmation(t *testing.T) {
	w := &mockWriter{}
	p := &Publisher{w: w, lg: zap.NewNop()}

	require.NoError(t, p.SendOrderConfirmation(context.Background(), "ORD-7K2M9QXA", "ana@example.com", testOrder()))
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "ORD-7K2M9QXA", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, EventOrderConfirmed, string(msg.Headers[0].Value))
	assert.Contains(t, string(msg.Value), `"payment_ref":"pi_123"`)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_WriteError(t *testing.T) {
	w := &mockWriter{err: errors.New("leader not available")}
	p := &Publisher{w: w, lg: zap.NewNop()}
	err := p.SendOrderConfirmation(context.Background(), "ORD-1", "ana@example.com", testOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish order event")
}

func TestNewPublisher(t *testing.T) {
	_, err := NewPublisher(PublisherConfig{Topic: "orders"}, nil)
	require.Error(t, err)
	_, err = NewPublisher(PublisherConfig{Brokers: []string{"localhost:9092"}}, nil)
	require.Error(t, err)

	p, err := NewPublisher(PublisherConfig{Brokers: []string{"localhost:9092"}, Topic: "orders"}, nil)
	require.NoError(t, err)
	require.NoError(t, p.Close())
}
