package notify

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-faster/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSendClient struct {
	sent []*mail.SGMailV3
	resp *rest.Response
	err  error
}

func (m *mockSendClient) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	m.sent = append(m.sent, email)
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func newTestMailer(c *mockSendClient) *Mailer {
	return &Mailer{
		client: c,
		from:   mail.NewEmail("ReFuel Athletics", "orders@refuel.example"),
		lg:     zap.NewNop(),
	}
}

func TestMailer_SendOrderConfirmation(t *testing.T) {
	c := &mockSendClient{resp: &rest.Response{StatusCode: http.StatusAccepted}}
	err := newTestMailer(c).SendOrderConfirmation(context.Background(), "ORD-7K2M9QXA", "ana@example.com", testOrder())
	require.NoError(t, err)

	require.Len(t, c.sent, 1)
	msg := c.sent[0]
	assert.Equal(t, "Your ReFuel order is confirmed — ORD-7K2M9QXA", msg.Subject)
	assert.Equal(t, "orders@refuel.example", msg.From.Address)
	require.Len(t, msg.Personalizations, 1)
	assert.Equal(t, "ana@example.com", msg.Personalizations[0].To[0].Address)
}

func TestMailer_Errors(t *testing.T) {
	t.Run("provider rejects", func(t *testing.T) {
		c := &mockSendClient{resp: &rest.Response{StatusCode: http.StatusUnauthorized, Body: "bad key"}}
		err := newTestMailer(c).SendOrderConfirmation(context.Background(), "ORD-1", "ana@example.com", testOrder())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})
	t.Run("transport", func(t *testing.T) {
		c := &mockSendClient{err: errors.New("connection refused")}
		err := newTestMailer(c).SendOrderConfirmation(context.Background(), "ORD-1", "ana@example.com", testOrder())
		require.Error(t, err)
	})
	t.Run("no recipient", func(t *testing.T) {
		c := &mockSendClient{}
		err := newTestMailer(c).SendOrderConfirmation(context.Background(), "ORD-1", "", testOrder())
		require.Error(t, err)
		assert.Empty(t, c.sent)
	})
}

func TestNewMailer(t *testing.T) {
	_, err := NewMailer(MailerConfig{FromEmail: "orders@refuel.example"}, nil)
	require.Error(t, err)
	_, err = NewMailer(MailerConfig{APIKey: "SG.x"}, nil)
	require.Error(t, err)

	m, err := NewMailer(MailerConfig{APIKey: "SG.x", FromEmail: "orders@refuel.example"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ReFuel Athletics", m.from.Name)
}
