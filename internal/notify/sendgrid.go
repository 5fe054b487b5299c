package notify

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/refuel-athletics/gelstore/internal/domain/order"
)

var _ order.Notifier = (*Mailer)(nil)

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// MailerConfig configures the SendGrid mailer.
type MailerConfig struct {
	APIKey     string
	FromEmail  string
	FromName   string
	AccountURL string
}

// Mailer emails order confirmations through SendGrid.
type Mailer struct {
	client     sendClient
	from       *mail.Email
	accountURL string
	lg         *zap.Logger
}

// NewMailer creates a Mailer. The API key and sender address are required.
func NewMailer(cfg MailerConfig, lg *zap.Logger) (*Mailer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if cfg.FromEmail == "" {
		return nil, errors.New("sender email is required")
	}
	if cfg.FromName == "" {
		cfg.FromName = "ReFuel Athletics"
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Mailer{
		client:     sendgrid.NewSendClient(cfg.APIKey),
		from:       mail.NewEmail(cfg.FromName, cfg.FromEmail),
		accountURL: cfg.AccountURL,
		lg:         lg,
	}, nil
}

// SendOrderConfirmation renders and sends the confirmation email.
func (m *Mailer) SendOrderConfirmation(ctx context.Context, reference, email string, o *order.Order) error {
	if email == "" {
		return errors.New("recipient email is required")
	}
	msg, err := RenderConfirmation(reference, o, m.accountURL)
	if err != nil {
		return err
	}

	to := mail.NewEmail(o.Shipping.FullName(), email)
	resp, err := m.client.SendWithContext(ctx, mail.NewSingleEmail(m.from, msg.Subject, to, msg.Text, msg.HTML))
	if err != nil {
		return errors.Wrap(err, "sendgrid send")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}

	m.lg.Info("Confirmation email sent",
		zap.String("reference", reference),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}
