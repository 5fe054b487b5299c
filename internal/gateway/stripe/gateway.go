// Package stripe implements checkout.Gateway with Stripe PaymentIntents.
package stripe

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	stripeapi "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/refuel-athletics/gelstore/internal/domain/checkout"
)

// minimumAmount is the smallest USD charge Stripe accepts, in cents.
const minimumAmount = 50

var _ checkout.Gateway = (*Gateway)(nil)

// intents is the subset of the PaymentIntents client the gateway calls.
type intents interface {
	New(params *stripeapi.PaymentIntentParams) (*stripeapi.PaymentIntent, error)
	Confirm(id string, params *stripeapi.PaymentIntentConfirmParams) (*stripeapi.PaymentIntent, error)
	Get(id string, params *stripeapi.PaymentIntentParams) (*stripeapi.PaymentIntent, error)
}

// Config configures the Stripe client.
type Config struct {
	SecretKey  string
	Timeout    time.Duration
	MaxRetries int64
}

// Gateway reserves charges as PaymentIntents. The intent ID is both the
// authorization handle and the payment reference.
type Gateway struct {
	intents intents
	lg      *zap.Logger
}

// New creates a Gateway talking to the Stripe API.
func New(cfg Config, lg *zap.Logger) (*Gateway, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	backends := stripeapi.NewBackendsWithConfig(&stripeapi.BackendConfig{
		HTTPClient:        httpClient,
		LeveledLogger:     lg.Named("stripe").Sugar(),
		MaxNetworkRetries: stripeapi.Int64(cfg.MaxRetries),
	})
	api := client.New(cfg.SecretKey, backends)
	return &Gateway{intents: api.PaymentIntents, lg: lg}, nil
}

// CreateAuthorization creates a PaymentIntent for exactly amountMinor.
func (g *Gateway) CreateAuthorization(
	ctx context.Context,
	amountMinor int64,
	currency string,
	metadata map[string]string,
) (checkout.Authorization, error) {
	if amountMinor < minimumAmount {
		return checkout.Authorization{}, errors.Wrapf(checkout.ErrAmountTooSmall, "%d cents", amountMinor)
	}

	params := &stripeapi.PaymentIntentParams{
		Amount:   stripeapi.Int64(amountMinor),
		Currency: stripeapi.String(currency),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripeapi.Bool(true),
			AllowRedirects: stripeapi.String("never"),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.intents.New(params)
	if err != nil {
		return checkout.Authorization{}, errors.Wrap(err, "create payment intent")
	}
	return checkout.Authorization{
		Handle:       pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// Confirm confirms the intent with the tokenized payment method.
func (g *Gateway) Confirm(ctx context.Context, handle string, details checkout.PaymentDetails) (checkout.Confirmation, error) {
	if details.PaymentMethod == "" {
		return checkout.Confirmation{}, &checkout.ValidationError{
			Fields: map[string]string{"payment_method": "required"},
		}
	}

	params := &stripeapi.PaymentIntentConfirmParams{
		PaymentMethod: stripeapi.String(details.PaymentMethod),
	}
	params.Context = ctx

	pi, err := g.intents.Confirm(handle, params)
	if err != nil {
		return checkout.Confirmation{}, g.classify(handle, err)
	}
	return confirmation(pi), nil
}

// Lookup reads the intent's current state.
func (g *Gateway) Lookup(ctx context.Context, handle string) (checkout.Confirmation, error) {
	params := &stripeapi.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.intents.Get(handle, params)
	if err != nil {
		return checkout.Confirmation{}, errors.Wrapf(err, "get payment intent %s", handle)
	}
	return confirmation(pi), nil
}

// classify maps a confirm error onto the checkout error taxonomy. Anything
// that does not prove the charge failed is ambiguous.
func (g *Gateway) classify(handle string, err error) error {
	var se *stripeapi.Error
	if !errors.As(err, &se) {
		return errors.Wrapf(checkout.ErrGatewayAmbiguous, "confirm %s: %v", handle, err)
	}

	g.lg.Debug("Stripe confirm error",
		zap.String("handle", handle),
		zap.String("type", string(se.Type)),
		zap.String("code", string(se.Code)),
		zap.Int("status", se.HTTPStatusCode),
	)

	switch {
	case se.Type == stripeapi.ErrorTypeCard:
		code := string(se.DeclineCode)
		if code == "" {
			code = string(se.Code)
		}
		return &checkout.DeclinedError{
			Code:           code,
			Message:        se.Msg,
			HandleReusable: se.PaymentIntent == nil || se.PaymentIntent.Status != stripeapi.PaymentIntentStatusCanceled,
		}
	case se.Code == stripeapi.ErrorCodePaymentIntentUnexpectedState:
		// Typically an earlier confirmation already went through.
		return errors.Wrapf(checkout.ErrGatewayAmbiguous, "confirm %s: %s", handle, se.Msg)
	case se.Type == stripeapi.ErrorTypeInvalidRequest && se.HTTPStatusCode < http.StatusInternalServerError:
		field := se.Param
		if field == "" {
			field = "payment_method"
		}
		return &checkout.ValidationError{Fields: map[string]string{field: se.Msg}}
	default:
		return errors.Wrapf(checkout.ErrGatewayAmbiguous, "confirm %s: %s", handle, se.Msg)
	}
}

func confirmation(pi *stripeapi.PaymentIntent) checkout.Confirmation {
	c := checkout.Confirmation{
		PaymentRef:  pi.ID,
		AmountMinor: pi.Amount,
	}
	switch pi.Status {
	case stripeapi.PaymentIntentStatusSucceeded:
		c.Status = checkout.ConfirmationSucceeded
	case stripeapi.PaymentIntentStatusRequiresPaymentMethod, stripeapi.PaymentIntentStatusRequiresConfirmation:
		c.Status = checkout.ConfirmationFailed
		c.HandleReusable = true
	case stripeapi.PaymentIntentStatusCanceled:
		c.Status = checkout.ConfirmationFailed
		c.Message = "payment was canceled"
	default:
		// processing, requires_action, requires_capture
		c.Status = checkout.ConfirmationPending
	}
	if c.Status == checkout.ConfirmationFailed && pi.LastPaymentError != nil {
		c.DeclineCode = string(pi.LastPaymentError.DeclineCode)
		if c.DeclineCode == "" {
			c.DeclineCode = string(pi.LastPaymentError.Code)
		}
		c.Message = pi.LastPaymentError.Msg
	}
	return c
}
