package checkout

import (
	"context"
)

// Authorization is a reserved charge for an exact amount.
type Authorization struct {
	Handle       string
	ClientSecret string
	AmountMinor  int64
	Currency     string
}

// ConfirmationStatus is the gateway-reported outcome of a charge.
type ConfirmationStatus string

const (
	ConfirmationSucceeded ConfirmationStatus = "succeeded"
	ConfirmationFailed    ConfirmationStatus = "failed"
	// ConfirmationPending means the gateway has not settled the outcome yet.
	ConfirmationPending ConfirmationStatus = "pending"
)

// Confirmation is the result of confirming or looking up an authorization.
type Confirmation struct {
	Status      ConfirmationStatus
	PaymentRef  string
	AmountMinor int64
	// DeclineCode and Message are set for ConfirmationFailed.
	DeclineCode string
	Message     string
	// HandleReusable is set when another confirmation may be attempted
	// against the same authorization.
	HandleReusable bool
}

// Gateway reserves and captures charges.
//
// Confirm returns a *DeclinedError for a rejected payment and an error
// matching ErrGatewayAmbiguous when the outcome is unknown (timeouts,
// network failures, gateway 5xx). Lookup reports the current state of an
// authorization without changing it.
type Gateway interface {
	CreateAuthorization(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (Authorization, error)
	Confirm(ctx context.Context, handle string, details PaymentDetails) (Confirmation, error)
	Lookup(ctx context.Context, handle string) (Confirmation, error)
}
