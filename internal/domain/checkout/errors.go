package checkout

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-faster/errors"
)

// Sentinel errors for checkout transitions.
var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrGatewayDeclined matches every *DeclinedError.
	ErrGatewayDeclined = errors.New("payment declined")
	// ErrGatewayAmbiguous means the gateway outcome is unknown. No order is
	// written until reconciliation reports success.
	ErrGatewayAmbiguous = errors.New("payment outcome unknown")
	// ErrBusy is returned while another transition of the same session runs.
	ErrBusy = errors.New("checkout operation in progress")
	// ErrInvalidTransition is returned for a transition the current phase
	// does not allow.
	ErrInvalidTransition = errors.New("invalid checkout transition")
	// ErrEmptyCart is returned when entering payment with nothing to buy.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrAmountTooSmall is returned when the total is below the gateway minimum.
	ErrAmountTooSmall = errors.New("amount below gateway minimum")
	// ErrAmountTooLarge is returned when the total is above the gateway maximum.
	ErrAmountTooLarge = errors.New("amount above gateway maximum")
)

// ValidationError lists malformed fields by name. It blocks a transition
// and is always recoverable by correcting the input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid " + strings.Join(parts, "; ")
}

// Is reports ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

// DeclinedError is a payment rejected by the card network or gateway.
type DeclinedError struct {
	Code    string
	Message string
	// HandleReusable is set when the gateway allows another confirmation
	// attempt against the same authorization.
	HandleReusable bool
}

func (e *DeclinedError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("payment declined: %s", e.Message)
	}
	return fmt.Sprintf("payment declined (%s): %s", e.Code, e.Message)
}

// Is reports ErrGatewayDeclined.
func (e *DeclinedError) Is(target error) bool {
	return target == ErrGatewayDeclined
}
