package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/refuel-athletics/gelstore/internal/domain/cart"
	"github.com/refuel-athletics/gelstore/internal/domain/checkout"
	"github.com/refuel-athletics/gelstore/internal/domain/formula"
)

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := err.Error()
	var fields map[string]string

	var (
		ve       *checkout.ValidationError
		declined *checkout.DeclinedError
	)
	switch {
	case errors.Is(err, errMalformed):
		status = http.StatusBadRequest
	case errors.As(err, &ve):
		status = http.StatusUnprocessableEntity
		msg = "validation failed"
		fields = ve.Fields
	case errors.As(err, &declined):
		status = http.StatusPaymentRequired
		msg = declined.Message
		if msg == "" {
			msg = "payment declined"
		}
		fields = map[string]string{"code": declined.Code}
	case errors.Is(err, checkout.ErrGatewayAmbiguous):
		status = http.StatusBadGateway
		msg = "payment status unknown, confirm again to check"
	case errors.Is(err, checkout.ErrBusy), errors.Is(err, checkout.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrAmountTooSmall),
		errors.Is(err, checkout.ErrAmountTooLarge),
		errors.Is(err, formula.ErrInvalidParameters),
		errors.Is(err, cart.ErrInvalidItem):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, cart.ErrItemNotFound), errors.Is(err, formula.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, formula.ErrSignInRequired), errors.Is(err, errSignInRequired):
		status = http.StatusUnauthorized
	}

	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		if status == http.StatusInternalServerError {
			msg = http.StatusText(status)
		}
	}
	writeJSON(w, status, func(e *jx.Encoder) { encodeError(e, msg, fields) })
}
