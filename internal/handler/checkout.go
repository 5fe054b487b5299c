package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"

	"github.com/refuel-athletics/gelstore/internal/domain/checkout"
)

func writeCheckout(w http.ResponseWriter, o *checkout.Orchestrator) {
	st := o.State()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCheckoutState(e, st) })
}

// GetCheckout handles GET /checkout.
func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	writeCheckout(w, shopperFrom(r.Context()).Checkout())
}

// PreviewCheckout handles GET /checkout/preview?tier=express. It prices the
// current cart without locking anything.
func (h *Handler) PreviewCheckout(w http.ResponseWriter, r *http.Request) {
	tier := checkout.Tier(r.URL.Query().Get("tier"))
	if tier == "" {
		tier = checkout.TierStandard
	}
	if !tier.Valid() {
		writeError(w, r, &checkout.ValidationError{Fields: map[string]string{"tier": "unknown shipping tier"}})
		return
	}
	q := shopperFrom(r.Context()).Checkout().Preview(tier)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCheckoutQuote(e, q) })
}

// SubmitShipping handles POST /checkout/shipping. It locks the total and
// reserves the charge.
func (h *Handler) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	info, err := decodeShipping(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o := shopperFrom(r.Context()).Checkout()
	// A dropped connection must not abandon a gateway call midway.
	if _, err := o.SubmitShipping(context.WithoutCancel(r.Context()), info); err != nil {
		writeError(w, r, err)
		return
	}
	writeCheckout(w, o)
}

// SubmitPayment handles POST /checkout/payment.
func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	details, err := decodePayment(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o := shopperFrom(r.Context()).Checkout()
	if err := o.SubmitPayment(details); err != nil {
		writeError(w, r, err)
		return
	}
	writeCheckout(w, o)
}

// BackToShipping handles POST /checkout/back.
func (h *Handler) BackToShipping(w http.ResponseWriter, r *http.Request) {
	o := shopperFrom(r.Context()).Checkout()
	if err := o.Back(); err != nil {
		writeError(w, r, err)
		return
	}
	writeCheckout(w, o)
}

// ConfirmCheckout handles POST /checkout/confirm. Confirming an already
// confirmed checkout returns the same order.
func (h *Handler) ConfirmCheckout(w http.ResponseWriter, r *http.Request) {
	ord, err := shopperFrom(r.Context()).Checkout().Confirm(context.WithoutCancel(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, ord) })
}

// CloseCheckout handles DELETE /checkout.
func (h *Handler) CloseCheckout(w http.ResponseWriter, r *http.Request) {
	o := shopperFrom(r.Context()).Checkout()
	o.Close()
	writeCheckout(w, o)
}
