package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// ListOrders handles GET /orders for the signed-in shopper.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	sess := shopperFrom(r.Context()).Session()
	if !sess.SignedIn() {
		writeError(w, r, errSignInRequired)
		return
	}
	orders, err := h.history.ListByUser(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range orders {
			encodeOrder(e, &orders[i])
		}
		e.ArrEnd()
	})
}
