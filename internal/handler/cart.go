package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/refuel-athletics/gelstore/internal/domain/cart"
)

func writeCart(w http.ResponseWriter, status int, s *Shopper) {
	snap := s.Cart.Snapshot()
	open := s.Cart.IsOpen()
	writeJSON(w, status, func(e *jx.Encoder) { encodeCart(e, snap, open) })
}

// GetCart handles GET /cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeCart(w, http.StatusOK, shopperFrom(r.Context()))
}

// AddItem handles POST /cart/items: a gel pack of the given recipe.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	req, err := decodeFormulaRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := cart.NewGelItem(req.params, req.pouches)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s := shopperFrom(r.Context())
	if err := s.Cart.AddItem(item); err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, http.StatusCreated, s)
}

// UpdateItem handles PATCH /cart/items/{id}. A quantity of zero or less
// removes the item.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	qty, found := 0, false
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "qty" {
			return d.Skip()
		}
		found = true
		v, err := d.Int()
		qty = v
		return err
	})
	if err == nil && !found {
		err = errors.Wrap(errMalformed, "qty required")
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	s := shopperFrom(r.Context())
	if err := s.Cart.UpdateQuantity(chi.URLParam(r, "id"), qty); err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, http.StatusOK, s)
}

// RemoveItem handles DELETE /cart/items/{id}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s := shopperFrom(r.Context())
	s.Cart.RemoveItem(chi.URLParam(r, "id"))
	writeCart(w, http.StatusOK, s)
}

// ClearCart handles DELETE /cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s := shopperFrom(r.Context())
	s.Cart.Clear()
	writeCart(w, http.StatusOK, s)
}

// SetCartOpen handles PUT /cart/open.
func (h *Handler) SetCartOpen(w http.ResponseWriter, r *http.Request) {
	var open bool
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "open" {
			return d.Skip()
		}
		v, err := d.Bool()
		open = v
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s := shopperFrom(r.Context())
	s.Cart.SetOpen(open)
	writeCart(w, http.StatusOK, s)
}
