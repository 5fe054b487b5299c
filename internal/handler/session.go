package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/jx"

	"github.com/refuel-athletics/gelstore/internal/domain/checkout"
	"github.com/refuel-athletics/gelstore/internal/domain/session"
)

func encodeSession(e *jx.Encoder, s session.Session) {
	e.ObjStart()
	e.FieldStart("session_id")
	e.Str(s.ID)
	e.FieldStart("signed_in")
	e.Bool(s.SignedIn())
	if s.SignedIn() {
		e.FieldStart("user_id")
		e.Str(s.UserID)
		e.FieldStart("email")
		e.Str(s.Email)
		e.FieldStart("name")
		e.Str(s.Name)
	}
	e.ObjEnd()
}

// GetSession handles GET /session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess := shopperFrom(r.Context()).Session()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSession(e, sess) })
}

// SignIn handles POST /session/sign-in. The user comes from the identity
// header set by the auth proxy. The body is read only when
// TrustBodyIdentity is set and the header is absent.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	userID, email, name, err := h.identity(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess := h.shoppers.SignIn(r.Context(), shopperFrom(r.Context()), userID, email, name)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSession(e, sess) })
}

func (h *Handler) identity(r *http.Request) (userID, email, name string, err error) {
	if h.cfg.IdentityHeader != "" {
		if userID = strings.TrimSpace(r.Header.Get(h.cfg.IdentityHeader)); userID != "" {
			if h.cfg.IdentityEmailHeader != "" {
				email = r.Header.Get(h.cfg.IdentityEmailHeader)
			}
			if h.cfg.IdentityNameHeader != "" {
				name = r.Header.Get(h.cfg.IdentityNameHeader)
			}
			return userID, email, name, nil
		}
	}
	if !h.cfg.TrustBodyIdentity {
		return "", "", "", errSignInRequired
	}

	err = decodeBody(r, func(d *jx.Decoder, key string) error {
		var dst *string
		switch key {
		case "user_id":
			dst = &userID
		case "email":
			dst = &email
		case "name":
			dst = &name
		default:
			return d.Skip()
		}
		v, err := d.Str()
		*dst = v
		return err
	})
	if err != nil {
		return "", "", "", err
	}
	if userID == "" {
		return "", "", "", &checkout.ValidationError{Fields: map[string]string{"user_id": "required"}}
	}
	return userID, email, name, nil
}

// SignOut handles POST /session/sign-out.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	sess := h.shoppers.SignOut(shopperFrom(r.Context()))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSession(e, sess) })
}
