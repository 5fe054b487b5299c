// Package handler exposes the storefront over HTTP: formula pricing, the
// quiz, a session-scoped cart and checkout, saved formulas and order
// history.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/refuel-athletics/gelstore/internal/domain/formula"
	"github.com/refuel-athletics/gelstore/internal/domain/order"
)

const (
	// SessionCookie carries the shopper token.
	SessionCookie = "gel_session"
	// SessionHeader is accepted in place of the cookie by API clients.
	SessionHeader = "X-Session-Token"
)

var errSignInRequired = errors.New("sign in required")

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// SecureCookies sets the Secure attribute on the session cookie.
	SecureCookies bool
	// CookieMaxAge is the session cookie lifetime.
	CookieMaxAge time.Duration
	// IdentityHeader names the header in which the auth proxy passes the
	// verified user ID. Sign-in reads the user from it, never from the body.
	IdentityHeader string
	// IdentityEmailHeader and IdentityNameHeader carry the verified profile.
	IdentityEmailHeader string
	IdentityNameHeader  string
	// TrustBodyIdentity accepts user_id from the sign-in body when the
	// identity header is absent. Local development only.
	TrustBodyIdentity bool
}

// Handler serves the storefront API.
type Handler struct {
	shoppers *Shoppers
	library  *formula.Library
	history  order.History
	cfg      Config
}

// New constructs a Handler.
func New(cfg Config, shoppers *Shoppers, library *formula.Library, history order.History) *Handler {
	if cfg.CookieMaxAge == 0 {
		cfg.CookieMaxAge = 30 * 24 * time.Hour
	}
	return &Handler{
		shoppers: shoppers,
		library:  library,
		history:  history,
		cfg:      cfg,
	}
}

// Routes returns the API router. Mount it under /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/flavors", h.ListFlavors)
	r.Post("/formula/price", h.PriceFormula)
	r.Get("/quiz", h.QuizQuestions)
	r.Post("/quiz", h.SubmitQuiz)

	r.Group(func(r chi.Router) {
		r.Use(h.withShopper)

		r.Get("/session", h.GetSession)
		r.Post("/session/sign-in", h.SignIn)
		r.Post("/session/sign-out", h.SignOut)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddItem)
			r.Patch("/items/{id}", h.UpdateItem)
			r.Delete("/items/{id}", h.RemoveItem)
			r.Put("/open", h.SetCartOpen)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", h.GetCheckout)
			r.Delete("/", h.CloseCheckout)
			r.Get("/preview", h.PreviewCheckout)
			r.Post("/shipping", h.SubmitShipping)
			r.Post("/payment", h.SubmitPayment)
			r.Post("/back", h.BackToShipping)
			r.Post("/confirm", h.ConfirmCheckout)
		})

		r.Get("/orders", h.ListOrders)

		r.Route("/formulas", func(r chi.Router) {
			r.Get("/", h.ListFormulas)
			r.Post("/", h.SaveFormula)
			r.Delete("/{id}", h.DeleteFormula)
		})
	})
	return r
}

type shopperKey struct{}

// withShopper resolves the shopper from the token cookie or header and
// refreshes the cookie.
func (h *Handler) withShopper(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(SessionHeader)
		if token == "" {
			if c, err := r.Cookie(SessionCookie); err == nil {
				token = c.Value
			}
		}
		s := h.shoppers.Get(token)

		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    s.Token,
			Path:     "/",
			MaxAge:   int(h.cfg.CookieMaxAge.Seconds()),
			HttpOnly: true,
			Secure:   h.cfg.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
		w.Header().Set(SessionHeader, s.Token)

		ctx := context.WithValue(r.Context(), shopperKey{}, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func shopperFrom(ctx context.Context) *Shopper {
	return ctx.Value(shopperKey{}).(*Shopper)
}
