// Package session describes who is shopping. A Session is passed explicitly
// to the cart and checkout components instead of living in global state.
package session

import (
	"github.com/google/uuid"
)

// Session identifies one shopper's browsing session.
type Session struct {
	// ID keys remote cart snapshots.
	ID string
	// UserID is empty for anonymous shoppers.
	UserID string
	Email  string
	Name   string
}

// NewAnonymous starts a session for a shopper that has not signed in.
func NewAnonymous() Session {
	return Session{ID: uuid.NewString()}
}

// SignedIn reports whether the session belongs to a known user.
func (s Session) SignedIn() bool {
	return s.UserID != ""
}

// WithUser returns a copy of s bound to the given user. The remote cart is
// keyed by the user so it follows them across devices.
func (s Session) WithUser(userID, email, name string) Session {
	s.UserID = userID
	s.Email = email
	s.Name = name
	s.ID = "user:" + userID
	return s
}
