package checkout

// Phase is the step of a checkout session.
type Phase string

const (
	PhaseShipping    Phase = "shipping"
	PhaseAuthorizing Phase = "authorizing"
	PhaseReviewing   Phase = "reviewing"
	PhaseConfirmed   Phase = "confirmed"
)

// IsTerminal reports whether no further transition is possible.
func (p Phase) IsTerminal() bool {
	return p == PhaseConfirmed
}

// CanTransitionTo reports whether next follows p. A failed confirmation
// moves Reviewing back to Authorizing.
func (p Phase) CanTransitionTo(next Phase) bool {
	switch p {
	case PhaseShipping:
		return next == PhaseAuthorizing
	case PhaseAuthorizing:
		return next == PhaseReviewing || next == PhaseShipping || next == PhaseAuthorizing
	case PhaseReviewing:
		return next == PhaseConfirmed || next == PhaseAuthorizing
	default:
		return false
	}
}

// String representation (for logging)
func (p Phase) String() string {
	return string(p)
}
