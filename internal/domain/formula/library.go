package formula

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// MaxSavedPerUser caps how many formulas a shopper keeps; older ones drop off.
const MaxSavedPerUser = 10

var (
	// ErrSignInRequired is returned when an anonymous shopper saves a formula.
	ErrSignInRequired = errors.New("sign in to save formulas")
	// ErrNotFound is returned when a saved formula does not exist.
	ErrNotFound = errors.New("formula not found")
)

// Saved is a recipe stored on a shopper's account.
type Saved struct {
	ID            string
	UserID        string
	Name          string
	Parameters    Parameters
	QuizGenerated bool
	SavedAt       time.Time
}

// Repository persists saved formulas.
type Repository interface {
	Save(ctx context.Context, f *Saved) error
	// ListByUser returns the user's formulas newest first.
	ListByUser(ctx context.Context, userID string) ([]Saved, error)
	Delete(ctx context.Context, userID, id string) error
	// Trim drops all but the newest keep formulas of the user.
	Trim(ctx context.Context, userID string, keep int) error
}

// Library stores and lists saved formulas for signed-in shoppers.
type Library struct {
	repo Repository
	now  func() time.Time
}

// NewLibrary creates a Library backed by repo.
func NewLibrary(repo Repository) *Library {
	return &Library{repo: repo, now: time.Now}
}

// Save stores p under the user's account and enforces MaxSavedPerUser.
func (l *Library) Save(ctx context.Context, userID string, p Parameters, quizGenerated bool) (*Saved, error) {
	if userID == "" {
		return nil, ErrSignInRequired
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	f := &Saved{
		ID:            "formula_" + uuid.NewString(),
		UserID:        userID,
		Name:          p.Name(),
		Parameters:    p,
		QuizGenerated: quizGenerated,
		SavedAt:       l.now().UTC(),
	}
	if err := l.repo.Save(ctx, f); err != nil {
		return nil, errors.Wrap(err, "save formula")
	}
	if err := l.repo.Trim(ctx, userID, MaxSavedPerUser); err != nil {
		return nil, errors.Wrap(err, "trim formulas")
	}
	return f, nil
}

// List returns the user's saved formulas, newest first.
func (l *Library) List(ctx context.Context, userID string) ([]Saved, error) {
	if userID == "" {
		return nil, nil
	}
	return l.repo.ListByUser(ctx, userID)
}

// Delete removes one saved formula.
func (l *Library) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrSignInRequired
	}
	return l.repo.Delete(ctx, userID, id)
}
