// Package session owns the authenticated session around onboarding: it swaps
// in the refreshed identity after persistence and re-establishes the session
// when the user leaves the wizard.
package session

import (
	"context"
	"errors"
)

// State is the bridge's view of the user's authentication.
type State int

const (
	Unauthenticated State = iota
	Authenticated
	Transitioning
	LoggedOut
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	case Transitioning:
		return "transitioning"
	case LoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

var (
	// ErrSessionTransition indicates the sign-out/sign-in sequence failed.
	// The user has been sent to the login destination.
	ErrSessionTransition = errors.New("session transition failed")

	// ErrTransitionInProgress is returned when Finalize runs concurrently.
	ErrTransitionInProgress = errors.New("session transition in progress")

	// ErrInvalidSession indicates a session value without a user identifier.
	ErrInvalidSession = errors.New("invalid session")
)

// Session is the identity an authenticated user carries.
type Session struct {
	UserID       string
	Name         string
	Role         string
	IsOnboarding bool
	Image        string
	AccessToken  string
}

// Provider is the identity/session provider the bridge drives.
type Provider interface {
	// Current returns the live session, if any.
	Current(ctx context.Context) (*Session, bool)
	// Update replaces the live session in one step.
	Update(ctx context.Context, s Session) error
	SignOut(ctx context.Context) error
	// SignIn establishes a new session from an access token alone.
	SignIn(ctx context.Context, token string) (*Session, error)
}
