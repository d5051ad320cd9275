package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	applog "github.com/janisto/onboarding-wizard/internal/platform/logging"
	"github.com/janisto/onboarding-wizard/internal/service/profile"
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithMainPath sets the destination after a successful transition.
func WithMainPath(path string) Option {
	return func(b *Bridge) { b.mainPath = path }
}

// WithLoginPath sets the destination after a failed transition.
func WithLoginPath(path string) Option {
	return func(b *Bridge) { b.loginPath = path }
}

// Bridge applies onboarding results to the live session.
// No lock is held across provider, store or navigator calls.
type Bridge struct {
	provider  Provider
	store     TokenStore
	navigator Navigator
	mainPath  string
	loginPath string

	mu    sync.Mutex
	state State
}

// NewBridge creates a bridge whose initial state follows the provider's
// current session.
func NewBridge(ctx context.Context, provider Provider, store TokenStore, nav Navigator, opts ...Option) *Bridge {
	b := &Bridge{
		provider:  provider,
		store:     store,
		navigator: nav,
		mainPath:  DefaultMainPath,
		loginPath: DefaultLoginPath,
		state:     Unauthenticated,
	}
	for _, opt := range opts {
		opt(b)
	}
	if _, ok := provider.Current(ctx); ok {
		b.state = Authenticated
	}
	return b
}

// State returns the current bridge state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Session returns the live session. It returns nil while a transition is
// running so callers never observe a half-updated identity.
func (b *Bridge) Session(ctx context.Context) *Session {
	if b.State() == Transitioning {
		return nil
	}
	s, ok := b.provider.Current(ctx)
	if !ok {
		return nil
	}
	return s
}

// Refresh swaps in a session carrying the new token and the persisted user.
// The token is stored first; if the swap fails the previous token is put back.
func (b *Bridge) Refresh(ctx context.Context, token string, user profile.User) error {
	if b.State() == Transitioning {
		return ErrTransitionInProgress
	}

	next := Session{}
	if cur, ok := b.provider.Current(ctx); ok {
		next = *cur
	}
	if user.UserID != "" {
		next.UserID = user.UserID
	}
	next.Name = strings.TrimSpace(user.FirstName + " " + user.LastName)
	next.Role = user.Role
	next.IsOnboarding = user.IsOnboarding
	next.Image = user.ProfilePhotoURL
	next.AccessToken = token

	prev, err := b.store.Load(ctx)
	if err != nil && !errors.Is(err, ErrNoToken) {
		return fmt.Errorf("loading stored token: %w", err)
	}
	if err := b.store.Save(ctx, token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	if err := b.provider.Update(ctx, next); err != nil {
		b.restoreToken(ctx, prev)
		applog.LogAuditEvent(ctx, "session_refresh", next.UserID, applog.ResultFailure,
			map[string]any{"error": "update_failed"})
		return fmt.Errorf("updating session: %w", err)
	}

	b.mu.Lock()
	b.state = Authenticated
	b.mu.Unlock()

	applog.LogAuditEvent(ctx, "session_refresh", next.UserID, applog.ResultSuccess, nil)
	return nil
}

func (b *Bridge) restoreToken(ctx context.Context, prev string) {
	var err error
	if prev == "" {
		err = b.store.Clear(ctx)
	} else {
		err = b.store.Save(ctx, prev)
	}
	if err != nil {
		applog.LogError(ctx, "failed to restore previous session token", err)
	}
}

// Finalize signs out and back in with the session token so the new role
// takes effect, then navigates. On failure the user ends up logged out at the
// login destination and the returned error wraps ErrSessionTransition.
func (b *Bridge) Finalize(ctx context.Context) error {
	b.mu.Lock()
	if b.state == Transitioning {
		b.mu.Unlock()
		return ErrTransitionInProgress
	}
	b.state = Transitioning
	b.mu.Unlock()

	sess, err := b.transition(ctx)
	if err != nil {
		b.mu.Lock()
		b.state = LoggedOut
		b.mu.Unlock()

		applog.LogWarn(ctx, "session transition failed", zap.Error(err))
		if navErr := b.navigator.Navigate(ctx, Destination{Path: b.loginPath, Prompt: PromptLoginAgain}); navErr != nil {
			applog.LogError(ctx, "navigation to login failed", navErr)
		}
		return fmt.Errorf("%w: %w", ErrSessionTransition, err)
	}

	b.mu.Lock()
	b.state = Authenticated
	b.mu.Unlock()

	applog.LogAuditEvent(ctx, "session_finalize", sess.UserID, applog.ResultSuccess, nil)
	if err := b.navigator.Navigate(ctx, Destination{Path: b.mainPath}); err != nil {
		return fmt.Errorf("navigating to %s: %w", b.mainPath, err)
	}
	return nil
}

func (b *Bridge) transition(ctx context.Context) (*Session, error) {
	var token string
	if cur, ok := b.provider.Current(ctx); ok {
		token = cur.AccessToken
	}

	if err := b.provider.SignOut(ctx); err != nil {
		return nil, fmt.Errorf("signing out: %w", err)
	}

	if token == "" {
		stored, err := b.store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading stored token: %w", err)
		}
		token = stored
	}

	sess, err := b.provider.SignIn(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("signing in: %w", err)
	}
	return sess, nil
}
