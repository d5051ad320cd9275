package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/janisto/onboarding-wizard/internal/platform/auth"
)

// TokenProvider is a Provider that signs in by verifying the access token.
type TokenProvider struct {
	verifier auth.Verifier

	mu      sync.RWMutex
	current *Session
}

// NewTokenProvider creates a provider. initial may be nil.
func NewTokenProvider(verifier auth.Verifier, initial *Session) *TokenProvider {
	p := &TokenProvider{verifier: verifier}
	if initial != nil {
		s := *initial
		p.current = &s
	}
	return p
}

// FromUser builds a session from a verified identity.
func FromUser(u *auth.User, token string) Session {
	return Session{
		UserID:       u.UID,
		Name:         u.Name,
		Role:         u.Role,
		IsOnboarding: u.IsOnboarding,
		Image:        u.Picture,
		AccessToken:  token,
	}
}

func (p *TokenProvider) Current(_ context.Context) (*Session, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return nil, false
	}
	s := *p.current
	return &s, true
}

func (p *TokenProvider) Update(_ context.Context, s Session) error {
	if s.UserID == "" {
		return ErrInvalidSession
	}
	p.mu.Lock()
	p.current = &s
	p.mu.Unlock()
	return nil
}

func (p *TokenProvider) SignOut(_ context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	return nil
}

func (p *TokenProvider) SignIn(ctx context.Context, token string) (*Session, error) {
	u, err := p.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("verifying token: %w", err)
	}
	s := FromUser(u, token)
	p.mu.Lock()
	p.current = &s
	p.mu.Unlock()
	out := s
	return &out, nil
}

// Compile-time interface check
var _ Provider = (*TokenProvider)(nil)
