package auth

import (
	"context"
	"sync"
)

// MockVerifier provides fake token verification for tests.
// When Tokens is set, only listed tokens verify; otherwise User or Error is returned.
type MockVerifier struct {
	User   *User
	Error  error
	Tokens map[string]*User

	mu    sync.Mutex
	calls []string
}

// Verify returns the configured user or error.
func (m *MockVerifier) Verify(_ context.Context, token string) (*User, error) {
	m.mu.Lock()
	m.calls = append(m.calls, token)
	m.mu.Unlock()

	if m.Error != nil {
		return nil, m.Error
	}
	if m.Tokens != nil {
		u, ok := m.Tokens[token]
		if !ok {
			return nil, ErrInvalidToken
		}
		return u, nil
	}
	return m.User, nil
}

// Calls returns the tokens passed to Verify, in order.
func (m *MockVerifier) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// TestUser returns a standard test user who has not finished onboarding.
func TestUser() *User {
	return &User{
		UID:           "test-user-123",
		Email:         "test@example.com",
		EmailVerified: true,
		Role:          "USER",
	}
}

// Compile-time interface check
var _ Verifier = (*MockVerifier)(nil)
