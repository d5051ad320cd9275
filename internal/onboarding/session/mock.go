package session

import (
	"context"
	"sync"
)

// MockProvider implements Provider for tests. SignIn succeeds with any token
// unless SignInErr is set, returning the last updated session with that token.
type MockProvider struct {
	UpdateErr  error
	SignOutErr error
	SignInErr  error

	mu           sync.Mutex
	current      *Session
	last         Session
	updates      []Session
	signOuts     int
	signInTokens []string
}

// NewMockProvider creates a provider holding initial. initial may be nil.
func NewMockProvider(initial *Session) *MockProvider {
	m := &MockProvider{}
	if initial != nil {
		s := *initial
		m.current = &s
		m.last = s
	}
	return m
}

func (m *MockProvider) Current(_ context.Context) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, false
	}
	s := *m.current
	return &s, true
}

func (m *MockProvider) Update(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, s)
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.current = &s
	m.last = s
	return nil
}

func (m *MockProvider) SignOut(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signOuts++
	if m.SignOutErr != nil {
		return m.SignOutErr
	}
	m.current = nil
	return nil
}

func (m *MockProvider) SignIn(_ context.Context, token string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signInTokens = append(m.signInTokens, token)
	if m.SignInErr != nil {
		return nil, m.SignInErr
	}
	s := m.last
	s.AccessToken = token
	m.current = &s
	out := s
	return &out, nil
}

// Updates returns every session passed to Update.
func (m *MockProvider) Updates() []Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Session(nil), m.updates...)
}

// SignOutCount returns the number of SignOut calls.
func (m *MockProvider) SignOutCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signOuts
}

// SignInTokens returns the tokens passed to SignIn, in order.
func (m *MockProvider) SignInTokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.signInTokens...)
}

// MockNavigator records destinations.
type MockNavigator struct {
	Err error

	mu    sync.Mutex
	dests []Destination
}

func (n *MockNavigator) Navigate(_ context.Context, dest Destination) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dests = append(n.dests, dest)
	return n.Err
}

// Destinations returns the recorded destinations.
func (n *MockNavigator) Destinations() []Destination {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Destination(nil), n.dests...)
}

// Compile-time interface checks
var (
	_ Provider  = (*MockProvider)(nil)
	_ Navigator = (*MockNavigator)(nil)
	_ Navigator = NavigatorFunc(nil)
)
