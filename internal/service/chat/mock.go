package chat

import (
	"context"
	"sync"
)

// MockProvisioner implements Provisioner for unit tests.
// By default every call succeeds; set Decline or Err to fail.
type MockProvisioner struct {
	Decline bool
	Err     error

	mu       sync.Mutex
	profiles map[string]Profile
	calls    int
}

// NewMockProvisioner creates a mock that accepts every request.
func NewMockProvisioner() *MockProvisioner {
	return &MockProvisioner{profiles: make(map[string]Profile)}
}

func (m *MockProvisioner) Provision(_ context.Context, userID string, profile Profile) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.Err != nil {
		return false, m.Err
	}
	if m.Decline {
		return false, nil
	}
	if m.profiles == nil {
		m.profiles = make(map[string]Profile)
	}
	m.profiles[userID] = profile
	return true, nil
}

// CallCount returns the number of Provision calls.
func (m *MockProvisioner) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Profile returns the last provisioned profile for userID.
func (m *MockProvisioner) Profile(userID string) (Profile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	return p, ok
}

// Compile-time interface check
var _ Provisioner = (*MockProvisioner)(nil)
