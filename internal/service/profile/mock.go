package profile

import (
	"context"
	"sync"
)

// UpdateCall records one Update invocation.
type UpdateCall struct {
	UserID         string
	Data           UserData
	IdempotencyKey string
}

// MockProfileService implements Service for unit tests.
// It returns Result (or Err) and records every call.
type MockProfileService struct {
	Result *UpdateResult
	Err    error
	// Hook, when set, runs before the configured result is returned.
	Hook func(ctx context.Context) error

	mu    sync.Mutex
	calls []UpdateCall
}

// NewMockProfileService returns a mock answering with token and a user record built from the request.
func NewMockProfileService(token string) *MockProfileService {
	return &MockProfileService{Result: &UpdateResult{AccessToken: token}}
}

func (m *MockProfileService) Update(ctx context.Context, userID string, data UserData, key string) (*UpdateResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, UpdateCall{UserID: userID, Data: data, IdempotencyKey: key})
	m.mu.Unlock()

	if m.Hook != nil {
		if err := m.Hook(ctx); err != nil {
			return nil, err
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result == nil {
		return &UpdateResult{}, nil
	}
	res := *m.Result
	if res.User.UserID == "" {
		res.User = User{
			UserID:          userID,
			FirstName:       data.FirstName,
			LastName:        data.LastName,
			Role:            data.Role,
			IsOnboarding:    data.IsOnboarding,
			ProfilePhotoURL: data.ProfilePhotoURL,
		}
	}
	return &res, nil
}

// Calls returns the recorded calls.
func (m *MockProfileService) Calls() []UpdateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]UpdateCall(nil), m.calls...)
}

// CallCount returns the number of Update calls.
func (m *MockProfileService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Compile-time interface check
var _ Service = (*MockProfileService)(nil)
