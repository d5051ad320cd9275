package profile

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Service errors
var (
	ErrNotFound     = errors.New("user not found")
	ErrUnauthorized = errors.New("profile update not authorized")
	ErrUpstream     = errors.New("profile upstream error")
)

// UpstreamErrorKind classifies backend failures.
type UpstreamErrorKind string

const (
	UpstreamErrorKindNotFound     UpstreamErrorKind = "not_found"
	UpstreamErrorKindUnauthorized UpstreamErrorKind = "unauthorized"
	UpstreamErrorKindUpstream     UpstreamErrorKind = "upstream"
)

// UpstreamError carries backend response metadata.
type UpstreamError struct {
	Kind   UpstreamErrorKind
	Status int
	cause  error
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return "profile upstream error"
	}
	return fmt.Sprintf("profile upstream error (kind=%s status=%d): %v", e.Kind, e.Status, e.cause)
}

// Unwrap enables errors.Is against the sentinel service errors.
func (e *UpstreamError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Role assigned to users completing student onboarding.
const RoleStudent = "STUDENT"

// UserData is the finalized onboarding submission.
type UserData struct {
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Phone           string    `json:"phone"`
	Address         string    `json:"address"`
	Subjects        []string  `json:"subjects"`
	ProfilePhotoURL string    `json:"profilePhotoUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	Role            string    `json:"role"`
	IsOnboarding    bool      `json:"isOnboarding"`
}

// User is the canonical user record returned by the backend.
type User struct {
	UserID          string `json:"userId"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Role            string `json:"role"`
	IsOnboarding    bool   `json:"isOnboarding"`
	ProfilePhotoURL string `json:"profilePhotoUrl"`
}

// UpdateResult is a successful update response. AccessToken may be empty;
// callers decide whether that is acceptable.
type UpdateResult struct {
	AccessToken string
	User        User
}

// Service defines the profile update capability.
//
// idempotencyKey identifies one logical submission; implementations forward
// it so the backend can collapse retries.
type Service interface {
	Update(ctx context.Context, userID string, data UserData, idempotencyKey string) (*UpdateResult, error)
}
