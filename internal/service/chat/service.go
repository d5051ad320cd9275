package chat

import (
	"context"
	"errors"
)

// ErrInvalidProfile indicates a profile that cannot back a chat identity.
var ErrInvalidProfile = errors.New("invalid chat profile")

// Profile is the draft data a chat identity is created from.
type Profile struct {
	FirstName string
	LastName  string
	Phone     string
	Address   string
	AvatarURL string
	Subjects  []string
}

// DisplayName returns the name shown to other chat participants.
func (p Profile) DisplayName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// Provisioner creates or refreshes a user's messaging identity.
// A false result without an error means the provider declined the request.
type Provisioner interface {
	Provision(ctx context.Context, userID string, profile Profile) (bool, error)
}
