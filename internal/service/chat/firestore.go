package chat

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	applog "github.com/janisto/onboarding-wizard/internal/platform/logging"
)

const chatUsersCollection = "chatUsers"

// firestoreChatUser maps to the Firestore document structure.
type firestoreChatUser struct {
	DisplayName string    `firestore:"display_name"`
	FirstName   string    `firestore:"first_name"`
	LastName    string    `firestore:"last_name"`
	Phone       string    `firestore:"phone"`
	Address     string    `firestore:"address"`
	AvatarURL   string    `firestore:"avatar_url"`
	Subjects    []string  `firestore:"subjects"`
	CreatedAt   time.Time `firestore:"created_at"`
	UpdatedAt   time.Time `firestore:"updated_at"`
}

// FirestoreProvisioner implements Provisioner with one document per user.
// Provisioning an existing identity refreshes it, so retries are safe.
type FirestoreProvisioner struct {
	client *firestore.Client
	now    func() time.Time
}

// NewFirestoreProvisioner creates a Firestore-backed provisioner.
func NewFirestoreProvisioner(client *firestore.Client) *FirestoreProvisioner {
	return &FirestoreProvisioner{client: client, now: time.Now}
}

// Provision creates or refreshes chatUsers/{userID} in a transaction.
func (p *FirestoreProvisioner) Provision(ctx context.Context, userID string, profile Profile) (bool, error) {
	if userID == "" || profile.DisplayName() == "" {
		return false, ErrInvalidProfile
	}
	docRef := p.client.Collection(chatUsersCollection).Doc(userID)
	now := p.now().UTC()

	err := p.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		createdAt := now
		doc, err := tx.Get(docRef)
		switch {
		case err == nil && doc.Exists():
			var existing firestoreChatUser
			if err := doc.DataTo(&existing); err != nil {
				return err
			}
			if !existing.CreatedAt.IsZero() {
				createdAt = existing.CreatedAt
			}
		case err != nil && status.Code(err) != codes.NotFound:
			return err
		}

		return tx.Set(docRef, firestoreChatUser{
			DisplayName: profile.DisplayName(),
			FirstName:   profile.FirstName,
			LastName:    profile.LastName,
			Phone:       profile.Phone,
			Address:     profile.Address,
			AvatarURL:   profile.AvatarURL,
			Subjects:    append([]string{}, profile.Subjects...),
			CreatedAt:   createdAt,
			UpdatedAt:   now,
		})
	})
	if err != nil {
		applog.LogAuditEvent(ctx, "chat_provision", userID, applog.ResultFailure,
			map[string]any{"error": "internal_error"})
		return false, fmt.Errorf("provisioning chat user: %w", err)
	}

	applog.LogAuditEvent(ctx, "chat_provision", userID, applog.ResultSuccess, nil)
	return true, nil
}

// Compile-time interface check
var _ Provisioner = (*FirestoreProvisioner)(nil)
