package auth

import (
	"context"

	fbauth "firebase.google.com/go/v4/auth"
)

// FirebaseVerifier implements Verifier using the Firebase Admin SDK.
// Role and onboarding state are read from custom claims.
type FirebaseVerifier struct {
	client *fbauth.Client
}

// NewFirebaseVerifier creates a new verifier with the given auth client.
func NewFirebaseVerifier(client *fbauth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

// Verify validates a Firebase ID token and checks for revocation.
func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*User, error) {
	if idToken == "" {
		return nil, ErrNoToken
	}
	token, err := v.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		switch {
		case fbauth.IsCertificateFetchFailed(err):
			return nil, ErrCertificateFetch
		case fbauth.IsIDTokenExpired(err):
			return nil, ErrTokenExpired
		case fbauth.IsIDTokenRevoked(err):
			return nil, ErrTokenRevoked
		case fbauth.IsUserDisabled(err):
			return nil, ErrUserDisabled
		default:
			return nil, ErrInvalidToken
		}
	}
	return userFromClaims(token.UID, token.Claims), nil
}

func userFromClaims(uid string, claims map[string]any) *User {
	email, _ := claims["email"].(string)
	verified, _ := claims["email_verified"].(bool)
	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)
	role, _ := claims["role"].(string)
	onboarding, _ := claims["isOnboarding"].(bool)
	return &User{
		UID:           uid,
		Email:         email,
		EmailVerified: verified,
		Name:          name,
		Role:          role,
		IsOnboarding:  onboarding,
		Picture:       picture,
	}
}

// Compile-time interface check
var _ Verifier = (*FirebaseVerifier)(nil)
