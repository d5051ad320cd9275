package auth

import (
	"context"
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of backend-issued HS256 access tokens.
type Claims struct {
	UserID       string `json:"userId"`
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
	Role         string `json:"role,omitempty"`
	IsOnboarding bool   `json:"isOnboarding,omitempty"`
	Picture      string `json:"picture,omitempty"`
	jwtlib.RegisteredClaims
}

// JWTVerifier implements Verifier for HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewJWTVerifier creates a verifier for tokens signed with secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), now: time.Now}
}

// Verify parses and validates the token signature and expiry.
func (v *JWTVerifier) Verify(_ context.Context, tokenStr string) (*User, error) {
	if tokenStr == "" {
		return nil, ErrNoToken
	}
	claims := &Claims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(*jwtlib.Token) (any, error) {
		return v.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	uid := claims.UserID
	if uid == "" {
		uid = claims.Subject
	}
	if uid == "" {
		return nil, ErrInvalidToken
	}
	return &User{
		UID:           uid,
		Email:         claims.Email,
		EmailVerified: claims.Email != "",
		Name:          claims.Name,
		Role:          claims.Role,
		IsOnboarding:  claims.IsOnboarding,
		Picture:       claims.Picture,
	}, nil
}

// SignJWT issues an HS256 token for claims. Intended for local development and tests.
func SignJWT(secret string, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwtlib.NewNumericDate(now)
	claims.ExpiresAt = jwtlib.NewNumericDate(now.Add(ttl))
	if claims.Subject == "" {
		claims.Subject = claims.UserID
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Compile-time interface check
var _ Verifier = (*JWTVerifier)(nil)
