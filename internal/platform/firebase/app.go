package firebase

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Config holds Firebase configuration.
type Config struct {
	ProjectID       string
	CredentialsFile string // Path to service account JSON (optional)
	// SkipAuth leaves Clients.Auth nil, for deployments verifying tokens elsewhere.
	SkipAuth bool
}

// Clients holds initialized Firebase clients.
type Clients struct {
	Auth      *auth.Client
	Firestore *firestore.Client
}

// InitializeClients sets up the Firebase app and returns its clients.
func InitializeClients(ctx context.Context, cfg Config) (*Clients, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		creds, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(creds))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}

	clients := &Clients{}
	if !cfg.SkipAuth {
		if clients.Auth, err = app.Auth(ctx); err != nil {
			return nil, fmt.Errorf("initializing auth client: %w", err)
		}
	}
	if clients.Firestore, err = app.Firestore(ctx); err != nil {
		return nil, fmt.Errorf("initializing firestore client: %w", err)
	}
	return clients, nil
}

// Close closes the Firestore client.
func (c *Clients) Close() error {
	if c.Firestore != nil {
		return c.Firestore.Close()
	}
	return nil
}
