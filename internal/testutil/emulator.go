// Package testutil holds helpers for tests that run against the Firebase emulators.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
)

const (
	AuthEmulatorHost      = "127.0.0.1:7110"
	FirestoreEmulatorHost = "127.0.0.1:7130"
	ProjectID             = "demo-test-project"
	fakeAPIKey            = "fake-api-key" //nolint:gosec // emulator accepts any key
)

func reachable(host string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// EmulatorAvailable reports whether both the Auth and Firestore emulators answer.
func EmulatorAvailable() bool {
	return reachable(AuthEmulatorHost) && reachable(FirestoreEmulatorHost)
}

// SkipIfEmulatorUnavailable skips tests that need both emulators.
func SkipIfEmulatorUnavailable(t *testing.T) {
	t.Helper()
	if !EmulatorAvailable() {
		t.Skip("Firebase emulators not available")
	}
}

// SkipIfFirestoreUnavailable skips tests that only need Firestore.
func SkipIfFirestoreUnavailable(t *testing.T) {
	t.Helper()
	if !reachable(FirestoreEmulatorHost) {
		t.Skip("Firestore emulator not available")
	}
}

// SetupEmulator points the Firebase SDKs at the local emulators for the test's duration.
func SetupEmulator(t *testing.T) {
	t.Helper()
	t.Setenv("FIREBASE_AUTH_EMULATOR_HOST", AuthEmulatorHost)
	t.Setenv("FIRESTORE_EMULATOR_HOST", FirestoreEmulatorHost)
}

// NewFirestoreClient returns an emulator-backed client over an empty database.
// The database is cleared again and the client closed on cleanup.
func NewFirestoreClient(t *testing.T) *firestore.Client {
	t.Helper()
	SkipIfFirestoreUnavailable(t)
	SetupEmulator(t)
	ClearFirestore(t)

	client, err := firestore.NewClient(context.Background(), ProjectID)
	if err != nil {
		t.Fatalf("failed to create Firestore client: %v", err)
	}
	t.Cleanup(func() {
		ClearFirestore(t)
		_ = client.Close()
	})
	return client
}

func emulatorDelete(t *testing.T, url string) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodDelete, url, nil)
	if err != nil {
		t.Fatalf("build delete %s: %v", url, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete %s: %v", url, err)
	}
	_ = resp.Body.Close()
}

// ClearAccounts removes every Auth emulator user.
func ClearAccounts(t *testing.T) {
	t.Helper()
	emulatorDelete(t, fmt.Sprintf("http://%s/emulator/v1/projects/%s/accounts",
		AuthEmulatorHost, ProjectID))
}

// ClearFirestore removes every Firestore emulator document.
func ClearFirestore(t *testing.T) {
	t.Helper()
	emulatorDelete(t, fmt.Sprintf("http://%s/emulator/v1/projects/%s/databases/(default)/documents",
		FirestoreEmulatorHost, ProjectID))
}

// SignUpResponse is the identity toolkit answer for sign-up and password sign-in.
type SignUpResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
}

func identityToolkit(t *testing.T, method string, payload map[string]any) *SignUpResponse {
	t.Helper()
	url := fmt.Sprintf("http://%s/identitytoolkit.googleapis.com/v1/accounts:%s?key=%s",
		AuthEmulatorHost, method, fakeAPIKey)

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encode %s: %v", method, err)
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build %s: %v", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s: %v", method, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("%s: status %d", method, resp.StatusCode)
	}

	var result SignUpResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode %s: %v", method, err)
	}
	return &result
}

// CreateTestUser signs up a user in the Auth emulator and returns its first ID token.
func CreateTestUser(t *testing.T, email, password string) *SignUpResponse {
	t.Helper()
	return identityToolkit(t, "signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

// SignInTestUser signs an existing user in again. The new ID token carries
// any custom claims set since the last sign-in.
func SignInTestUser(t *testing.T, email, password string) *SignUpResponse {
	t.Helper()
	return identityToolkit(t, "signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}
