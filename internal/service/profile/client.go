package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	applog "github.com/janisto/onboarding-wizard/internal/platform/logging"
)

const (
	userAgent         = "onboarding-wizard"
	idempotencyHeader = "Idempotency-Key"
	maxErrorBody      = 4 << 10
)

// TokenFunc returns the bearer token for the next request. An empty token sends no Authorization header.
type TokenFunc func(ctx context.Context) (string, error)

// Client implements Service against the backend users API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      TokenFunc
}

// Option configures a Client.
type Option func(*Client)

// WithTokenFunc sets the bearer token source.
func WithTokenFunc(fn TokenFunc) Option {
	return func(c *Client) {
		c.token = fn
	}
}

// NewClient creates a client for the backend rooted at baseURL.
func NewClient(httpClient *http.Client, baseURL string, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type updateRequest struct {
	UserID   string   `json:"userId"`
	UserData UserData `json:"userData"`
}

type updateResponse struct {
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
}

// Update sends PATCH /users/{userId}.
func (c *Client) Update(ctx context.Context, userID string, data UserData, idempotencyKey string) (*UpdateResult, error) {
	body, err := json.Marshal(updateRequest{UserID: userID, UserData: data})
	if err != nil {
		return nil, fmt.Errorf("encoding update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		c.baseURL+"/users/"+url.PathEscape(userID), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if idempotencyKey != "" {
		req.Header.Set(idempotencyHeader, idempotencyKey)
	}
	if c.token != nil {
		token, err := c.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.upstreamError(ctx, resp)
	}

	var out updateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding update response: %w", err)
	}
	return &UpdateResult{AccessToken: out.AccessToken, User: out.User}, nil
}

func (c *Client) upstreamError(ctx context.Context, resp *http.Response) *UpstreamError {
	// Drain a bounded prefix so the connection can be reused; the body is not surfaced.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	kind, cause := UpstreamErrorKindUpstream, ErrUpstream
	switch resp.StatusCode {
	case http.StatusNotFound:
		kind, cause = UpstreamErrorKindNotFound, ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		kind, cause = UpstreamErrorKindUnauthorized, ErrUnauthorized
	}
	applog.LogWarn(ctx, "profile update rejected",
		zap.Int("status", resp.StatusCode),
		zap.String("kind", string(kind)),
	)
	return &UpstreamError{Kind: kind, Status: resp.StatusCode, cause: cause}
}

// Compile-time interface check
var _ Service = (*Client)(nil)
