// Package submit runs the onboarding submission workflow: chat provisioning,
// profile persistence and the session refresh, in that order.
package submit

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/janisto/onboarding-wizard/internal/onboarding/step"
	applog "github.com/janisto/onboarding-wizard/internal/platform/logging"
	"github.com/janisto/onboarding-wizard/internal/service/chat"
	"github.com/janisto/onboarding-wizard/internal/service/profile"
)

// DefaultCallTimeout bounds each external call.
const DefaultCallTimeout = 15 * time.Second

// Refresher applies a persisted profile and its access token to the session.
type Refresher interface {
	Refresh(ctx context.Context, token string, user profile.User) error
}

// Result is a successful submission.
type Result struct {
	Token       string
	User        profile.User
	SubmittedAt time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCallTimeout sets the per-call timeout. Non-positive values disable it.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithClock overrides the clock used for the creation timestamp.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIdempotencyKey fixes the key sent with the profile update.
func WithIdempotencyKey(key string) Option {
	return func(o *Orchestrator) { o.key = key }
}

// Orchestrator runs the submission for one user. At most one run is in flight
// and the submission is sent at most once successfully.
type Orchestrator struct {
	userID    string
	chat      chat.Provisioner
	profiles  profile.Service
	refresher Refresher
	timeout   time.Duration
	now       func() time.Time
	key       string

	inFlight    atomic.Bool
	sent        atomic.Bool
	submittedAt atomic.Int64
}

// New creates an orchestrator. The idempotency key is derived once from the
// user ID and a random nonce and reused for every retry.
func New(userID string, provisioner chat.Provisioner, profiles profile.Service, refresher Refresher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		userID:    userID,
		chat:      provisioner,
		profiles:  profiles,
		refresher: refresher,
		timeout:   DefaultCallTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.key == "" {
		o.key = uuid.NewSHA1(uuid.NameSpaceOID, []byte(userID+":"+uuid.NewString())).String()
	}
	return o
}

// IdempotencyKey returns the key sent with the profile update.
func (o *Orchestrator) IdempotencyKey() string {
	return o.key
}

// InFlight reports whether a run is in progress.
func (o *Orchestrator) InFlight() bool {
	return o.inFlight.Load()
}

// Submitted reports whether a run has succeeded.
func (o *Orchestrator) Submitted() bool {
	return o.sent.Load()
}

// SubmittedAt returns when the successful run was sent, or the zero time.
func (o *Orchestrator) SubmittedAt() time.Time {
	ns := o.submittedAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

// Run executes the workflow over the accumulated submission. Each stage
// short-circuits the rest on failure.
func (o *Orchestrator) Run(ctx context.Context, acc step.Accumulated) (*Result, error) {
	return o.RunStaged(ctx, func() (step.Accumulated, error) { return acc, nil })
}

// RunStaged takes the in-flight gate and only then calls stage to produce the
// submission. A rejected run never calls stage, and a stage error is returned
// as is without any external call.
func (o *Orchestrator) RunStaged(ctx context.Context, stage func() (step.Accumulated, error)) (*Result, error) {
	if o.sent.Load() {
		return nil, ErrAlreadySubmitted
	}
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, ErrInFlight
	}
	defer o.inFlight.Store(false)
	if o.sent.Load() {
		return nil, ErrAlreadySubmitted
	}

	acc, err := stage()
	if err != nil {
		return nil, err
	}

	ctx = applog.With(ctx,
		zap.String("user_id", o.userID),
		zap.String("idempotency_key", o.key),
	)

	if err := o.provisionChat(ctx, acc); err != nil {
		applog.LogError(ctx, "chat provisioning failed", err)
		return nil, err
	}

	res, err := o.persist(ctx, acc)
	if err != nil {
		applog.LogError(ctx, "profile persistence failed", err)
		return nil, err
	}

	o.submittedAt.Store(res.SubmittedAt.UnixNano())
	o.sent.Store(true)
	applog.LogInfo(ctx, "onboarding submitted", zap.String("role", res.User.Role))
	return res, nil
}

func (o *Orchestrator) provisionChat(ctx context.Context, acc step.Accumulated) error {
	callCtx, cancel := o.callContext(ctx)
	defer cancel()

	ok, err := o.chat.Provision(callCtx, o.userID, chat.Profile{
		FirstName: acc.FirstName,
		LastName:  acc.LastName,
		Phone:     acc.Phone,
		Address:   acc.Address,
		AvatarURL: acc.ProfilePhotoURL,
		Subjects:  append([]string(nil), acc.Subjects...),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrChatProvisioning, err)
	}
	if !ok {
		return fmt.Errorf("%w: %w", ErrChatProvisioning, ErrChatDeclined)
	}
	return nil
}

func (o *Orchestrator) persist(ctx context.Context, acc step.Accumulated) (*Result, error) {
	createdAt := o.now().UTC()
	data := profile.UserData{
		FirstName:       acc.FirstName,
		LastName:        acc.LastName,
		Phone:           acc.Phone,
		Address:         acc.Address,
		Subjects:        append([]string(nil), acc.Subjects...),
		ProfilePhotoURL: acc.ProfilePhotoURL,
		CreatedAt:       createdAt,
		Role:            profile.RoleStudent,
		IsOnboarding:    true,
	}

	updateCtx, cancel := o.callContext(ctx)
	updated, err := o.profiles.Update(updateCtx, o.userID, data, o.key)
	cancel()
	if err != nil {
		applog.LogAuditEvent(ctx, "profile_update", o.userID, applog.ResultFailure,
			map[string]any{"error": "update_failed"})
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if updated == nil || updated.AccessToken == "" {
		applog.LogAuditEvent(ctx, "profile_update", o.userID, applog.ResultFailure,
			map[string]any{"error": "missing_token"})
		return nil, fmt.Errorf("%w: %w", ErrPersistence, ErrMissingToken)
	}
	applog.LogAuditEvent(ctx, "profile_update", o.userID, applog.ResultSuccess, nil)

	user := updated.User
	if user.UserID == "" {
		user.UserID = o.userID
	}

	refreshCtx, cancel := o.callContext(ctx)
	defer cancel()
	if err := o.refresher.Refresh(refreshCtx, updated.AccessToken, user); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return &Result{Token: updated.AccessToken, User: user, SubmittedAt: createdAt}, nil
}

func (o *Orchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.timeout)
}
