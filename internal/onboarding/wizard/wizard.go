// Package wizard ties the form store, step controller, submission
// orchestrator and session bridge together for one onboarding user.
package wizard

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/janisto/onboarding-wizard/internal/onboarding/form"
	"github.com/janisto/onboarding-wizard/internal/onboarding/session"
	"github.com/janisto/onboarding-wizard/internal/onboarding/step"
	"github.com/janisto/onboarding-wizard/internal/onboarding/submit"
	applog "github.com/janisto/onboarding-wizard/internal/platform/logging"
	"github.com/janisto/onboarding-wizard/internal/service/chat"
	"github.com/janisto/onboarding-wizard/internal/service/profile"
)

var (
	// ErrNotSubmittable is returned by Submit outside the picture step.
	ErrNotSubmittable = errors.New("submission is only available on the picture step")

	// ErrNotConfirmed is returned by Continue before the confirmation step.
	ErrNotConfirmed = errors.New("onboarding is not complete")
)

// Deps are the external collaborators of a wizard.
type Deps struct {
	Chat      chat.Provisioner
	Profiles  profile.Service
	Provider  session.Provider
	Tokens    session.TokenStore
	Navigator session.Navigator
}

// Config tunes a wizard. Zero values select defaults.
type Config struct {
	CallTimeout time.Duration
	MainPath    string
	LoginPath   string
}

// Snapshot is a read-only view of a wizard.
type Snapshot struct {
	Step         step.Index
	Draft        form.Draft
	Errors       map[string]string
	Accumulated  step.Accumulated
	Submitting   bool
	Submitted    bool
	SubmittedAt  time.Time
	Notice       string
	SessionState session.State
	Session      *session.Session
}

// Wizard is the onboarding flow for one user.
type Wizard struct {
	userID string
	store  *form.Store
	steps  *step.Controller
	orch   *submit.Orchestrator
	bridge *session.Bridge

	mu     sync.Mutex
	notice string
}

// New creates a wizard at the personal details step.
func New(ctx context.Context, userID string, deps Deps, cfg Config) *Wizard {
	var bridgeOpts []session.Option
	if cfg.MainPath != "" {
		bridgeOpts = append(bridgeOpts, session.WithMainPath(cfg.MainPath))
	}
	if cfg.LoginPath != "" {
		bridgeOpts = append(bridgeOpts, session.WithLoginPath(cfg.LoginPath))
	}
	bridge := session.NewBridge(ctx, deps.Provider, deps.Tokens, deps.Navigator, bridgeOpts...)

	var orchOpts []submit.Option
	if cfg.CallTimeout != 0 {
		orchOpts = append(orchOpts, submit.WithCallTimeout(cfg.CallTimeout))
	}

	store := form.NewStore()
	return &Wizard{
		userID: userID,
		store:  store,
		steps:  step.NewController(store),
		orch:   submit.New(userID, deps.Chat, deps.Profiles, bridge, orchOpts...),
		bridge: bridge,
	}
}

// UserID returns the user the wizard onboards.
func (w *Wizard) UserID() string {
	return w.userID
}

// SetField records a field value without validating it.
func (w *Wizard) SetField(name, value string) error {
	return w.store.SetField(name, value)
}

// SetFields records several values, all or none.
func (w *Wizard) SetFields(values map[string]string) error {
	return w.store.SetFields(values)
}

// AppendSubject adds an empty subject entry and returns its index.
func (w *Wizard) AppendSubject() int {
	return w.store.AppendSubject()
}

// RemoveSubject removes entry i. The last remaining entry is kept.
func (w *Wizard) RemoveSubject(i int) bool {
	return w.store.RemoveSubject(i)
}

// Submitting reports whether a submission is running.
func (w *Wizard) Submitting() bool {
	return w.orch.InFlight()
}

// Advance moves forward after validating the current step. It is rejected
// with submit.ErrInFlight while a submission runs.
func (w *Wizard) Advance() error {
	if w.orch.InFlight() {
		return submit.ErrInFlight
	}
	return w.steps.Advance()
}

// Retreat moves back one step without validating. It is rejected with
// submit.ErrInFlight while a submission runs.
func (w *Wizard) Retreat() error {
	if w.orch.InFlight() {
		return submit.ErrInFlight
	}
	return w.steps.Retreat()
}

// Submit stages the picture step and runs the submission workflow. Staging
// happens under the orchestrator's in-flight gate, so a submit racing a
// running one returns submit.ErrInFlight and changes nothing. On failure the
// step is unchanged and a notice is recorded for display.
func (w *Wizard) Submit(ctx context.Context) error {
	if w.steps.Current() != step.Picture {
		return ErrNotSubmittable
	}

	var stageErr error
	_, err := w.orch.RunStaged(ctx, func() (step.Accumulated, error) {
		acc, err := w.steps.Stage()
		stageErr = err
		return acc, err
	})
	if stageErr != nil || errors.Is(err, submit.ErrInFlight) {
		return err
	}
	w.steps.OnSubmissionResult(err == nil)
	w.setNotice(submit.Message(err))
	if err != nil {
		applog.LogWarn(ctx, "onboarding submission failed",
			zap.String("user_id", w.userID),
			zap.String("notice", submit.Message(err)))
	}
	return err
}

// Continue leaves the confirmation step by re-establishing the session.
func (w *Wizard) Continue(ctx context.Context) error {
	if w.steps.Current() != step.Confirmation {
		return ErrNotConfirmed
	}
	err := w.bridge.Finalize(ctx)
	if errors.Is(err, session.ErrSessionTransition) {
		w.setNotice(session.PromptLoginAgain)
	}
	return err
}

// Snapshot returns the current view of the wizard.
func (w *Wizard) Snapshot(ctx context.Context) Snapshot {
	w.mu.Lock()
	notice := w.notice
	w.mu.Unlock()

	return Snapshot{
		Step:         w.steps.Current(),
		Draft:        w.store.Draft(),
		Errors:       w.store.Errors(),
		Accumulated:  w.steps.Accumulated(),
		Submitting:   w.orch.InFlight(),
		Submitted:    w.orch.Submitted(),
		SubmittedAt:  w.orch.SubmittedAt(),
		Notice:       notice,
		SessionState: w.bridge.State(),
		Session:      w.bridge.Session(ctx),
	}
}

func (w *Wizard) setNotice(n string) {
	w.mu.Lock()
	w.notice = n
	w.mu.Unlock()
}
