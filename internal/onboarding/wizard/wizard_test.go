package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/janisto/onboarding-wizard/internal/onboarding/form"
	"github.com/janisto/onboarding-wizard/internal/onboarding/session"
	"github.com/janisto/onboarding-wizard/internal/onboarding/step"
	"github.com/janisto/onboarding-wizard/internal/onboarding/submit"
	"github.com/janisto/onboarding-wizard/internal/service/chat"
	"github.com/janisto/onboarding-wizard/internal/service/profile"
)

type harness struct {
	wizard   *Wizard
	chat     *chat.MockProvisioner
	profiles *profile.MockProfileService
	provider *session.MockProvider
	tokens   *session.MemoryStore
	nav      *session.MockNavigator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		chat:     chat.NewMockProvisioner(),
		profiles: profile.NewMockProfileService("student-token"),
		provider: session.NewMockProvider(&session.Session{UserID: "user-1", Role: "USER", AccessToken: "initial"}),
		tokens:   session.NewMemoryStore(),
		nav:      &session.MockNavigator{},
	}
	h.wizard = New(context.Background(), "user-1", Deps{
		Chat:      h.chat,
		Profiles:  h.profiles,
		Provider:  h.provider,
		Tokens:    h.tokens,
		Navigator: h.nav,
	}, Config{})
	return h
}

func fillPersonal(t *testing.T, w *Wizard) {
	t.Helper()
	err := w.SetFields(map[string]string{
		string(form.FieldFirstName): "Ada",
		string(form.FieldLastName):  "Lovelace",
		string(form.FieldPhone):     "0401234567",
		string(form.FieldAddress):   "12 Analytical St",
		form.SubjectKey(0):          "Mathematics",
	})
	if err != nil {
		t.Fatalf("set fields: %v", err)
	}
}

func reachPicture(t *testing.T, h *harness) {
	t.Helper()
	fillPersonal(t, h.wizard)
	if err := h.wizard.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := h.wizard.SetField(string(form.FieldProfilePhotoURL), "https://cdn.example.com/ada.png"); err != nil {
		t.Fatalf("set photo: %v", err)
	}
}

func TestScenarioSuccessfulSubmission(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	reachPicture(t, h)

	if err := h.wizard.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap := h.wizard.Snapshot(ctx)
	if snap.Step != step.Confirmation {
		t.Errorf("expected confirmation step, got %s", snap.Step)
	}
	if tok, _ := h.tokens.Load(ctx); tok != "student-token" {
		t.Errorf("expected stored student-token, got %q", tok)
	}
	if snap.Session == nil || snap.Session.Role != profile.RoleStudent || snap.Session.Name != "Ada Lovelace" {
		t.Errorf("expected refreshed student session, got %+v", snap.Session)
	}
	if snap.Notice != "" || !snap.Submitted || snap.SubmittedAt.IsZero() {
		t.Errorf("expected clean submitted snapshot, got %+v", snap)
	}

	if err := h.wizard.Continue(ctx); err != nil {
		t.Fatalf("continue: %v", err)
	}
	if dests := h.nav.Destinations(); len(dests) != 1 || dests[0].Path != session.DefaultMainPath {
		t.Errorf("expected main navigation, got %+v", dests)
	}
}

func TestScenarioChatFailureStaysOnPicture(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_ = h.tokens.Save(ctx, "initial")
	h.chat.Err = errors.New("chat backend unreachable")
	reachPicture(t, h)

	err := h.wizard.Submit(ctx)
	if !errors.Is(err, submit.ErrChatProvisioning) {
		t.Fatalf("expected ErrChatProvisioning, got %v", err)
	}

	snap := h.wizard.Snapshot(ctx)
	if snap.Step != step.Picture {
		t.Errorf("expected picture step, got %s", snap.Step)
	}
	if snap.Notice != submit.NoticeChatProvisioning {
		t.Errorf("expected chat notice, got %q", snap.Notice)
	}
	if h.profiles.CallCount() != 0 {
		t.Errorf("expected no profile update, got %d", h.profiles.CallCount())
	}
	if tok, _ := h.tokens.Load(ctx); tok != "initial" {
		t.Errorf("expected token store unchanged, got %q", tok)
	}

	// The user retries once the chat backend recovers.
	h.chat.Err = nil
	if err := h.wizard.Submit(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if snap := h.wizard.Snapshot(ctx); snap.Step != step.Confirmation || snap.Notice != "" {
		t.Errorf("expected confirmation without notice, got %s %q", snap.Step, snap.Notice)
	}
}

func TestScenarioReauthFailureGoesToLogin(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	reachPicture(t, h)
	if err := h.wizard.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	h.provider.SignInErr = errors.New("token rejected")
	err := h.wizard.Continue(ctx)
	if !errors.Is(err, session.ErrSessionTransition) {
		t.Fatalf("expected ErrSessionTransition, got %v", err)
	}

	dests := h.nav.Destinations()
	if len(dests) != 1 || dests[0].Path != session.DefaultLoginPath {
		t.Fatalf("expected login navigation, got %+v", dests)
	}
	snap := h.wizard.Snapshot(ctx)
	if snap.SessionState != session.LoggedOut || snap.Notice != session.PromptLoginAgain {
		t.Errorf("expected logged out with prompt, got %s %q", snap.SessionState, snap.Notice)
	}
}

func TestMissingTokenKeepsPictureStep(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.profiles.Result = &profile.UpdateResult{}
	reachPicture(t, h)

	err := h.wizard.Submit(ctx)
	if !errors.Is(err, submit.ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	snap := h.wizard.Snapshot(ctx)
	if snap.Step != step.Picture || snap.Notice != submit.NoticeUnexpected {
		t.Errorf("expected picture step with generic notice, got %s %q", snap.Step, snap.Notice)
	}
	if len(h.provider.Updates()) != 0 {
		t.Error("expected session untouched")
	}
}

func TestAdvanceBlockedByValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_ = h.wizard.SetField(string(form.FieldFirstName), "Ada")

	var verr *step.ValidationError
	if err := h.wizard.Advance(); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := verr.Fields[string(form.FieldPhone)]; !ok {
		t.Errorf("expected phone error, got %v", verr.Fields)
	}
	snap := h.wizard.Snapshot(ctx)
	if snap.Step != step.Personal {
		t.Errorf("expected personal step, got %s", snap.Step)
	}
	if snap.Notice != "" {
		t.Errorf("validation must not produce a notice, got %q", snap.Notice)
	}
}

func TestInvalidPhotoURLBlocksSubmit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	fillPersonal(t, h.wizard)
	_ = h.wizard.Advance()
	_ = h.wizard.SetField(string(form.FieldProfilePhotoURL), "not a url")

	var verr *step.ValidationError
	if err := h.wizard.Submit(ctx); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if h.chat.CallCount() != 0 {
		t.Errorf("expected no workflow calls, got %d", h.chat.CallCount())
	}
}

func TestRetreatThenAdvanceKeepsAccumulated(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	fillPersonal(t, h.wizard)
	if err := h.wizard.Advance(); err != nil {
		t.Fatalf("advance: %v", err)
	}
	first := h.wizard.Snapshot(ctx).Accumulated

	if err := h.wizard.Retreat(); err != nil {
		t.Fatalf("retreat: %v", err)
	}
	if err := h.wizard.Advance(); err != nil {
		t.Fatalf("advance again: %v", err)
	}
	second := h.wizard.Snapshot(ctx).Accumulated
	if first.FirstName != second.FirstName || len(first.Subjects) != len(second.Subjects) || first.Phone != second.Phone {
		t.Errorf("expected identical merge, got %+v and %+v", first, second)
	}
}

func TestSubmitAndContinueOutsideTheirSteps(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	if err := h.wizard.Submit(ctx); !errors.Is(err, ErrNotSubmittable) {
		t.Errorf("expected ErrNotSubmittable, got %v", err)
	}
	if err := h.wizard.Continue(ctx); !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("expected ErrNotConfirmed, got %v", err)
	}
}

func TestSubjectListNeverEmpty(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	if h.wizard.RemoveSubject(0) {
		t.Error("expected removing the only subject to be a no-op")
	}
	idx := h.wizard.AppendSubject()
	if idx != 1 {
		t.Errorf("expected new index 1, got %d", idx)
	}
	if !h.wizard.RemoveSubject(1) {
		t.Error("expected removal to succeed")
	}
	if n := len(h.wizard.Snapshot(ctx).Draft.Subjects); n != 1 {
		t.Errorf("expected one subject, got %d", n)
	}
}

type blockingChat struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingChat) Provision(ctx context.Context, _ string, _ chat.Profile) (bool, error) {
	close(b.entered)
	select {
	case <-b.release:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func TestSubmitWhileInFlightChangesNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	blocker := &blockingChat{entered: make(chan struct{}), release: make(chan struct{})}
	h.wizard = New(ctx, "user-1", Deps{
		Chat:      blocker,
		Profiles:  h.profiles,
		Provider:  h.provider,
		Tokens:    h.tokens,
		Navigator: h.nav,
	}, Config{})
	reachPicture(t, h)

	done := make(chan error, 1)
	go func() { done <- h.wizard.Submit(ctx) }()
	<-blocker.entered

	sentURL := h.wizard.Snapshot(ctx).Accumulated.ProfilePhotoURL
	if err := h.wizard.SetField(string(form.FieldProfilePhotoURL), "https://cdn.example.com/other.png"); err != nil {
		t.Fatalf("set photo: %v", err)
	}
	if err := h.wizard.Submit(ctx); !errors.Is(err, submit.ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}
	if got := h.wizard.Snapshot(ctx).Accumulated.ProfilePhotoURL; got != sentURL {
		t.Errorf("expected accumulated photo %q to stay, got %q", sentURL, got)
	}

	_ = h.wizard.SetField(string(form.FieldProfilePhotoURL), "not a url")
	if err := h.wizard.Submit(ctx); !errors.Is(err, submit.ErrInFlight) {
		t.Fatalf("expected ErrInFlight for an invalid draft, got %v", err)
	}
	if errs := h.wizard.Snapshot(ctx).Errors; len(errs) != 0 {
		t.Errorf("expected no field errors from a rejected submit, got %v", errs)
	}
	if err := h.wizard.Retreat(); !errors.Is(err, submit.ErrInFlight) {
		t.Errorf("expected Retreat to be rejected, got %v", err)
	}
	if err := h.wizard.Advance(); !errors.Is(err, submit.ErrInFlight) {
		t.Errorf("expected Advance to be rejected, got %v", err)
	}

	close(blocker.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	snap := h.wizard.Snapshot(ctx)
	if snap.Step != step.Confirmation || snap.Accumulated.ProfilePhotoURL != sentURL {
		t.Errorf("expected confirmation with the sent photo, got %s %q", snap.Step, snap.Accumulated.ProfilePhotoURL)
	}
	if call := h.profiles.Calls()[0]; call.Data.ProfilePhotoURL != sentURL {
		t.Errorf("expected persisted photo %q, got %q", sentURL, call.Data.ProfilePhotoURL)
	}
}
