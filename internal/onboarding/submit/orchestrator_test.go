package submit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/janisto/onboarding-wizard/internal/onboarding/step"
	"github.com/janisto/onboarding-wizard/internal/service/chat"
	"github.com/janisto/onboarding-wizard/internal/service/profile"
)

type fakeRefresher struct {
	err error

	mu     sync.Mutex
	tokens []string
	users  []profile.User
}

func (f *fakeRefresher) Refresh(_ context.Context, token string, user profile.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	f.users = append(f.users, user)
	return f.err
}

func (f *fakeRefresher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}

var fixedNow = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func testAccumulated() step.Accumulated {
	return step.Accumulated{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Phone:           "0401234567",
		Address:         "12 Analytical St",
		Subjects:        []string{"Mathematics", "Physics"},
		ProfilePhotoURL: "https://cdn.example.com/ada.png",
	}
}

func newTestOrchestrator(opts ...Option) (*Orchestrator, *chat.MockProvisioner, *profile.MockProfileService, *fakeRefresher) {
	chatP := chat.NewMockProvisioner()
	profiles := profile.NewMockProfileService("new-token")
	refresher := &fakeRefresher{}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New("user-1", chatP, profiles, refresher, opts...), chatP, profiles, refresher
}

func TestRunSuccess(t *testing.T) {
	o, chatP, profiles, refresher := newTestOrchestrator()

	res, err := o.Run(context.Background(), testAccumulated())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Token != "new-token" {
		t.Errorf("expected new-token, got %q", res.Token)
	}
	if chatP.CallCount() != 1 || profiles.CallCount() != 1 || refresher.count() != 1 {
		t.Fatalf("expected one call per stage, got chat=%d profile=%d refresh=%d",
			chatP.CallCount(), profiles.CallCount(), refresher.count())
	}

	if p, _ := chatP.Profile("user-1"); p.DisplayName() != "Ada Lovelace" || p.AvatarURL == "" {
		t.Errorf("unexpected chat profile %+v", p)
	}
	if p, _ := chatP.Profile("user-1"); p.Phone != "0401234567" || p.Address != "12 Analytical St" {
		t.Errorf("expected contact details in chat profile, got %+v", p)
	}

	call := profiles.Calls()[0]
	if call.UserID != "user-1" {
		t.Errorf("expected user-1, got %q", call.UserID)
	}
	if call.Data.Role != profile.RoleStudent || !call.Data.IsOnboarding {
		t.Errorf("expected student onboarding metadata, got %+v", call.Data)
	}
	if !call.Data.CreatedAt.Equal(fixedNow) {
		t.Errorf("expected CreatedAt %v, got %v", fixedNow, call.Data.CreatedAt)
	}
	if call.Data.Phone != "0401234567" || len(call.Data.Subjects) != 2 {
		t.Errorf("expected accumulated values, got %+v", call.Data)
	}
	if call.IdempotencyKey == "" || call.IdempotencyKey != o.IdempotencyKey() {
		t.Errorf("expected idempotency key %q, got %q", o.IdempotencyKey(), call.IdempotencyKey)
	}

	if refresher.tokens[0] != "new-token" || refresher.users[0].Role != profile.RoleStudent {
		t.Errorf("unexpected refresh %v %+v", refresher.tokens, refresher.users)
	}
	if !o.Submitted() || o.InFlight() {
		t.Errorf("expected submitted and idle")
	}
	if !res.SubmittedAt.Equal(fixedNow) || !o.SubmittedAt().Equal(fixedNow) {
		t.Errorf("expected submitted at %v, got %v / %v", fixedNow, res.SubmittedAt, o.SubmittedAt())
	}
}

func TestRunChatDeclinedSkipsPersistence(t *testing.T) {
	o, chatP, profiles, refresher := newTestOrchestrator()
	chatP.Decline = true

	_, err := o.Run(context.Background(), testAccumulated())
	if !errors.Is(err, ErrChatProvisioning) || !errors.Is(err, ErrChatDeclined) {
		t.Fatalf("expected declined chat provisioning, got %v", err)
	}
	if !o.SubmittedAt().IsZero() {
		t.Errorf("expected zero submitted time, got %v", o.SubmittedAt())
	}
	if profiles.CallCount() != 0 || refresher.count() != 0 {
		t.Errorf("expected no persistence, got profile=%d refresh=%d", profiles.CallCount(), refresher.count())
	}
	if Message(err) != NoticeChatProvisioning {
		t.Errorf("unexpected notice %q", Message(err))
	}
}

func TestRunChatErrorSkipsPersistence(t *testing.T) {
	o, chatP, profiles, _ := newTestOrchestrator()
	boom := errors.New("firestore unavailable")
	chatP.Err = boom

	_, err := o.Run(context.Background(), testAccumulated())
	if !errors.Is(err, ErrChatProvisioning) || !errors.Is(err, boom) {
		t.Fatalf("expected chat provisioning error wrapping cause, got %v", err)
	}
	if profiles.CallCount() != 0 {
		t.Errorf("expected no profile update, got %d", profiles.CallCount())
	}
}

func TestRunProfileFailure(t *testing.T) {
	o, _, profiles, refresher := newTestOrchestrator()
	profiles.Err = &profile.UpstreamError{Kind: profile.UpstreamErrorKindUpstream, Status: 500}

	_, err := o.Run(context.Background(), testAccumulated())
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	var upstream *profile.UpstreamError
	if !errors.As(err, &upstream) || upstream.Status != 500 {
		t.Errorf("expected upstream cause, got %v", err)
	}
	if refresher.count() != 0 {
		t.Errorf("expected no refresh, got %d", refresher.count())
	}
	if Message(err) != NoticeUnexpected {
		t.Errorf("unexpected notice %q", Message(err))
	}
	if o.Submitted() {
		t.Error("expected not submitted")
	}
}

func TestRunMissingToken(t *testing.T) {
	o, _, profiles, refresher := newTestOrchestrator()
	profiles.Result = &profile.UpdateResult{}

	_, err := o.Run(context.Background(), testAccumulated())
	if !errors.Is(err, ErrPersistence) || !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token persistence error, got %v", err)
	}
	if refresher.count() != 0 {
		t.Errorf("expected no refresh, got %d", refresher.count())
	}
}

func TestRunRefreshFailure(t *testing.T) {
	o, _, _, refresher := newTestOrchestrator()
	refresher.err = errors.New("provider down")

	_, err := o.Run(context.Background(), testAccumulated())
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if o.Submitted() {
		t.Error("expected not submitted")
	}
}

func TestRunRetryReusesKeyThenSendsOnce(t *testing.T) {
	o, chatP, profiles, _ := newTestOrchestrator()
	profiles.Err = errors.New("temporary")

	if _, err := o.Run(context.Background(), testAccumulated()); err == nil {
		t.Fatal("expected first run to fail")
	}
	profiles.Err = nil
	if _, err := o.Run(context.Background(), testAccumulated()); err != nil {
		t.Fatalf("retry: %v", err)
	}

	calls := profiles.Calls()
	if len(calls) != 2 || calls[0].IdempotencyKey != calls[1].IdempotencyKey {
		t.Fatalf("expected same key across retries, got %+v", calls)
	}

	_, err := o.Run(context.Background(), testAccumulated())
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
	if chatP.CallCount() != 2 || profiles.CallCount() != 2 {
		t.Errorf("expected no calls after success, got chat=%d profile=%d", chatP.CallCount(), profiles.CallCount())
	}
}

func TestRunConcurrentSubmitIsRejected(t *testing.T) {
	o, chatP, profiles, _ := newTestOrchestrator()
	entered := make(chan struct{})
	release := make(chan struct{})
	profiles.Hook = func(context.Context) error {
		close(entered)
		<-release
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background(), testAccumulated())
		done <- err
	}()

	<-entered
	if !o.InFlight() {
		t.Error("expected in flight")
	}
	if _, err := o.Run(context.Background(), testAccumulated()); !errors.Is(err, ErrInFlight) {
		t.Errorf("expected ErrInFlight, got %v", err)
	}
	if chatP.CallCount() != 1 {
		t.Errorf("expected rejected run to make no calls, got %d chat calls", chatP.CallCount())
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
	if profiles.CallCount() != 1 {
		t.Errorf("expected one profile update, got %d", profiles.CallCount())
	}
}

func TestRunTimeoutReleasesGate(t *testing.T) {
	o, _, profiles, _ := newTestOrchestrator(WithCallTimeout(10 * time.Millisecond))
	profiles.Hook = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	_, err := o.Run(context.Background(), testAccumulated())
	if !errors.Is(err, ErrPersistence) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timed out persistence, got %v", err)
	}
	if o.InFlight() {
		t.Error("expected gate released after timeout")
	}
}

func TestWithIdempotencyKey(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(WithIdempotencyKey("fixed-key"))
	if o.IdempotencyKey() != "fixed-key" {
		t.Errorf("expected fixed-key, got %q", o.IdempotencyKey())
	}
	other, _, _, _ := newTestOrchestrator()
	if other.IdempotencyKey() == o.IdempotencyKey() {
		t.Error("expected distinct generated key")
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrChatProvisioning, NoticeChatProvisioning},
		{ErrPersistence, NoticeUnexpected},
		{ErrInFlight, NoticeInFlight},
		{ErrAlreadySubmitted, NoticeAlreadySubmitted},
		{errors.New("raw upstream detail"), NoticeUnexpected},
	}
	for _, tt := range tests {
		if got := Message(tt.err); got != tt.want {
			t.Errorf("Message(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestRunStagedSkipsStageWhenRejected(t *testing.T) {
	o, chatP, _, _ := newTestOrchestrator()
	staged := 0
	stage := func() (step.Accumulated, error) {
		staged++
		return testAccumulated(), nil
	}

	o.inFlight.Store(true)
	if _, err := o.RunStaged(context.Background(), stage); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}
	o.inFlight.Store(false)
	if staged != 0 {
		t.Fatalf("expected stage not to run while in flight, ran %d times", staged)
	}

	if _, err := o.RunStaged(context.Background(), stage); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := o.RunStaged(context.Background(), stage); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
	if staged != 1 || chatP.CallCount() != 1 {
		t.Errorf("expected one stage and one chat call, got %d and %d", staged, chatP.CallCount())
	}
}

func TestRunStagedReturnsStageError(t *testing.T) {
	o, chatP, profiles, _ := newTestOrchestrator()
	stageErr := errors.New("invalid photo")

	_, err := o.RunStaged(context.Background(), func() (step.Accumulated, error) {
		return step.Accumulated{}, stageErr
	})
	if !errors.Is(err, stageErr) {
		t.Fatalf("expected stage error, got %v", err)
	}
	if chatP.CallCount() != 0 || profiles.CallCount() != 0 || o.InFlight() {
		t.Errorf("expected no calls and a released gate")
	}
}
