package onboarding

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/janisto/onboarding-wizard/internal/onboarding/session"
	"github.com/janisto/onboarding-wizard/internal/onboarding/wizard"
	"github.com/janisto/onboarding-wizard/internal/platform/auth"
	applog "github.com/janisto/onboarding-wizard/internal/platform/logging"
	"github.com/janisto/onboarding-wizard/internal/service/chat"
	"github.com/janisto/onboarding-wizard/internal/service/profile"
)

// Factory builds a wizard for an authenticated user. nav receives the
// wizard's navigation so the handler can return it to the client.
type Factory func(ctx context.Context, user *auth.User, token string, nav session.Navigator) *wizard.Wizard

// FactoryDeps are the shared collaborators of every wizard.
type FactoryDeps struct {
	Chat     chat.Provisioner
	Profiles profile.Service
	Verifier auth.Verifier
	// TokenDir holds one token file per user. Empty keeps tokens in memory.
	TokenDir string
	Config   wizard.Config
}

// NewFactory returns a Factory wiring each wizard to a token-verifying
// session provider seeded from the request identity.
func NewFactory(deps FactoryDeps) Factory {
	return func(ctx context.Context, user *auth.User, token string, nav session.Navigator) *wizard.Wizard {
		initial := session.FromUser(user, token)
		var store session.TokenStore = session.NewMemoryStore()
		if deps.TokenDir != "" {
			store = session.NewFileStore(TokenPath(deps.TokenDir, user.UID))
		}
		return wizard.New(ctx, user.UID, wizard.Deps{
			Chat:      deps.Chat,
			Profiles:  deps.Profiles,
			Provider:  session.NewTokenProvider(deps.Verifier, &initial),
			Tokens:    store,
			Navigator: nav,
		}, deps.Config)
	}
}

// TokenPath returns the token file for uid. The UID is hashed so it never
// reaches the filesystem verbatim.
func TokenPath(dir, uid string) string {
	return filepath.Join(dir, uuid.NewSHA1(uuid.NameSpaceOID, []byte(uid)).String()+".cbor")
}

// destinationRecorder keeps the last navigation of one wizard.
type destinationRecorder struct {
	mu   sync.Mutex
	last *session.Destination
}

func (d *destinationRecorder) Navigate(_ context.Context, dest session.Destination) error {
	d.mu.Lock()
	d.last = &dest
	d.mu.Unlock()
	return nil
}

// take returns and clears the last destination.
func (d *destinationRecorder) take() (session.Destination, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.last == nil {
		return session.Destination{}, false
	}
	dest := *d.last
	d.last = nil
	return dest, true
}

type entry struct {
	wizard   *wizard.Wizard
	nav      *destinationRecorder
	lastUsed time.Time
}

// DefaultIdleTTL is how long an untouched wizard is kept.
const DefaultIdleTTL = 24 * time.Hour

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIdleTTL sets how long an untouched wizard is kept. Non-positive values keep wizards until they finish.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) { r.ttl = d }
}

// WithRegistryClock overrides the clock used for idle expiry.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// Registry keeps one wizard per authenticated user. A wizard is dropped once
// the user has left it through continue, or after it sat idle for the TTL
// with no submission running.
type Registry struct {
	factory Factory
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry(factory Factory, opts ...RegistryOption) *Registry {
	r := &Registry{
		factory: factory,
		ttl:     DefaultIdleTTL,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// get returns the user's wizard, creating it on first use.
func (r *Registry) get(ctx context.Context, user *auth.User, token string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.expireLocked(ctx, now)
	if e, ok := r.entries[user.UID]; ok {
		e.lastUsed = now
		return e
	}
	nav := &destinationRecorder{}
	e := &entry{wizard: r.factory(ctx, user, token, nav), nav: nav, lastUsed: now}
	r.entries[user.UID] = e
	return e
}

// release drops uid's wizard if it is still e.
func (r *Registry) release(uid string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[uid] == e {
		delete(r.entries, uid)
	}
}

func (r *Registry) expireLocked(ctx context.Context, now time.Time) {
	if r.ttl <= 0 {
		return
	}
	for uid, e := range r.entries {
		if e.wizard.Submitting() {
			e.lastUsed = now
			continue
		}
		if now.Sub(e.lastUsed) < r.ttl {
			continue
		}
		delete(r.entries, uid)
		applog.LogInfo(ctx, "idle onboarding wizard dropped", zap.String("uid", uid))
	}
}

// Len returns the number of active wizards.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Compile-time interface check
var _ session.Navigator = (*destinationRecorder)(nil)
