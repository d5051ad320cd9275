package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/janisto/onboarding-wizard/internal/config"
	"github.com/janisto/onboarding-wizard/internal/http/health"
	"github.com/janisto/onboarding-wizard/internal/http/v1/onboarding"
	"github.com/janisto/onboarding-wizard/internal/http/v1/routes"
	"github.com/janisto/onboarding-wizard/internal/onboarding/wizard"
	"github.com/janisto/onboarding-wizard/internal/platform/auth"
	"github.com/janisto/onboarding-wizard/internal/platform/firebase"
	applog "github.com/janisto/onboarding-wizard/internal/platform/logging"
	appmiddleware "github.com/janisto/onboarding-wizard/internal/platform/middleware"
	"github.com/janisto/onboarding-wizard/internal/platform/respond"
	"github.com/janisto/onboarding-wizard/internal/service/chat"
	"github.com/janisto/onboarding-wizard/internal/service/profile"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

const (
	apiPrefix = "/v1"
	docsPath  = "/api-docs"
)

func main() {
	defer func() {
		if err := applog.Sync(); err != nil {
			applog.LogError(context.Background(), "logger sync error", err)
		}
	}()
	if err := applog.Err(); err != nil {
		applog.LogError(context.Background(), "logger init error", err)
	}

	if err := run(); err != nil {
		applog.LogError(context.Background(), "server failed", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	clients, err := firebase.InitializeClients(ctx, firebase.Config{
		ProjectID:       cfg.FirebaseProjectID,
		CredentialsFile: cfg.CredentialsFile,
		SkipAuth:        cfg.AuthMode == config.AuthModeJWT,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := clients.Close(); err != nil {
			applog.LogError(ctx, "firebase close error", err)
		}
	}()

	verifier, err := newVerifier(cfg, clients)
	if err != nil {
		return err
	}
	profiles := profile.NewClient(
		&http.Client{Timeout: cfg.CallTimeout},
		cfg.ProfileAPIURL,
		profile.WithTokenFunc(requestToken),
	)
	registry := onboarding.NewRegistry(onboarding.NewFactory(onboarding.FactoryDeps{
		Chat:     chat.NewFirestoreProvisioner(clients.Firestore),
		Profiles: profiles,
		Verifier: verifier,
		TokenDir: cfg.TokenDir,
		Config: wizard.Config{
			CallTimeout: cfg.CallTimeout,
			MainPath:    cfg.MainPath,
			LoginPath:   cfg.LoginPath,
		},
	}))

	srv := newServer(cfg, newRouter(verifier, registry, cfg.CORSAllowedOrigins))

	listenErr := make(chan error, 1)
	go func() {
		applog.LogInfo(ctx, "server listening",
			zap.String("addr", srv.Addr),
			zap.String("auth_mode", cfg.AuthMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-listenErr:
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	case <-stop:
		applog.LogInfo(ctx, "shutdown signal received")
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		applog.LogError(shutdownCtx, "server shutdown error", err)
	}
	applog.LogInfo(ctx, "server exited")
	return nil
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		// Submission makes up to three bounded external calls.
		WriteTimeout:   3*cfg.CallTimeout + 5*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 64 << 10, // 64 KB
	}
}

func newVerifier(cfg *config.Config, clients *firebase.Clients) (auth.Verifier, error) {
	switch cfg.AuthMode {
	case config.AuthModeJWT:
		return auth.NewJWTVerifier(cfg.JWTSecret), nil
	case config.AuthModeFirebase:
		if clients == nil || clients.Auth == nil {
			return nil, errors.New("firebase auth client not initialized")
		}
		return auth.NewFirebaseVerifier(clients.Auth), nil
	default:
		return nil, fmt.Errorf("%w: AUTH_MODE %q", config.ErrInvalid, cfg.AuthMode)
	}
}

// requestToken forwards the caller's bearer token to the profile backend.
func requestToken(ctx context.Context) (string, error) {
	return auth.TokenFromContext(ctx), nil
}

func newRouter(verifier auth.Verifier, registry *onboarding.Registry, origins []string) chi.Router {
	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	// Base middleware stack
	router.Use(
		appmiddleware.Security(apiPrefix+docsPath, "/health"),
		appmiddleware.Vary(),
		appmiddleware.CORS(origins...),
		appmiddleware.RequestID(),
		// RealIP trusts X-Forwarded-For; only deploy behind a trusted proxy.
		chimiddleware.RealIP,
		chimiddleware.RequestSize(1<<20), // 1 MB limit
		applog.RequestLogger(),
		applog.AccessLogger(),
		respond.Recoverer(),
	)

	router.Get("/health", health.NewHandler(Version, registry))

	router.Route(apiPrefix, func(r chi.Router) {
		routes.Register(newAPI(r), verifier, registry)
	})

	return router
}

func newAPI(r chi.Router) huma.API {
	cfg := huma.DefaultConfig("Onboarding Wizard API", Version)
	cfg.DocsPath = docsPath
	cfg.Servers = []*huma.Server{{URL: apiPrefix}}
	api := humachi.New(r, cfg)
	api.OpenAPI().OnAddOperation = append(api.OpenAPI().OnAddOperation, advertiseCBOR)
	return api
}

// advertiseCBOR lists CBOR alongside JSON wherever an operation declares JSON content.
func advertiseCBOR(_ *huma.OpenAPI, op *huma.Operation) {
	if op.RequestBody != nil && op.RequestBody.Content != nil {
		if jsonContent, ok := op.RequestBody.Content["application/json"]; ok {
			op.RequestBody.Content["application/cbor"] = jsonContent
		}
	}
	for _, resp := range op.Responses {
		if resp.Content == nil {
			continue
		}
		if jsonContent, ok := resp.Content["application/json"]; ok {
			resp.Content["application/cbor"] = jsonContent
		}
	}
}
