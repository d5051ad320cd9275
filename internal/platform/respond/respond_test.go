package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	applog "github.com/janisto/onboarding-wizard/internal/platform/logging"
)

func TestNotFoundHandlerReturnsProblemDetails(t *testing.T) {
	router := chi.NewRouter()
	router.NotFound(NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != contentTypeProblemJSON {
		t.Fatalf("expected %s, got %q", contentTypeProblemJSON, ct)
	}
	link := resp.Header().Get("Link")
	if !strings.Contains(link, schemaPath) || !strings.Contains(link, "describedBy") {
		t.Fatalf("expected Link header with schema, got %q", link)
	}

	var p problem
	if err := json.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal problem: %v", err)
	}
	if p.Status != http.StatusNotFound || p.Title != "Not Found" || p.Detail != "resource not found" {
		t.Fatalf("unexpected problem %+v", p)
	}
	if p.TraceID != "" {
		t.Fatalf("expected no trace ID without request logging, got %q", p.TraceID)
	}
}

func TestProblemCarriesTraceID(t *testing.T) {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID, applog.RequestLogger())
	router.NotFound(NotFoundHandler())
	router.Get("/v1/onboarding", func(http.ResponseWriter, *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(chimiddleware.RequestIDHeader, "req-trace-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var p problem
	if err := json.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal problem: %v", err)
	}
	if p.TraceID != "req-trace-1" {
		t.Fatalf("expected trace ID req-trace-1, got %q", p.TraceID)
	}
}

func TestMethodNotAllowedHandlerListsAllowedMethods(t *testing.T) {
	router := chi.NewRouter()
	router.MethodNotAllowed(MethodNotAllowedHandler())
	router.Get("/v1/onboarding", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodPost, "/v1/onboarding", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
	if allow := resp.Header().Get("Allow"); !strings.Contains(allow, http.MethodGet) {
		t.Fatalf("expected Allow header to list GET, got %q", allow)
	}
	var p huma.ErrorModel
	if err := json.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal problem: %v", err)
	}
	if !strings.Contains(p.Detail, "POST") {
		t.Fatalf("expected detail to mention POST, got %s", p.Detail)
	}
}

func TestNotFoundHandlerReturnsCBORWhenPreferred(t *testing.T) {
	router := chi.NewRouter()
	router.NotFound(NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("Accept", "application/cbor")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if ct := resp.Header().Get("Content-Type"); ct != contentTypeProblemCBOR {
		t.Fatalf("expected %s, got %q", contentTypeProblemCBOR, ct)
	}
	var p problem
	if err := cbor.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to decode CBOR problem: %v", err)
	}
	if p.Status != http.StatusNotFound {
		t.Fatalf("unexpected status %d", p.Status)
	}
}

func TestRecovererReturnsProblemDetails(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Recoverer())
	router.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	var p problem
	if err := json.Unmarshal(resp.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to unmarshal problem: %v", err)
	}
	if p.Detail != "internal server error" {
		t.Fatalf("unexpected detail %q", p.Detail)
	}
}

func TestRecovererSkipsWriteWhenHeaderAlreadyWritten(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Recoverer())
	router.Get("/partial", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic(errors.New("late failure"))
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/partial", nil))

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected original status to stand, got %d", resp.Code)
	}
	if resp.Body.Len() != 0 {
		t.Fatalf("expected no problem body, got %q", resp.Body.String())
	}
}

func TestRecovererRePanicsOnErrAbortHandler(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Recoverer())
	router.Get("/abort", func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	})

	defer func() {
		rec := recover()
		err, ok := rec.(error)
		if !ok || !errors.Is(err, http.ErrAbortHandler) {
			t.Fatalf("expected http.ErrAbortHandler to be re-panicked, got %v", rec)
		}
	}()

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/abort", nil))
	t.Fatal("expected panic to propagate")
}

func TestSchemaURLUsesForwardedProto(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Host = "example.com"
	req.Header.Set("X-Forwarded-Proto", "https")
	if got := schemaURL(req); got != "https://example.com"+schemaPath {
		t.Fatalf("unexpected schema URL %q", got)
	}
}

func TestPrefersCBOR(t *testing.T) {
	tests := []struct {
		accept string
		want   bool
	}{
		{"", false},
		{"*/*", false},
		{"application/*", false},
		{"application/json", false},
		{"application/cbor", true},
		{"application/cbor;q=1.0", true},
		{"application/json, application/cbor", false},
		{"application/json;q=0.9, application/cbor", true},
		{"application/cbor;q=0, */*", false},
		{"application/problem+cbor", true},
		{"text/plain", false},
		{"garbage", false},
		{"application/cbor;q=abc", false},
	}
	for _, tt := range tests {
		if got := prefersCBOR(tt.accept); got != tt.want {
			t.Errorf("prefersCBOR(%q) = %v, want %v", tt.accept, got, tt.want)
		}
	}
}
