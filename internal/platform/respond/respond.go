// Package respond renders RFC 9457 problem details for requests that never
// reach a Huma operation: unknown routes, wrong methods and panics.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	applog "github.com/janisto/onboarding-wizard/internal/platform/logging"
)

const (
	contentTypeProblemJSON = "application/problem+json"
	contentTypeProblemCBOR = "application/problem+cbor"
	schemaPath             = "/schemas/ErrorModel.json"
)

// problem has the shape of huma.ErrorModel, including the $schema link,
// plus a traceId extension member for log correlation.
type problem struct {
	Schema  string `json:"$schema,omitempty" cbor:"$schema,omitempty"`
	Title   string `json:"title"             cbor:"title"`
	Status  int    `json:"status"            cbor:"status"`
	Detail  string `json:"detail,omitempty"  cbor:"detail,omitempty"`
	TraceID string `json:"traceId,omitempty" cbor:"traceId,omitempty"`
}

// NotFoundHandler renders a 404 problem.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, "resource not found")
	}
}

// MethodNotAllowedHandler renders a 405 problem with an Allow header.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allow := allowedMethods(r); len(allow) > 0 {
			w.Header().Set("Allow", strings.Join(allow, ", "))
		}
		writeProblem(w, r, http.StatusMethodNotAllowed,
			fmt.Sprintf("method %s not allowed", r.Method))
	}
}

// Recoverer converts panics into 500 problems. http.ErrAbortHandler is re-panicked.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				applog.LogError(r.Context(), "panic recovered", fmt.Errorf("%w\n%s", err, debug.Stack()))
				if ww.Status() != 0 {
					return
				}
				writeProblem(ww, r, http.StatusInternalServerError, "internal server error")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	schema := schemaURL(r)
	p := problem{
		Schema:  schema,
		Title:   http.StatusText(status),
		Status:  status,
		Detail:  detail,
		TraceID: applog.TraceIDFromContext(r.Context()),
	}

	var (
		body []byte
		err  error
		ct   string
	)
	if prefersCBOR(r.Header.Get("Accept")) {
		ct = contentTypeProblemCBOR
		body, err = cbor.Marshal(p)
	} else {
		ct = contentTypeProblemJSON
		body, err = marshalJSON(p)
	}
	if err != nil {
		applog.LogError(r.Context(), "failed to encode problem", err)
		http.Error(w, http.StatusText(status), status)
		return
	}

	h := w.Header()
	h.Set("Content-Type", ct)
	h.Set("Link", "<"+schema+`>; rel="describedBy"`)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func marshalJSON(v any) ([]byte, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func schemaURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + schemaPath
}

// prefersCBOR reports whether CBOR ranks strictly above JSON in an Accept header.
// Ties and wildcards fall back to JSON.
func prefersCBOR(accept string) bool {
	if strings.TrimSpace(accept) == "" {
		return false
	}
	ranges := parseAccept(accept)
	return qualityFor(ranges, "application", "cbor") > qualityFor(ranges, "application", "json")
}

type mediaRange struct {
	typ, sub string
	q        float64
}

func parseAccept(accept string) []mediaRange {
	var out []mediaRange
	for part := range strings.SplitSeq(accept, ",") {
		params := strings.Split(part, ";")
		mt := strings.ToLower(strings.TrimSpace(params[0]))
		typ, sub, ok := strings.Cut(mt, "/")
		if !ok || typ == "" || sub == "" {
			continue
		}
		q := 1.0
		for _, p := range params[1:] {
			k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
			if !ok || !strings.EqualFold(k, "q") {
				continue
			}
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil || parsed < 0 || parsed > 1 {
				parsed = 0
			}
			q = parsed
		}
		out = append(out, mediaRange{typ: typ, sub: sub, q: q})
	}
	return out
}

// qualityFor returns the q of the most specific range matching typ/sub.
func qualityFor(ranges []mediaRange, typ, sub string) float64 {
	best, specificity := 0.0, -1
	for _, mr := range ranges {
		s := -1
		switch {
		case mr.typ == typ && (mr.sub == sub || strings.HasSuffix(mr.sub, "+"+sub)):
			s = 2
		case mr.typ == typ && mr.sub == "*":
			s = 1
		case mr.typ == "*" && mr.sub == "*":
			s = 0
		}
		if s > specificity {
			best, specificity = mr.q, s
		}
	}
	return best
}

// allowedMethods inspects chi's routing tree for methods matching the path.
func allowedMethods(r *http.Request) []string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return nil
	}
	routePath := rctx.RoutePath
	if routePath == "" {
		routePath = r.URL.Path
	}
	if routePath == "" {
		routePath = "/"
	}

	var allowed []string
	for _, method := range []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	} {
		if rctx.Routes.Match(chi.NewRouteContext(), method, routePath) {
			allowed = append(allowed, method)
		}
	}
	return allowed
}
