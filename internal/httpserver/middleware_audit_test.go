package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agentskills/registry/internal/apierror"
	"github.com/agentskills/registry/internal/authn"
)

func wrapAsErrorWriter(rec *httptest.ResponseRecorder) apierror.ResponseWriter {
	return apierror.Wrap(rec)
}

func errNotFoundForTest() error {
	return apierror.NewNotFoundError("not found", nil)
}

func TestRequestIDMiddlewareGeneratesWhenAbsent(t *testing.T) {
	var captured string
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = w.Header().Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/skills", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if captured == "" {
		t.Fatal("expected a generated X-Request-ID")
	}
	if got := rec.Header().Get("X-Request-ID"); got != captured {
		t.Errorf("response header X-Request-ID = %q, want %q", got, captured)
	}
}

func TestRequestIDMiddlewarePreservesExisting(t *testing.T) {
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/skills", nil)
	req.Header.Set("X-Request-ID", "caller-supplied-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "caller-supplied-id" {
		t.Errorf("X-Request-ID = %q, want %q", got, "caller-supplied-id")
	}
}

func TestLoggingMiddlewareCapturesStatus(t *testing.T) {
	handler := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/skills/publish", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
}

func TestStatusResponseWriterForwardsErrorRendering(t *testing.T) {
	rec := httptest.NewRecorder()
	ww := newStatusResponseWriter(wrapAsErrorWriter(rec))

	ww.RespondWithError(errNotFoundForTest())

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestLoggingMiddlewareIncludesAuthenticatedUser(t *testing.T) {
	var seen bool
	handler := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, seen = authn.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	ctx := authn.IntoContext(httptest.NewRequest(http.MethodGet, "/v1/skills/test-skill", nil).Context(), authn.Principal{Username: "dev"})
	req := httptest.NewRequest(http.MethodGet, "/v1/skills/test-skill", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !seen {
		t.Fatal("expected the authenticated principal to survive through the middleware")
	}
}
