package httpserver

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/agentskills/registry/internal/apierror"
	"github.com/agentskills/registry/internal/authn"
	"github.com/agentskills/registry/internal/logctx"
)

// requestIDMiddleware generates or extracts X-Request-ID for correlation
// and reflects it back on the response.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
			r.Header.Set("X-Request-ID", requestID)
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware attaches a request-scoped logger to the context and
// records method, path, caller, status, and duration once the request
// completes.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		log := logctx.FromContext(r.Context()).WithValues(
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Header.Get("X-Request-ID"),
		)
		if p, ok := authn.FromContext(r.Context()); ok {
			log = log.WithValues("user", p.Username)
		}

		ww := newStatusResponseWriter(w)
		ctx := logctx.IntoContext(r.Context(), log)
		log.V(1).Info("request started")
		next.ServeHTTP(ww, r.WithContext(ctx))
		log.Info("request completed",
			"status", ww.status,
			"duration", time.Since(start).String(),
		)
	})
}

var _ http.Flusher = &statusResponseWriter{}

type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

func newStatusResponseWriter(w http.ResponseWriter) *statusResponseWriter {
	return &statusResponseWriter{w, http.StatusOK}
}

func (w *statusResponseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// RespondWithError renders err through apierror's taxonomy, writing the
// status through WriteHeader so the middleware's status tracking reflects
// the rendered status.
func (w *statusResponseWriter) RespondWithError(err error) {
	apierror.Wrap(w).RespondWithError(err)
}

func contentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
