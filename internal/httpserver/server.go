// Package httpserver assembles the registry's HTTP surface: route table,
// middleware chain, and graceful lifecycle.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/agentskills/registry/internal/apierror"
	"github.com/agentskills/registry/internal/authn"
	"github.com/agentskills/registry/internal/httpserver/handlers"
	"github.com/agentskills/registry/internal/registry"
)

// Config controls request limits and CORS for the assembled server.
type Config struct {
	APIPrefix           string
	CORSOrigins         []string
	MaxBundleSize       int64
	MaxDecompressedSize int64
	ShutdownTimeout     time.Duration
}

// Server wraps the assembled router with a graceful Shutdown.
type Server struct {
	httpServer *http.Server
	shutdownTO time.Duration
}

// New builds the full route table and middleware chain over reg.
func New(addr string, reg *registry.Service, cfg Config) *Server {
	base := &handlers.Base{Registry: reg}

	health := handlers.NewHealthHandler(reg.DB(), reg.Store())
	skills := handlers.NewSkillsHandler(base)
	search := handlers.NewSearchHandler(base)
	publish := handlers.NewPublishHandler(base, cfg.MaxBundleSize, cfg.MaxDecompressedSize)
	star := handlers.NewStarHandler(base)
	categories := handlers.NewCategoriesHandler(base)
	users := handlers.NewUsersHandler(base)
	auth := handlers.NewAuthHandler(base)

	router := mux.NewRouter()
	router.HandleFunc("/health", health.HandleHealth).Methods(http.MethodGet)

	api := router.PathPrefix(cfg.APIPrefix).Subrouter()
	api.HandleFunc("/skills", wrap(search.HandleSearch)).Methods(http.MethodGet)
	api.HandleFunc("/skills/publish", wrap(publish.HandlePublish)).Methods(http.MethodPost)
	api.HandleFunc("/skills/{name}", wrap(skills.HandleGetSkill)).Methods(http.MethodGet)
	api.HandleFunc("/skills/{name}/versions", wrap(skills.HandleListVersions)).Methods(http.MethodGet)
	api.HandleFunc("/skills/{name}/versions/{version}/download", wrap(skills.HandleDownload)).Methods(http.MethodGet)
	api.HandleFunc("/skills/{name}/star", wrap(star.HandleStar)).Methods(http.MethodPost)
	api.HandleFunc("/skills/{name}/star", wrap(star.HandleUnstar)).Methods(http.MethodDelete)
	api.HandleFunc("/categories", wrap(categories.HandleListCategories)).Methods(http.MethodGet)
	api.HandleFunc("/users/{username}", wrap(users.HandleGetUser)).Methods(http.MethodGet)
	api.HandleFunc("/auth/github", wrap(auth.HandleGitHubExchange)).Methods(http.MethodPost)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})

	var handler http.Handler = router
	handler = contentTypeMiddleware(handler)
	handler = loggingMiddleware(handler)
	handler = authn.Middleware(reg.LookupToken)(handler)
	handler = requestIDMiddleware(handler)
	handler = corsMiddleware.Handler(handler)
	handler = otelhttp.NewHandler(handler, "registry")

	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: handler},
		shutdownTO: cfg.ShutdownTimeout,
	}
}

// wrap adapts an apierror.ResponseWriter-aware handler to http.HandlerFunc;
// statusResponseWriter already implements apierror.ResponseWriter, so the
// middleware chain's wrapping is sufficient and this only narrows the type.
func wrap(h func(apierror.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ew, ok := w.(apierror.ResponseWriter); ok {
			h(ew, r)
			return
		}
		h(apierror.Wrap(w), r)
	}
}

// ListenAndServe starts the server and blocks until it stops or ctx is
// canceled, at which point it drains in-flight requests within the
// configured shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTO)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
