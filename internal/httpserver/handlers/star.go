package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agentskills/registry/internal/apierror"
	"github.com/agentskills/registry/internal/authn"
)

// StarHandler serves the star/unstar routes.
type StarHandler struct {
	*Base
}

// NewStarHandler builds a StarHandler.
func NewStarHandler(base *Base) *StarHandler {
	return &StarHandler{Base: base}
}

// HandleStar implements POST /skills/{name}/star.
func (h *StarHandler) HandleStar(w ErrorResponseWriter, r *http.Request) {
	caller, ok := authn.FromContext(r.Context())
	if !ok {
		w.RespondWithError(apierror.NewUnauthorizedError("missing or invalid token", nil))
		return
	}

	count, err := h.Registry.Star(r.Context(), caller.UserID, mux.Vars(r)["name"])
	if err != nil {
		w.RespondWithError(err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{"starred": true, "stars_count": count})
}

// HandleUnstar implements DELETE /skills/{name}/star.
func (h *StarHandler) HandleUnstar(w ErrorResponseWriter, r *http.Request) {
	caller, ok := authn.FromContext(r.Context())
	if !ok {
		w.RespondWithError(apierror.NewUnauthorizedError("missing or invalid token", nil))
		return
	}

	count, err := h.Registry.Unstar(r.Context(), caller.UserID, mux.Vars(r)["name"])
	if err != nil {
		w.RespondWithError(err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{"starred": false, "stars_count": count})
}
