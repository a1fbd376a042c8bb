package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/agentskills/registry/internal/authn"
)

// SkillsHandler serves the read-only skill and version routes.
type SkillsHandler struct {
	*Base
}

// NewSkillsHandler builds a SkillsHandler.
func NewSkillsHandler(base *Base) *SkillsHandler {
	return &SkillsHandler{Base: base}
}

// HandleGetSkill implements GET /skills/{name}.
func (h *SkillsHandler) HandleGetSkill(w ErrorResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var viewerID uuid.UUID
	if p, ok := authn.FromContext(r.Context()); ok {
		viewerID = p.UserID
	}

	view, err := h.Registry.GetSkill(r.Context(), name, viewerID)
	if err != nil {
		w.RespondWithError(err)
		return
	}
	RespondWithJSON(w, http.StatusOK, view)
}

// HandleListVersions implements GET /skills/{name}/versions.
func (h *SkillsHandler) HandleListVersions(w ErrorResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	versions, err := h.Registry.ListVersions(r.Context(), name)
	if err != nil {
		w.RespondWithError(err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{"name": name, "versions": versions})
}

// HandleDownload implements GET /skills/{name}/versions/{version}/download.
func (h *SkillsHandler) HandleDownload(w ErrorResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, version := vars["name"], vars["version"]

	result, err := h.Registry.Download(r.Context(), name, version)
	if err != nil {
		w.RespondWithError(err)
		return
	}
	defer result.Body.Close()

	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Name+"-"+result.Version+".tar.gz"))
	w.Header().Set("X-Checksum-SHA256", result.Checksum)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, result.Body)
}
