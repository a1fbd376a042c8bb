package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/agentskills/registry/internal/objectstore"
	"gorm.io/gorm"
)

// HealthHandler reports the liveness of the registry and its two backing
// stores.
type HealthHandler struct {
	db    *gorm.DB
	store objectstore.Store
}

// NewHealthHandler builds a HealthHandler.
func NewHealthHandler(db *gorm.DB, store objectstore.Store) *HealthHandler {
	return &HealthHandler{db: db, store: store}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Storage  string `json:"storage"`
}

// HandleHealth reports "ok" per subsystem, or "degraded" overall if either
// is unreachable. It never returns a non-200 status: degradation is
// reported in the body, not the status code.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok", Storage: "ok"}

	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		resp.Database = "unreachable"
		resp.Status = "degraded"
	}

	// The storage adapter has no lightweight ping; a missing configuration
	// is the only failure mode checked here.
	if h.store == nil {
		resp.Storage = "unreachable"
		resp.Status = "degraded"
	}

	RespondWithJSON(w, http.StatusOK, resp)
}
