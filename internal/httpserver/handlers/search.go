package handlers

import (
	"net/http"
	"strconv"

	"github.com/agentskills/registry/internal/registry"
)

// SearchHandler serves GET /skills.
type SearchHandler struct {
	*Base
}

// NewSearchHandler builds a SearchHandler.
func NewSearchHandler(base *Base) *SearchHandler {
	return &SearchHandler{Base: base}
}

// HandleSearch implements GET /skills: q, tag, category, provider, sort,
// page, and per_page query parameters.
func (h *SearchHandler) HandleSearch(w ErrorResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage == 0 {
		perPage = 20
	}

	params := registry.SearchParams{
		Query:    q.Get("q"),
		Tag:      q.Get("tag"),
		Category: q.Get("category"),
		Provider: q.Get("provider"),
		Sort:     q.Get("sort"),
		Page:     page,
		PerPage:  perPage,
	}

	result, err := h.Registry.Search(r.Context(), params)
	if err != nil {
		w.RespondWithError(err)
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}
