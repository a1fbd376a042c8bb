package handlers

import "net/http"

// CategoriesHandler serves GET /categories.
type CategoriesHandler struct {
	*Base
}

// NewCategoriesHandler builds a CategoriesHandler.
func NewCategoriesHandler(base *Base) *CategoriesHandler {
	return &CategoriesHandler{Base: base}
}

// HandleListCategories implements GET /categories.
func (h *CategoriesHandler) HandleListCategories(w ErrorResponseWriter, r *http.Request) {
	categories, err := h.Registry.Categories(r.Context())
	if err != nil {
		w.RespondWithError(err)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{"categories": categories})
}
