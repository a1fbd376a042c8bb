package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// UsersHandler serves GET /users/{username}.
type UsersHandler struct {
	*Base
}

// NewUsersHandler builds a UsersHandler.
func NewUsersHandler(base *Base) *UsersHandler {
	return &UsersHandler{Base: base}
}

// HandleGetUser implements GET /users/{username}.
func (h *UsersHandler) HandleGetUser(w ErrorResponseWriter, r *http.Request) {
	view, err := h.Registry.UserProfile(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		w.RespondWithError(err)
		return
	}
	RespondWithJSON(w, http.StatusOK, view)
}
