// Package handlers implements the HTTP surface of the registry: thin
// adapters from gorilla/mux routes to internal/registry.Service calls.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/agentskills/registry/internal/apierror"
	"github.com/agentskills/registry/internal/registry"
)

// ErrorResponseWriter is the writer type every handler receives, so a
// handler can report a typed failure without constructing the response
// body itself.
type ErrorResponseWriter = apierror.ResponseWriter

// Base holds the collaborators shared by every handler.
type Base struct {
	Registry *registry.Service
}

// RespondWithJSON writes v as a JSON body with the given status code.
func RespondWithJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSONBody decodes r's body into v, returning a BadRequest
// apierror.Error on malformed JSON.
func DecodeJSONBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apierror.NewBadRequestError("request body must be valid JSON", err)
	}
	return nil
}
