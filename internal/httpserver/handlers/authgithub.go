package handlers

import "net/http"

// AuthHandler serves the upstream identity exchange route.
type AuthHandler struct {
	*Base
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(base *Base) *AuthHandler {
	return &AuthHandler{Base: base}
}

type githubExchangeRequest struct {
	AccessToken string `json:"access_token"`
}

// HandleGitHubExchange implements POST /auth/github: trades an upstream
// access token for a registry-minted API token.
func (h *AuthHandler) HandleGitHubExchange(w ErrorResponseWriter, r *http.Request) {
	var req githubExchangeRequest
	if err := DecodeJSONBody(r, &req); err != nil {
		w.RespondWithError(err)
		return
	}

	result, err := h.Registry.ExchangeIdentity(r.Context(), req.AccessToken)
	if err != nil {
		w.RespondWithError(err)
		return
	}

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"username":     result.Username,
		"display_name": result.DisplayName,
		"avatar_url":   result.AvatarURL,
		"api_token":    result.APIToken,
	})
}
