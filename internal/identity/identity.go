// Package identity exchanges an upstream access token for the profile
// fields the registry needs to create or link a local user. The upstream
// identity provider itself is an opaque external collaborator: given a
// token, it returns {id, login, display_name, avatar_url} or fails.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// Profile is the upstream identity the exchange resolves to.
type Profile struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// ErrUnauthorized is returned when the upstream token is rejected.
var ErrUnauthorized = fmt.Errorf("identity: upstream token rejected")

// ErrMissingID is returned when the upstream profile lacks a stable id.
var ErrMissingID = fmt.Errorf("identity: upstream response missing a stable id")

// Exchanger fetches a Profile for an upstream access token.
type Exchanger interface {
	Exchange(ctx context.Context, accessToken string) (*Profile, error)
}

// githubExchanger calls an upstream identity endpoint (by default GitHub's
// user API) bearing the caller's access token.
type githubExchanger struct {
	profileURL string
}

// New builds an Exchanger against profileURL, the endpoint that returns the
// caller's profile for a bearer token. Empty profileURL defaults to
// GitHub's user endpoint.
func New(profileURL string) Exchanger {
	if profileURL == "" {
		profileURL = "https://api.github.com/user"
	}
	return &githubExchanger{profileURL: profileURL}
}

func (e *githubExchanger) Exchange(ctx context.Context, accessToken string) (*Profile, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("identity: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity: calling upstream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrUnauthorized
	}

	var raw struct {
		ID        json.Number `json:"id"`
		Login     string      `json:"login"`
		Name      string      `json:"name"`
		AvatarURL string      `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("identity: decoding upstream response: %w", err)
	}

	if raw.ID.String() == "" || raw.ID.String() == "0" {
		return nil, ErrMissingID
	}

	displayName := raw.Name
	if displayName == "" {
		displayName = raw.Login
	}

	return &Profile{
		ID:          raw.ID.String(),
		Login:       raw.Login,
		DisplayName: displayName,
		AvatarURL:   raw.AvatarURL,
	}, nil
}
