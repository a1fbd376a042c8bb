package registry

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/agentskills/registry/internal/apierror"
	"github.com/agentskills/registry/internal/authn"
	"github.com/agentskills/registry/internal/dbmodels"
	"github.com/agentskills/registry/internal/identity"
)

// LookupToken resolves a bearer token to its owning Principal, for use as
// an authn.UserLookup.
func (s *Service) LookupToken(ctx context.Context, token string) (authn.Principal, bool) {
	var user dbmodels.User
	if err := s.db.WithContext(ctx).Where("api_token = ?", token).First(&user).Error; err != nil {
		return authn.Principal{}, false
	}
	return authn.Principal{UserID: user.ID, Username: user.Username}, true
}

// ExchangeResult is the response rendered by POST /auth/github.
type ExchangeResult struct {
	Username    string
	DisplayName string
	AvatarURL   string
	APIToken    string
}

// ExchangeIdentity trades an upstream access token for a registry token,
// creating or linking a user record: by external_id first, then by login
// as a username, then minting a brand-new account.
func (s *Service) ExchangeIdentity(ctx context.Context, upstreamToken string) (*ExchangeResult, error) {
	profile, err := s.identity.Exchange(ctx, upstreamToken)
	if err != nil {
		if errors.Is(err, identity.ErrMissingID) {
			return nil, apierror.NewBadRequestError("upstream profile missing a stable id", nil)
		}
		return nil, apierror.NewUnauthorizedError("upstream identity token rejected", err)
	}

	var result *ExchangeResult
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var byExternal dbmodels.User
		err := tx.Where("external_id = ?", profile.ID).First(&byExternal).Error
		if err == nil {
			byExternal.DisplayName = profile.DisplayName
			byExternal.AvatarURL = profile.AvatarURL
			if err := tx.Save(&byExternal).Error; err != nil {
				return apierror.NewDatabaseError("Failed to refresh user profile", err)
			}
			result = &ExchangeResult{Username: byExternal.Username, DisplayName: byExternal.DisplayName, AvatarURL: byExternal.AvatarURL, APIToken: byExternal.APIToken}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NewDatabaseError("Failed to look up user by external id", err)
		}

		var byLogin dbmodels.User
		err = tx.Where("username = ?", profile.Login).First(&byLogin).Error
		if err == nil {
			byLogin.ExternalID = profile.ID
			byLogin.DisplayName = profile.DisplayName
			byLogin.AvatarURL = profile.AvatarURL
			if err := tx.Save(&byLogin).Error; err != nil {
				return apierror.NewDatabaseError("Failed to link user profile", err)
			}
			result = &ExchangeResult{Username: byLogin.Username, DisplayName: byLogin.DisplayName, AvatarURL: byLogin.AvatarURL, APIToken: byLogin.APIToken}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NewDatabaseError("Failed to look up user by login", err)
		}

		token, err := mintAPIToken()
		if err != nil {
			return apierror.NewInternalServerError("Failed to mint API token", err)
		}
		newUser := dbmodels.User{
			Username:    profile.Login,
			APIToken:    token,
			DisplayName: profile.DisplayName,
			AvatarURL:   profile.AvatarURL,
			ExternalID:  profile.ID,
			CreatedAt:   time.Now(),
		}
		if err := tx.Create(&newUser).Error; err != nil {
			return apierror.NewDatabaseError("Failed to create user", err)
		}
		result = &ExchangeResult{Username: newUser.Username, DisplayName: newUser.DisplayName, AvatarURL: newUser.AvatarURL, APIToken: newUser.APIToken}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return result, nil
}

// mintAPIToken generates a registry token of the form "ask-{48 hex chars}"
// from a CSPRNG.
func mintAPIToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return "ask-" + hex.EncodeToString(buf), nil
}
