package registry

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/agentskills/registry/internal/apierror"
	"github.com/agentskills/registry/internal/authn"
	"github.com/agentskills/registry/internal/bundle"
	"github.com/agentskills/registry/internal/constraint"
	"github.com/agentskills/registry/internal/dbmodels"
	"github.com/agentskills/registry/internal/manifest"
	"github.com/agentskills/registry/internal/objectstore"
	"github.com/agentskills/registry/internal/provider"
)

// PublishInput is the material a publish request supplies beyond the
// authenticated principal.
type PublishInput struct {
	Raw              []byte
	ProvidersOverride string
	CategoryName      string
	MaxDecompressed   int64
}

// PublishResult is the response rendered on a successful publish.
type PublishResult struct {
	Name        string
	Version     string
	Checksum    string
	PublishedAt time.Time
	Providers   []string
}

// Publish runs steps 3-15 of the publish transaction: extract and parse the
// bundle, validate authorship and constraints, resolve ownership, check for
// a duplicate version, upload the blob, and commit the metadata row. Steps
// 1 (authenticate) and 2 (body-size check) are the HTTP layer's
// responsibility and happen before Publish is called.
func (s *Service) Publish(ctx context.Context, caller authn.Principal, in PublishInput) (*PublishResult, error) {
	ws, err := bundle.Extract(in.Raw, bundle.Limits{MaxDecompressed: in.MaxDecompressed})
	if err != nil {
		return nil, translateParseErr(err)
	}
	defer ws.Release()

	manifestBytes, err := readManifest(ws.ManifestPath)
	if err != nil {
		return nil, apierror.NewInternalServerError("Failed to read extracted manifest", err)
	}

	parsed, err := manifest.Parse(manifestBytes)
	if err != nil {
		return nil, translateParseErr(err)
	}

	if parsed.Author != caller.Username {
		return nil, apierror.NewBadRequestError("author field must match your username", nil)
	}

	providers := resolveProviders(in.ProvidersOverride, parsed.Compatibility, ws.MemberPaths)

	if err := constraint.Validate(parsed.Name, providers); err != nil {
		return nil, translateParseErr(err)
	}

	checksum := sha256.Sum256(in.Raw)
	checksumHex := hex.EncodeToString(checksum[:])
	bundleKey := objectstore.BundleKey(parsed.Name, parsed.Version)

	readmeHTML, err := s.renderer.Render(parsed.Body)
	if err != nil {
		return nil, apierror.NewInternalServerError("Failed to render manifest body", err)
	}

	var result *PublishResult
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		var category *dbmodels.Category
		if in.CategoryName != "" {
			var c dbmodels.Category
			if err := tx.Where("name = ?", in.CategoryName).First(&c).Error; err == nil {
				category = &c
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return apierror.NewDatabaseError("Failed to look up category", err)
			}
			// A category name that doesn't resolve is silently dropped, not
			// an error.
		}

		skill, created, err := findOrCreateSkill(tx, parsed.Name, caller.UserID, category)
		if err != nil {
			return err
		}
		if !created {
			if skill.OwnerID != caller.UserID {
				return apierror.NewForbiddenError("you do not own this skill", nil)
			}
			if category != nil {
				skill.CategoryID = &category.ID
			}
		}

		var collision int64
		if err := tx.Model(&dbmodels.SkillVersion{}).
			Where("skill_id = ? AND version = ?", skill.ID, parsed.Version).
			Count(&collision).Error; err != nil {
			return apierror.NewDatabaseError("Failed to check for an existing version", err)
		}
		if collision > 0 {
			return apierror.NewConflictError(fmt.Sprintf("version %s already exists for skill %s", parsed.Version, parsed.Name), nil)
		}

		if err := s.store.Put(ctx, bundleKey, bytes.NewReader(in.Raw), int64(len(in.Raw))); err != nil {
			return apierror.NewStorageError("Failed to upload bundle", err)
		}

		metadata := mergeMetadata(parsed.Metadata, providers)
		version := dbmodels.SkillVersion{
			SkillID:     skill.ID,
			Version:     parsed.Version,
			BundleKey:   bundleKey,
			Metadata:    metadata,
			Checksum:    checksumHex,
			SizeBytes:   int64(len(in.Raw)),
			Providers:   dbmodels.StringSlice(provider.StringSlice(providers)),
			ReadmeRaw:   parsed.Body,
			PublishedAt: time.Now(),
		}
		if err := tx.Create(&version).Error; err != nil {
			if isUniqueViolation(err) {
				return apierror.NewConflictError(fmt.Sprintf("version %s already exists for skill %s", parsed.Version, parsed.Name), nil)
			}
			return apierror.NewDatabaseError("Failed to record the new version", err)
		}

		skill.ReadmeHTML = readmeHTML
		skill.UpdatedAt = time.Now()
		if err := tx.Save(skill).Error; err != nil {
			return apierror.NewDatabaseError("Failed to update skill metadata", err)
		}

		result = &PublishResult{
			Name:        parsed.Name,
			Version:     parsed.Version,
			Checksum:    checksumHex,
			PublishedAt: version.PublishedAt,
			Providers:   provider.StringSlice(providers),
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return result, nil
}

func resolveProviders(override, compatibility string, memberPaths []string) []provider.Provider {
	if strings.TrimSpace(override) != "" {
		return provider.ParseList(override)
	}
	return provider.Detect(compatibility, memberPaths)
}

func findOrCreateSkill(tx *gorm.DB, name string, ownerID uuid.UUID, category *dbmodels.Category) (*dbmodels.Skill, bool, error) {
	var skill dbmodels.Skill
	err := tx.Where("name = ?", name).First(&skill).Error
	if err == nil {
		return &skill, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, apierror.NewDatabaseError("Failed to look up skill", err)
	}

	skill = dbmodels.Skill{
		Name:    name,
		OwnerID: ownerID,
	}
	if category != nil {
		skill.CategoryID = &category.ID
	}
	if err := tx.Create(&skill).Error; err != nil {
		return nil, false, apierror.NewDatabaseError("Failed to create skill", err)
	}
	return &skill, true, nil
}

func readManifest(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505) — the signal that a concurrent publish raced
// us for the same (skill_id, version).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func mergeMetadata(metadata map[string]any, providers []provider.Provider) dbmodels.JSONMap {
	out := make(dbmodels.JSONMap, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	out["_registry.providers"] = provider.StringSlice(providers)
	return out
}

func translateParseErr(err error) error {
	return apierror.NewBadRequestError(err.Error(), nil)
}
