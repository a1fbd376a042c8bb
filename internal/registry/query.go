package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agentskills/registry/internal/apierror"
	"github.com/agentskills/registry/internal/dbmodels"
)

// SkillView is the rendered shape of GET /skills/{name}.
type SkillView struct {
	Name           string       `json:"name"`
	Owner          string       `json:"owner"`
	OwnerAvatarURL string       `json:"owner_avatar_url"`
	Downloads      int64        `json:"downloads"`
	StarsCount     int64        `json:"stars_count"`
	StarredByMe    bool         `json:"starred_by_me"`
	Category       string       `json:"category"`
	ReadmeHTML     string       `json:"readme_html"`
	CreatedAt      time.Time    `json:"created_at"`
	LatestVersion  *VersionView `json:"latest_version"`
}

// VersionView is one SkillVersion as rendered to clients.
type VersionView struct {
	Version     string         `json:"version"`
	Checksum    string         `json:"checksum"`
	SizeBytes   int64          `json:"size_bytes"`
	Providers   []string       `json:"providers"`
	Metadata    map[string]any `json:"metadata"`
	PublishedAt time.Time      `json:"published_at"`
}

// GetSkill returns a skill by name. viewerID is the zero UUID for an
// unauthenticated caller, in which case StarredByMe is always false.
func (s *Service) GetSkill(ctx context.Context, name string, viewerID uuid.UUID) (*SkillView, error) {
	var skill dbmodels.Skill
	if err := s.db.WithContext(ctx).Preload("Owner").Preload("Category").
		Where("name = ?", name).First(&skill).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NewNotFoundError(fmt.Sprintf("skill %q not found", name), nil)
		}
		return nil, apierror.NewDatabaseError("Failed to look up skill", err)
	}

	latest, err := s.latestVersion(ctx, skill.ID)
	if err != nil {
		return nil, err
	}

	starred := false
	if viewerID != uuid.Nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&dbmodels.Star{}).
			Where("user_id = ? AND skill_id = ?", viewerID, skill.ID).
			Count(&count).Error; err != nil {
			return nil, apierror.NewDatabaseError("Failed to check star state", err)
		}
		starred = count > 0
	}

	category := ""
	if skill.Category != nil {
		category = skill.Category.Name
	}

	return &SkillView{
		Name:           skill.Name,
		Owner:          skill.Owner.Username,
		OwnerAvatarURL: skill.Owner.AvatarURL,
		Downloads:      skill.Downloads,
		StarsCount:     skill.StarsCount,
		StarredByMe:    starred,
		Category:       category,
		ReadmeHTML:     skill.ReadmeHTML,
		CreatedAt:      skill.CreatedAt,
		LatestVersion:  latest,
	}, nil
}

func (s *Service) latestVersion(ctx context.Context, skillID uuid.UUID) (*VersionView, error) {
	var v dbmodels.SkillVersion
	err := s.db.WithContext(ctx).
		Where("skill_id = ?", skillID).
		Order("published_at DESC").
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apierror.NewDatabaseError("Failed to look up latest version", err)
	}
	return versionToView(&v), nil
}

func versionToView(v *dbmodels.SkillVersion) *VersionView {
	return &VersionView{
		Version:     v.Version,
		Checksum:    v.Checksum,
		SizeBytes:   v.SizeBytes,
		Providers:   []string(v.Providers),
		Metadata:    map[string]any(v.Metadata),
		PublishedAt: v.PublishedAt,
	}
}

// ListVersions returns every version of a skill, newest first.
func (s *Service) ListVersions(ctx context.Context, name string) ([]VersionView, error) {
	skill, err := s.skillByName(ctx, name)
	if err != nil {
		return nil, err
	}

	var versions []dbmodels.SkillVersion
	if err := s.db.WithContext(ctx).
		Where("skill_id = ?", skill.ID).
		Order("published_at DESC").
		Find(&versions).Error; err != nil {
		return nil, apierror.NewDatabaseError("Failed to list versions", err)
	}

	out := make([]VersionView, len(versions))
	for i := range versions {
		out[i] = *versionToView(&versions[i])
	}
	return out, nil
}

// DownloadResult is a streamable bundle along with the metadata needed to
// render response headers.
type DownloadResult struct {
	Body     io.ReadCloser
	Checksum string
	Name     string
	Version  string
}

// Download atomically increments Skill.Downloads by 1, then fetches the
// bundle bytes. The increment happens first: a storage miss after it
// leaves the counter one higher than bytes actually delivered, an accepted
// statistical drift.
func (s *Service) Download(ctx context.Context, name, version string) (*DownloadResult, error) {
	skill, err := s.skillByName(ctx, name)
	if err != nil {
		return nil, err
	}

	var v dbmodels.SkillVersion
	if err := s.db.WithContext(ctx).
		Where("skill_id = ? AND version = ?", skill.ID, version).
		First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NewNotFoundError(fmt.Sprintf("version %q of skill %q not found", version, name), nil)
		}
		return nil, apierror.NewDatabaseError("Failed to look up version", err)
	}

	if err := s.db.WithContext(ctx).Model(&dbmodels.Skill{}).
		Where("id = ?", skill.ID).
		Update("downloads", gorm.Expr("downloads + 1")).Error; err != nil {
		return nil, apierror.NewDatabaseError("Failed to increment download counter", err)
	}

	body, err := s.store.Get(ctx, v.BundleKey)
	if err != nil {
		return nil, apierror.NewStorageError("Failed to fetch bundle bytes", err)
	}

	return &DownloadResult{Body: body, Checksum: v.Checksum, Name: name, Version: version}, nil
}

func (s *Service) skillByName(ctx context.Context, name string) (*dbmodels.Skill, error) {
	var skill dbmodels.Skill
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&skill).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NewNotFoundError(fmt.Sprintf("skill %q not found", name), nil)
		}
		return nil, apierror.NewDatabaseError("Failed to look up skill", err)
	}
	return &skill, nil
}

// SearchParams are the filters and sort/pagination controls of the search
// endpoint.
type SearchParams struct {
	Query    string
	Tag      string
	Category string
	Provider string
	Sort     string
	Page     int
	PerPage  int
}

// SearchResult is one page of search results. Total is the length of the
// returned page after the post-fetch tag/provider filters are applied, not
// a global filtered count — matching the reference implementation's actual
// search_skills() behavior (total=len(results)) bit-for-bit.
type SearchResult struct {
	Skills  []SkillView `json:"skills"`
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
}

var validSorts = map[string]string{
	"downloads": "downloads DESC",
	"stars":     "stars_count DESC",
	"newest":    "created_at DESC",
	"updated":   "updated_at DESC",
}

// Search runs a paginated skill search.
func (s *Service) Search(ctx context.Context, p SearchParams) (*SearchResult, error) {
	if p.PerPage < 1 || p.PerPage > 100 {
		return nil, apierror.NewBadRequestError("per_page must be between 1 and 100", nil)
	}
	if p.Page < 1 {
		p.Page = 1
	}

	order, ok := validSorts[p.Sort]
	if !ok {
		order = validSorts["updated"]
	}

	baseQuery := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&dbmodels.Skill{})
		if p.Query != "" {
			q = q.Where("name ILIKE ?", "%"+p.Query+"%")
		}
		if p.Category != "" {
			q = q.Joins("JOIN categories ON categories.id = skills.category_id").
				Where("categories.name = ?", p.Category)
		}
		return q
	}

	var skills []dbmodels.Skill
	if err := baseQuery().Preload("Owner").Preload("Category").
		Order(order).
		Offset((p.Page - 1) * p.PerPage).
		Limit(p.PerPage).
		Find(&skills).Error; err != nil {
		return nil, apierror.NewDatabaseError("Failed to run search query", err)
	}

	views := make([]SkillView, 0, len(skills))
	for _, skill := range skills {
		latest, err := s.latestVersion(ctx, skill.ID)
		if err != nil {
			return nil, err
		}
		if !matchesPostFetchFilters(latest, p.Tag, p.Provider) {
			continue
		}

		category := ""
		if skill.Category != nil {
			category = skill.Category.Name
		}
		views = append(views, SkillView{
			Name:           skill.Name,
			Owner:          skill.Owner.Username,
			OwnerAvatarURL: skill.Owner.AvatarURL,
			Downloads:      skill.Downloads,
			StarsCount:     skill.StarsCount,
			Category:       category,
			ReadmeHTML:     skill.ReadmeHTML,
			CreatedAt:      skill.CreatedAt,
			LatestVersion:  latest,
		})
	}

	return &SearchResult{Skills: views, Total: len(views), Page: p.Page, PerPage: p.PerPage}, nil
}

func matchesPostFetchFilters(latest *VersionView, tag, provider string) bool {
	if tag == "" && provider == "" {
		return true
	}
	if latest == nil {
		return false
	}
	if tag != "" {
		found := false
		if rawTags, ok := latest.Metadata["tags"]; ok {
			for _, t := range toStringSlice(rawTags) {
				if strings.EqualFold(t, tag) {
					found = true
					break
				}
			}
		}
		if !found {
			return false
		}
	}
	if provider != "" {
		found := false
		for _, pr := range latest.Providers {
			if strings.EqualFold(pr, provider) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func toStringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Star toggles on the Star row for (userID, skillID), incrementing
// Skill.StarsCount. Double-star is a Conflict.
func (s *Service) Star(ctx context.Context, userID uuid.UUID, name string) (int64, error) {
	skill, err := s.skillByName(ctx, name)
	if err != nil {
		return 0, err
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		star := dbmodels.Star{UserID: userID, SkillID: skill.ID, CreatedAt: time.Now()}
		if err := tx.Create(&star).Error; err != nil {
			if isUniqueViolation(err) {
				return apierror.NewConflictError("already starred", nil)
			}
			return apierror.NewDatabaseError("Failed to create star", err)
		}
		return tx.Model(&dbmodels.Skill{}).Where("id = ?", skill.ID).
			Update("stars_count", gorm.Expr("stars_count + 1")).Error
	})
	if txErr != nil {
		return 0, txErr
	}

	return s.starsCount(ctx, skill.ID)
}

// Unstar removes the Star row for (userID, skillID), decrementing
// Skill.StarsCount floored at zero. Unstar when absent is a NotFound.
func (s *Service) Unstar(ctx context.Context, userID uuid.UUID, name string) (int64, error) {
	skill, err := s.skillByName(ctx, name)
	if err != nil {
		return 0, err
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND skill_id = ?", userID, skill.ID).Delete(&dbmodels.Star{})
		if res.Error != nil {
			return apierror.NewDatabaseError("Failed to remove star", res.Error)
		}
		if res.RowsAffected == 0 {
			return apierror.NewNotFoundError("not starred", nil)
		}
		return tx.Model(&dbmodels.Skill{}).Where("id = ? AND stars_count > 0", skill.ID).
			Update("stars_count", gorm.Expr("stars_count - 1")).Error
	})
	if txErr != nil {
		return 0, txErr
	}

	return s.starsCount(ctx, skill.ID)
}

func (s *Service) starsCount(ctx context.Context, skillID uuid.UUID) (int64, error) {
	var skill dbmodels.Skill
	if err := s.db.WithContext(ctx).Select("stars_count").Where("id = ?", skillID).First(&skill).Error; err != nil {
		return 0, apierror.NewDatabaseError("Failed to read star count", err)
	}
	return skill.StarsCount, nil
}

// UserView is the rendered shape of GET /users/{username}.
type UserView struct {
	Username       string      `json:"username"`
	DisplayName    string      `json:"display_name"`
	AvatarURL      string      `json:"avatar_url"`
	Bio            string      `json:"bio"`
	Skills         []SkillView `json:"skills"`
	TotalDownloads int64       `json:"total_downloads"`
	TotalStars     int64       `json:"total_stars"`
}

// UserProfile returns a user's public profile, their owned skills, and
// aggregate download/star counts over those skills.
func (s *Service) UserProfile(ctx context.Context, username string) (*UserView, error) {
	var user dbmodels.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NewNotFoundError(fmt.Sprintf("user %q not found", username), nil)
		}
		return nil, apierror.NewDatabaseError("Failed to look up user", err)
	}

	var skills []dbmodels.Skill
	if err := s.db.WithContext(ctx).Preload("Category").Where("owner_id = ?", user.ID).Find(&skills).Error; err != nil {
		return nil, apierror.NewDatabaseError("Failed to list owned skills", err)
	}

	views := make([]SkillView, 0, len(skills))
	var totalDownloads, totalStars int64
	for _, skill := range skills {
		latest, err := s.latestVersion(ctx, skill.ID)
		if err != nil {
			return nil, err
		}
		category := ""
		if skill.Category != nil {
			category = skill.Category.Name
		}
		views = append(views, SkillView{
			Name:          skill.Name,
			Owner:         user.Username,
			Downloads:     skill.Downloads,
			StarsCount:    skill.StarsCount,
			Category:      category,
			ReadmeHTML:    skill.ReadmeHTML,
			CreatedAt:     skill.CreatedAt,
			LatestVersion: latest,
		})
		totalDownloads += skill.Downloads
		totalStars += skill.StarsCount
	}

	return &UserView{
		Username:       user.Username,
		DisplayName:    user.DisplayName,
		AvatarURL:      user.AvatarURL,
		Bio:            user.Bio,
		Skills:         views,
		TotalDownloads: totalDownloads,
		TotalStars:     totalStars,
	}, nil
}

// Categories returns the full, seeded category list ordered for display.
func (s *Service) Categories(ctx context.Context) ([]dbmodels.Category, error) {
	var categories []dbmodels.Category
	if err := s.db.WithContext(ctx).Order("sort_order").Find(&categories).Error; err != nil {
		return nil, apierror.NewDatabaseError("Failed to list categories", err)
	}
	return categories, nil
}
