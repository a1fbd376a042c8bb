// Package dbmodels defines the GORM-mapped relational schema. Table shape
// is owned by the SQL migrations in internal/dbmigrations; these structs
// are the query/scan layer gorm.io/gorm reads and writes through, not a
// source of schema truth (no AutoMigrate).
package dbmodels

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account that owns skills and may star them. A user's token is
// either seeded externally for CLI-driven publishing or minted by identity
// exchange.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username    string    `gorm:"uniqueIndex;size:64;not null"`
	APIToken    string    `gorm:"uniqueIndex;not null"`
	DisplayName string
	AvatarURL   string
	ExternalID  string `gorm:"uniqueIndex"`
	Bio         string
	CreatedAt   time.Time
}

// BeforeCreate assigns a UUID primary key when the caller hasn't already
// set one.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (User) TableName() string { return "users" }

// Category is a seeded, slug-named grouping skills may belong to. Never
// mutated by the publish flow.
type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Label       string    `gorm:"not null" json:"label"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	SortOrder   int       `json:"-"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (Category) TableName() string { return "categories" }

// Skill is the registry's primary identifier. Its Name is also the
// object-storage key prefix and cannot be renamed once created.
type Skill struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name        string     `gorm:"uniqueIndex;size:64;not null"`
	OwnerID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	Owner       User       `gorm:"foreignKey:OwnerID"`
	CategoryID  *uuid.UUID `gorm:"type:uuid;index"`
	Category    *Category  `gorm:"foreignKey:CategoryID"`
	Downloads   int64      `gorm:"not null;default:0"`
	StarsCount  int64      `gorm:"not null;default:0"`
	ReadmeHTML  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (s *Skill) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (Skill) TableName() string { return "skills" }

// SkillVersion is an immutable, content-addressed release of a Skill.
// (SkillID, Version) is unique.
type SkillVersion struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	SkillID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_skill_version"`
	Version     string         `gorm:"size:64;not null;uniqueIndex:idx_skill_version"`
	BundleKey   string         `gorm:"not null"`
	Metadata    JSONMap        `gorm:"type:jsonb;not null"`
	Checksum    string         `gorm:"size:64;not null"`
	SizeBytes   int64          `gorm:"not null"`
	Providers   StringSlice    `gorm:"type:jsonb;not null"`
	ReadmeRaw   string
	PublishedAt time.Time      `gorm:"not null;index"`
}

func (v *SkillVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (SkillVersion) TableName() string { return "skill_versions" }

// Star is a (user, skill) follow relation with a composite primary key.
// Insertion increments Skill.StarsCount; deletion decrements it, floored at
// zero — both via atomic SQL expressions, never read-modify-write.
type Star struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	SkillID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}

func (Star) TableName() string { return "stars" }
