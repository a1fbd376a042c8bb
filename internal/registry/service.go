// Package registry implements the Publish Transaction and Query Surface:
// the serialized publish workflow and the read paths (lookup, search,
// starring, download, user profiles) that sit on top of the relational and
// object stores.
package registry

import (
	"gorm.io/gorm"

	"github.com/agentskills/registry/internal/identity"
	"github.com/agentskills/registry/internal/mdrender"
	"github.com/agentskills/registry/internal/objectstore"
)

// Service bundles the collaborators the publish and query flows need: the
// relational store, the blob store, the Markdown renderer, and the
// upstream identity exchanger.
type Service struct {
	db       *gorm.DB
	store    objectstore.Store
	renderer *mdrender.Renderer
	identity identity.Exchanger
}

// New builds a Service over its collaborators.
func New(db *gorm.DB, store objectstore.Store, renderer *mdrender.Renderer, exchanger identity.Exchanger) *Service {
	return &Service{db: db, store: store, renderer: renderer, identity: exchanger}
}

// DB exposes the underlying *gorm.DB for liveness checks.
func (s *Service) DB() *gorm.DB { return s.db }

// Store exposes the underlying object store for liveness checks.
func (s *Service) Store() objectstore.Store { return s.store }
