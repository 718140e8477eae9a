// Package entity defines the crosswalk data model: domains, entities, and
// the flat attribute mappings the resolution engine matches on.
package entity

import (
	"time"
)

// Domain is a named, slugified namespace partitioning entities into
// independent resolution spaces. Domains form a tree via Parent.
type Domain struct {
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Parent    *string   `json:"parent"` // parent domain slug
	Created   time.Time `json:"created"`
	Updated   time.Time `json:"updated"`
	CreatedBy *string   `json:"-"`
}

// Entity is the unit of resolution: one record representing one real-world
// thing, scoped to exactly one domain.
type Entity struct {
	UUID       string     `json:"uuid"`
	Domain     string     `json:"domain"` // owning domain slug
	Attributes Attributes `json:"attributes"`

	// AliasFor references an entity in the same domain whose UUID
	// supersedes this one.
	AliasFor *string `json:"alias_for"`

	// SupersededBy references an entity in another domain whose UUID
	// supersedes this one.
	SupersededBy *string `json:"superseded_by"`

	Created   time.Time `json:"-"`
	Updated   time.Time `json:"-"`
	CreatedBy *string   `json:"-"`
}

// IsAlias reports whether this entity is a variant record of another entity
// in the same domain.
func (e *Entity) IsAlias() bool {
	return e.AliasFor != nil && *e.AliasFor != ""
}

// IsSuperseded reports whether this entity's identity has been superseded by
// an entity in another domain.
func (e *Entity) IsSuperseded() bool {
	return e.SupersededBy != nil && *e.SupersededBy != ""
}

// String returns the entity's name attribute when present, else its UUID.
func (e *Entity) String() string {
	if name, ok := e.Attributes["name"].(string); ok && name != "" {
		return name
	}
	return e.UUID
}
