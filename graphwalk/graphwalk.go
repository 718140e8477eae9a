// Package graphwalk resolves alias and supersession chains between entities.
// Aliases point at another entity in the same domain; supersessions point at
// an entity in a different domain. Chains are followed hop by hop under a
// budget derived from entity counts, so a cyclic reference in the database
// fails with ErrCycleDetected instead of looping forever.
package graphwalk

import (
	"context"

	"github.com/The-Politico/crosswalk/entity"
	"github.com/The-Politico/crosswalk/errors"
)

// Lookup is the store surface the walker needs.
type Lookup interface {
	GetByUUID(ctx context.Context, id string) (*entity.Entity, error)
	CountByDomain(ctx context.Context, domain string) (int, error)
	Count(ctx context.Context) (int, error)
}

// Walker follows alias and supersession links to their canonical endpoints.
type Walker struct {
	store Lookup
}

// NewWalker creates a walker backed by store.
func NewWalker(store Lookup) *Walker {
	return &Walker{store: store}
}

// CanonicalAlias follows e's alias_for chain within its domain and returns
// the entity at the end of it. An entity that is not an alias is returned
// unchanged. The hop budget is the entity count of the domain, so any cycle
// exhausts it.
func (w *Walker) CanonicalAlias(ctx context.Context, e *entity.Entity) (*entity.Entity, error) {
	if !e.IsAlias() {
		return e, nil
	}
	budget, err := w.store.CountByDomain(ctx, e.Domain)
	if err != nil {
		return nil, err
	}
	current := e
	for current.IsAlias() {
		if budget <= 0 {
			return nil, errors.Wrapf(errors.ErrCycleDetected, "alias chain from entity %s", e.UUID)
		}
		budget--
		next, err := w.store.GetByUUID(ctx, *current.AliasFor)
		if err != nil {
			return nil, errors.Wrapf(err, "broken alias chain at entity %s", current.UUID)
		}
		current = next
	}
	return current, nil
}

// CanonicalSupersession follows e's superseded_by chain across domains and
// returns the entity at the end of it. The hop budget is the total entity
// count since the chain may cross domains.
func (w *Walker) CanonicalSupersession(ctx context.Context, e *entity.Entity) (*entity.Entity, error) {
	if !e.IsSuperseded() {
		return e, nil
	}
	budget, err := w.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	current := e
	for current.IsSuperseded() {
		if budget <= 0 {
			return nil, errors.Wrapf(errors.ErrCycleDetected, "supersession chain from entity %s", e.UUID)
		}
		budget--
		next, err := w.store.GetByUUID(ctx, *current.SupersededBy)
		if err != nil {
			return nil, errors.Wrapf(err, "broken supersession chain at entity %s", current.UUID)
		}
		current = next
	}
	return current, nil
}

// Canonicalize resolves e to its canonical entity, following alias chains
// when followAlias is set and supersession chains when followSupersession
// is set. Supersession can land in a new domain where the target is itself
// an alias, so the two chains are followed alternately until neither
// applies.
func (w *Walker) Canonicalize(ctx context.Context, e *entity.Entity, followAlias, followSupersession bool) (*entity.Entity, error) {
	// Alias and supersession hops can feed each other across domains, so
	// the alternation itself needs a budget too.
	budget, err := w.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	current := e
	for {
		advanced := false
		if followAlias && current.IsAlias() {
			next, err := w.CanonicalAlias(ctx, current)
			if err != nil {
				return nil, err
			}
			current = next
			advanced = true
		}
		if followSupersession && current.IsSuperseded() {
			next, err := w.CanonicalSupersession(ctx, current)
			if err != nil {
				return nil, err
			}
			current = next
			advanced = true
		}
		if !advanced {
			return current, nil
		}
		if budget <= 0 {
			return nil, errors.Wrapf(errors.ErrCycleDetected, "canonicalization of entity %s", e.UUID)
		}
		budget--
	}
}
