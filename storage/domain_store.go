package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/The-Politico/crosswalk/entity"
	"github.com/The-Politico/crosswalk/errors"
)

// DomainStore persists domains. Slugs are derived deterministically from the
// domain name at creation and never change afterwards.
type DomainStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewDomainStore creates a SQLite-backed domain store.
func NewDomainStore(db *sql.DB, logger *zap.SugaredLogger) *DomainStore {
	return &DomainStore{db: db, logger: logger}
}

// Create inserts a new domain, deriving its slug from name. A slug collision
// with an existing domain of a different name is disambiguated with a
// numeric suffix starting at 2 (acme, acme-2, acme-3...). A duplicate name
// fails with ErrConflict.
func (s *DomainStore) Create(ctx context.Context, name string, parent, createdBy *string) (*entity.Domain, error) {
	if name == "" {
		return nil, errors.New("domain name cannot be empty")
	}
	if parent != nil {
		if _, err := s.GetBySlug(ctx, *parent); err != nil {
			return nil, errors.Wrapf(err, "parent domain %q", *parent)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	domainSlug, err := disambiguateSlug(ctx, tx, slug.Make(name))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO domains (slug, name, parent_slug, created, updated, created_by)
		VALUES (?, ?, ?, ?, ?, ?)`,
		domainSlug, name, parent, now, now, createdBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrapf(errors.ErrConflict, "domain named %q already exists", name)
		}
		return nil, errors.Wrapf(err, "failed to create domain %q", name)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}

	if s.logger != nil {
		s.logger.Infow("Created domain", "slug", domainSlug, "name", name)
	}
	return &entity.Domain{
		Slug:      domainSlug,
		Name:      name,
		Parent:    parent,
		Created:   now,
		Updated:   now,
		CreatedBy: createdBy,
	}, nil
}

// GetOrCreate returns the domain named name, creating it when absent.
func (s *DomainStore) GetOrCreate(ctx context.Context, name string, parent, createdBy *string) (*entity.Domain, error) {
	existing, err := s.GetByName(ctx, name)
	if err == nil {
		return existing, nil
	}
	if !errors.IsNotFoundError(err) {
		return nil, err
	}
	return s.Create(ctx, name, parent, createdBy)
}

// GetBySlug fetches a domain by slug, failing with ErrNotFound when absent.
func (s *DomainStore) GetBySlug(ctx context.Context, domainSlug string) (*entity.Domain, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT slug, name, parent_slug, created, updated, created_by FROM domains WHERE slug = ?",
		domainSlug,
	)
	return scanDomain(row, domainSlug)
}

// GetByName fetches a domain by its unique name.
func (s *DomainStore) GetByName(ctx context.Context, name string) (*entity.Domain, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT slug, name, parent_slug, created, updated, created_by FROM domains WHERE name = ?",
		name,
	)
	return scanDomain(row, name)
}

// List returns all domains ordered by slug.
func (s *DomainStore) List(ctx context.Context) ([]entity.Domain, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT slug, name, parent_slug, created, updated, created_by FROM domains ORDER BY slug")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list domains")
	}
	defer rows.Close()

	var domains []entity.Domain
	for rows.Next() {
		var (
			d         entity.Domain
			parent    sql.NullString
			createdBy sql.NullString
		)
		if err := rows.Scan(&d.Slug, &d.Name, &parent, &d.Created, &d.Updated, &createdBy); err != nil {
			return nil, errors.Wrap(err, "failed to scan domain")
		}
		if parent.Valid {
			d.Parent = &parent.String
		}
		if createdBy.Valid {
			d.CreatedBy = &createdBy.String
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

// Reparent points a domain at a new parent (or detaches it when parent is
// nil). Domains are otherwise immutable once created.
func (s *DomainStore) Reparent(ctx context.Context, domainSlug string, parent *string) error {
	if parent != nil {
		if _, err := s.GetBySlug(ctx, *parent); err != nil {
			return errors.Wrapf(err, "parent domain %q", *parent)
		}
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE domains SET parent_slug = ?, updated = ? WHERE slug = ?",
		parent, time.Now().UTC(), domainSlug,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to reparent domain %q", domainSlug)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFoundError("domain %q not found", domainSlug)
	}
	return nil
}

// Delete removes a domain. The schema's ON DELETE RESTRICT protects domains
// still referenced by entities or child domains; that failure surfaces as
// ErrConflict.
func (s *DomainStore) Delete(ctx context.Context, domainSlug string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM domains WHERE slug = ?", domainSlug)
	if err != nil {
		if isForeignKeyViolation(err) {
			return errors.Wrapf(errors.ErrConflict, "domain %q still has entities or child domains", domainSlug)
		}
		return errors.Wrapf(err, "failed to delete domain %q", domainSlug)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFoundError("domain %q not found", domainSlug)
	}
	return nil
}

// disambiguateSlug appends -2, -3, ... until the slug is free.
func disambiguateSlug(ctx context.Context, tx *sql.Tx, base string) (string, error) {
	candidate := base
	for n := 2; ; n++ {
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM domains WHERE slug = ?)", candidate,
		).Scan(&exists)
		if err != nil {
			return "", errors.Wrap(err, "failed to check slug")
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

func scanDomain(row *sql.Row, key string) (*entity.Domain, error) {
	var (
		d         entity.Domain
		parent    sql.NullString
		createdBy sql.NullString
	)
	err := row.Scan(&d.Slug, &d.Name, &parent, &d.Created, &d.Updated, &createdBy)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("domain %q not found", key)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get domain %q", key)
	}
	if parent.Valid {
		d.Parent = &parent.String
	}
	if createdBy.Valid {
		d.CreatedBy = &createdBy.String
	}
	return &d, nil
}
