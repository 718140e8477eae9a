// Package storage provides the SQLite-backed stores for crosswalk entities,
// domains, and API users. It handles persistence, canonical attribute
// serialization, and query construction.
package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/The-Politico/crosswalk/entity"
	"github.com/The-Politico/crosswalk/errors"
)

const entityColumns = "uuid, domain_slug, attributes, alias_for, superseded_by, created, updated, created_by"

// EntityStore persists entities. All mutations run through the uniqueness
// constraint on (domain_slug, attributes): a conflicting insert surfaces as
// ErrConflict and is never retried here.
type EntityStore struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewEntityStore creates a SQLite-backed entity store.
func NewEntityStore(db *sql.DB, logger *zap.SugaredLogger) *EntityStore {
	return &EntityStore{db: db, logger: logger}
}

// CreateParams carries the fields for a single entity insert.
type CreateParams struct {
	Domain       string
	UUID         string // generated when empty
	Attributes   entity.Attributes
	AliasFor     *string
	SupersededBy *string
	CreatedBy    *string
}

// Create inserts a new entity with a single conditional INSERT. A violation
// of the (domain, attributes) uniqueness constraint fails with ErrConflict;
// this is the race-safety boundary for concurrent match-or-create calls.
func (s *EntityStore) Create(ctx context.Context, p CreateParams) (*entity.Entity, error) {
	canonical, err := p.Attributes.Canonical()
	if err != nil {
		return nil, err
	}

	id := p.UUID
	if id == "" {
		id = uuid.New().String()
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entities (uuid, domain_slug, attributes, alias_for, superseded_by, created, updated, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.Domain, canonical, p.AliasFor, p.SupersededBy, now, now, p.CreatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrapf(errors.ErrConflict, "entity with identical attributes exists in domain %q", p.Domain)
		}
		return nil, errors.Wrap(err, "failed to insert entity")
	}

	return &entity.Entity{
		UUID:         id,
		Domain:       p.Domain,
		Attributes:   p.Attributes.Clone(),
		AliasFor:     p.AliasFor,
		SupersededBy: p.SupersededBy,
		Created:      now,
		Updated:      now,
		CreatedBy:    p.CreatedBy,
	}, nil
}

// Find returns the entities in domain whose attributes contain every
// key/value pair of filter, ordered by creation time then UUID so callers
// see a stable candidate order. SQL narrows by domain and a per-key LIKE
// prefilter; the precise containment check runs in Go.
func (s *EntityStore) Find(ctx context.Context, domain string, filter entity.Attributes) ([]entity.Entity, error) {
	qb := &queryBuilder{}
	qb.buildDomainFilter(domain)
	qb.buildAttributeKeyFilter(filter)

	query := "SELECT " + entityColumns + " FROM entities WHERE " + qb.build() + " ORDER BY created, uuid"
	rows, err := s.db.QueryContext(ctx, query, qb.args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query entities in domain %q", domain)
	}
	defer rows.Close()

	matched, err := collectContaining(rows, filter)
	if err != nil {
		return nil, err
	}
	return matched, rows.Err()
}

// Exists reports whether an entity with byte-identical attributes exists in
// the domain.
func (s *EntityStore) Exists(ctx context.Context, domain string, attrs entity.Attributes) (bool, error) {
	canonical, err := attrs.Canonical()
	if err != nil {
		return false, err
	}
	var exists bool
	err = s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM entities WHERE domain_slug = ? AND attributes = ?)",
		domain, canonical,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check entity existence")
	}
	return exists, nil
}

// GetByUUID fetches a single entity, failing with ErrNotFound when absent.
func (s *EntityStore) GetByUUID(ctx context.Context, id string) (*entity.Entity, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+entityColumns+" FROM entities WHERE uuid = ?", id)

	e, err := scanEntityRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("entity %q not found", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get entity %q", id)
	}
	return e, nil
}

// UpdateAttributes merges partial into the entity's attributes,
// last-write-wins per key. Keys are never removed. The merged mapping must
// still be unique within the domain.
func (s *EntityStore) UpdateAttributes(ctx context.Context, id string, partial entity.Attributes) (*entity.Entity, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	e, err := updateAttributesTx(ctx, tx, id, partial)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}
	return e, nil
}

// UpdateUnique finds the single entity in domain matching filter and merges
// update into its attributes. The cardinality check and the mutation run in
// one transaction: zero matches fail with ErrNotFound, more than one with
// ErrAmbiguousMatch, and nothing is partially applied.
func (s *EntityStore) UpdateUnique(ctx context.Context, domain string, filter, update entity.Attributes) (*entity.Entity, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	target, err := findUniqueTx(ctx, tx, domain, filter)
	if err != nil {
		return nil, err
	}

	updated, err := updateAttributesTx(ctx, tx, target.UUID, update)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}
	return updated, nil
}

// DeleteUnique deletes the single entity in domain matching filter. The
// cardinality check and the delete run in one transaction; zero matches fail
// with ErrNotFound, more than one with ErrAmbiguousMatch, and neither
// outcome deletes anything.
func (s *EntityStore) DeleteUnique(ctx context.Context, domain string, filter entity.Attributes) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	target, err := findUniqueTx(ctx, tx, domain, filter)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM entities WHERE uuid = ?", target.UUID); err != nil {
		return errors.Wrapf(err, "failed to delete entity %q", target.UUID)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	if s.logger != nil {
		s.logger.Infow("Deleted entity", "uuid", target.UUID, "domain", domain)
	}
	return nil
}

// Delete removes one entity by UUID. Aliases pointing at it are removed by
// the schema's ON DELETE CASCADE.
func (s *EntityStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM entities WHERE uuid = ?", id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete entity %q", id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFoundError("entity %q not found", id)
	}
	return nil
}

// SetSupersededBy points an entity's supersession edge at another entity.
func (s *EntityStore) SetSupersededBy(ctx context.Context, id string, target *string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE entities SET superseded_by = ?, updated = ? WHERE uuid = ?",
		target, time.Now().UTC(), id,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to set superseded_by on %q", id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFoundError("entity %q not found", id)
	}
	return nil
}

// CountByDomain returns the number of entities in a domain. Graph walks use
// this as their hop budget.
func (s *EntityStore) CountByDomain(ctx context.Context, domain string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM entities WHERE domain_slug = ?", domain,
	).Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to count entities in domain %q", domain)
	}
	return count, nil
}

// Count returns the total number of entities.
func (s *EntityStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entities").Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count entities")
	}
	return count, nil
}

// BulkRecord is one record of a bulk ingestion request.
type BulkRecord struct {
	UUID       string
	Attributes entity.Attributes
}

// CreateBulk inserts all records in a single transaction; any failure rolls
// the whole batch back. When force is false each record is pre-checked for
// an identical existing entity and fails with ErrConflict naming its index;
// force skips the pre-check and relies on the uniqueness constraint alone.
func (s *EntityStore) CreateBulk(ctx context.Context, domain string, records []BulkRecord, createdBy *string, force bool) ([]entity.Entity, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entities (uuid, domain_slug, attributes, alias_for, superseded_by, created, updated, created_by)
		VALUES (?, ?, ?, NULL, NULL, ?, ?, ?)`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to prepare bulk insert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	created := make([]entity.Entity, 0, len(records))

	for i, record := range records {
		canonical, err := record.Attributes.Canonical()
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}

		if !force {
			var exists bool
			err := tx.QueryRowContext(ctx,
				"SELECT EXISTS(SELECT 1 FROM entities WHERE domain_slug = ? AND attributes = ?)",
				domain, canonical,
			).Scan(&exists)
			if err != nil {
				return nil, errors.Wrapf(err, "record %d: existence check", i)
			}
			if exists {
				return nil, errors.Wrapf(errors.ErrConflict, "record %d: entity with identical attributes exists in domain %q", i, domain)
			}
		}

		id := record.UUID
		if id == "" {
			id = uuid.New().String()
		}

		if _, err := stmt.ExecContext(ctx, id, domain, canonical, now, now, createdBy); err != nil {
			if isUniqueViolation(err) {
				return nil, errors.Wrapf(errors.ErrConflict, "record %d: entity with identical attributes exists in domain %q", i, domain)
			}
			return nil, errors.Wrapf(err, "record %d: insert", i)
		}

		created = append(created, entity.Entity{
			UUID:       id,
			Domain:     domain,
			Attributes: record.Attributes.Clone(),
			Created:    now,
			Updated:    now,
			CreatedBy:  createdBy,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit bulk insert")
	}

	if s.logger != nil {
		s.logger.Infow("Bulk created entities", "domain", domain, "count", len(created), "force", force)
	}
	return created, nil
}

// findUniqueTx selects the entities in domain matching filter inside tx and
// requires exactly one.
func findUniqueTx(ctx context.Context, tx *sql.Tx, domain string, filter entity.Attributes) (*entity.Entity, error) {
	qb := &queryBuilder{}
	qb.buildDomainFilter(domain)
	qb.buildAttributeKeyFilter(filter)

	query := "SELECT " + entityColumns + " FROM entities WHERE " + qb.build() + " ORDER BY created, uuid"
	rows, err := tx.QueryContext(ctx, query, qb.args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query entities in domain %q", domain)
	}
	defer rows.Close()

	matched, err := collectContaining(rows, filter)
	if err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating entities")
	}

	switch len(matched) {
	case 0:
		return nil, errors.NewNotFoundError("no entity matches in domain %q", domain)
	case 1:
		return &matched[0], nil
	default:
		return nil, errors.Wrapf(errors.ErrAmbiguousMatch, "%d entities match in domain %q", len(matched), domain)
	}
}

func updateAttributesTx(ctx context.Context, tx *sql.Tx, id string, partial entity.Attributes) (*entity.Entity, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+entityColumns+" FROM entities WHERE uuid = ?", id)
	e, err := scanEntityRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("entity %q not found", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get entity %q", id)
	}

	merged := e.Attributes.Merge(partial)
	canonical, err := merged.Canonical()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		"UPDATE entities SET attributes = ?, updated = ? WHERE uuid = ?",
		canonical, now, id,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrapf(errors.ErrConflict, "merged attributes collide with an existing entity in domain %q", e.Domain)
		}
		return nil, errors.Wrapf(err, "failed to update entity %q", id)
	}

	e.Attributes = merged
	e.Updated = now
	return e, nil
}

// collectContaining scans entity rows and keeps those whose attributes
// contain the filter.
func collectContaining(rows *sql.Rows, filter entity.Attributes) ([]entity.Entity, error) {
	var matched []entity.Entity
	for rows.Next() {
		e, err := scanEntityRow(rows.Scan)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan entity")
		}
		if e.Attributes.Contains(filter) {
			matched = append(matched, *e)
		}
	}
	return matched, nil
}

func scanEntityRow(scan func(dest ...interface{}) error) (*entity.Entity, error) {
	var (
		e          entity.Entity
		attrsJSON  string
		aliasFor   sql.NullString
		superseded sql.NullString
		createdBy  sql.NullString
	)
	err := scan(&e.UUID, &e.Domain, &attrsJSON, &aliasFor, &superseded, &e.Created, &e.Updated, &createdBy)
	if err != nil {
		return nil, err
	}

	attrs, err := entity.DecodeAttributes(attrsJSON)
	if err != nil {
		return nil, err
	}
	e.Attributes = attrs

	if aliasFor.Valid && aliasFor.String != "" {
		e.AliasFor = &aliasFor.String
	}
	if superseded.Valid && superseded.String != "" {
		e.SupersededBy = &superseded.String
	}
	if createdBy.Valid && createdBy.String != "" {
		e.CreatedBy = &createdBy.String
	}
	return &e, nil
}

// isUniqueViolation reports whether err is a SQLite unique-constraint
// failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// isForeignKeyViolation reports whether err is a SQLite foreign-key failure.
func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintTrigger
	}
	return false
}
