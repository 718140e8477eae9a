// Package resolve implements entity resolution on top of the storage layer:
// exact and fuzzy matching, match-or-create flows, aliasing, and the
// block-filtered update and delete operations.
package resolve

import (
	"context"

	"go.uber.org/zap"

	"github.com/The-Politico/crosswalk/entity"
	"github.com/The-Politico/crosswalk/errors"
	"github.com/The-Politico/crosswalk/graphwalk"
	"github.com/The-Politico/crosswalk/scorer"
	"github.com/The-Politico/crosswalk/storage"
)

// Service runs resolution operations against a domain's entities.
type Service struct {
	entities *storage.EntityStore
	domains  *storage.DomainStore
	scorers  *scorer.Registry
	walker   *graphwalk.Walker
	logger   *zap.SugaredLogger
}

// NewService wires a resolution service over the given stores.
func NewService(entities *storage.EntityStore, domains *storage.DomainStore, scorers *scorer.Registry, logger *zap.SugaredLogger) *Service {
	return &Service{
		entities: entities,
		domains:  domains,
		scorers:  scorers,
		walker:   graphwalk.NewWalker(entities),
		logger:   logger,
	}
}

// Request carries the parameters shared by the resolution operations.
// BlockAttrs narrow the candidate set before any matching. CreateAttrs are
// folded into the stored attributes on create paths, where a caller-supplied
// "uuid" key is honored as the new entity's UUID. ReturnCanonical asks for
// alias chains to be followed on the returned entity; FollowSupersession
// extends that across superseded domains. Threshold is required by the
// threshold-gated operations and has no default; nil means the caller
// omitted it.
type Request struct {
	Domain             string
	QueryField         string
	QueryValue         string
	BlockAttrs         entity.Attributes
	CreateAttrs        entity.Attributes
	UpdateAttrs        entity.Attributes
	Threshold          *int
	Scorer             string
	ReturnCanonical    bool
	FollowSupersession bool
	CreatedBy          *string
}

// Result is the outcome of a resolution operation. Score is nil for exact
// matches and for creates that never scored a candidate.
type Result struct {
	Entity  *entity.Entity
	Created bool
	Aliased bool
	Score   *int
}

// Match finds the single entity exactly matching the query field/value
// within the block. Fails with ErrNotFound on zero matches and
// ErrAmbiguousMatch on several.
func (s *Service) Match(ctx context.Context, req Request) (*Result, error) {
	if err := s.prepare(ctx, &req); err != nil {
		return nil, err
	}
	matched, err := s.matchExact(ctx, req.Domain, req)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, matched, req, false, nil)
}

// MatchOrCreate behaves like Match but creates a new entity from the
// composed query, block, and create attributes when nothing matches.
func (s *Service) MatchOrCreate(ctx context.Context, req Request) (*Result, error) {
	if err := s.prepare(ctx, &req); err != nil {
		return nil, err
	}
	matched, err := s.matchExact(ctx, req.Domain, req)
	if err == nil {
		return s.finish(ctx, matched, req, false, nil)
	}
	if !errors.IsNotFoundError(err) {
		return nil, err
	}

	created, err := s.createComposed(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	return &Result{Entity: created, Created: true}, nil
}

// BestMatch returns the fuzzy best match for the query value within the
// block, along with its score. Fails with ErrNoCandidates when the block
// yields no scoreable candidates.
func (s *Service) BestMatch(ctx context.Context, req Request) (*Result, error) {
	if err := s.prepare(ctx, &req); err != nil {
		return nil, err
	}
	matched, score, _, err := s.matchFuzzy(ctx, req.Domain, req)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, matched, req, false, &score)
}

// BestMatchOrCreate returns the fuzzy best match when it scores at or above
// the threshold, and otherwise creates a new entity from the composed
// attributes. A domain with no scoreable candidates also creates.
func (s *Service) BestMatchOrCreate(ctx context.Context, req Request) (*Result, error) {
	if err := s.prepare(ctx, &req); err != nil {
		return nil, err
	}
	threshold, err := requireThreshold(req)
	if err != nil {
		return nil, err
	}
	matched, score, _, err := s.matchFuzzy(ctx, req.Domain, req)
	if err != nil {
		if errors.Is(err, errors.ErrNoCandidates) {
			created, cerr := s.createComposed(ctx, req, nil)
			if cerr != nil {
				return nil, cerr
			}
			return &Result{Entity: created, Created: true}, nil
		}
		return nil, err
	}

	if score < threshold {
		created, err := s.createComposed(ctx, req, nil)
		if err != nil {
			return nil, err
		}
		return &Result{Entity: created, Created: true, Score: &score}, nil
	}
	return s.finish(ctx, matched, req, false, &score)
}

// AliasOrCreate creates a new entity from the composed attributes. When the
// fuzzy best match scores strictly above the threshold the new entity is
// created as an alias of it; ReturnCanonical resolves the match's alias
// chain before returning. Several candidates sharing the best-matching
// value fail with ErrAmbiguousMatch, and a best match whose attributes are
// identical to the composed attributes fails with ErrConflict.
func (s *Service) AliasOrCreate(ctx context.Context, req Request) (*Result, error) {
	if err := s.prepare(ctx, &req); err != nil {
		return nil, err
	}
	return s.aliasOrCreate(ctx, req, true)
}

// CreateMatchedAlias behaves like AliasOrCreate but never creates a
// standalone entity: when no match scores above the threshold it fails with
// ErrNotFound.
func (s *Service) CreateMatchedAlias(ctx context.Context, req Request) (*Result, error) {
	if err := s.prepare(ctx, &req); err != nil {
		return nil, err
	}
	return s.aliasOrCreate(ctx, req, false)
}

func (s *Service) aliasOrCreate(ctx context.Context, req Request, createStandalone bool) (*Result, error) {
	threshold, err := requireThreshold(req)
	if err != nil {
		return nil, err
	}
	composed, explicitUUID, err := s.composeAttributes(req)
	if err != nil {
		return nil, err
	}

	matched, score, winners, err := s.matchFuzzy(ctx, req.Domain, req)
	if err != nil {
		if !errors.Is(err, errors.ErrNoCandidates) {
			return nil, err
		}
		if !createStandalone {
			return nil, errors.NewNotFoundError("no alias candidate for %s=%q in domain %q", req.QueryField, req.QueryValue, req.Domain)
		}
		created, cerr := s.create(ctx, req, composed, explicitUUID, nil)
		if cerr != nil {
			return nil, cerr
		}
		return &Result{Entity: created, Created: true}, nil
	}

	if winners > 1 {
		return nil, errors.Wrapf(errors.ErrAmbiguousMatch, "%d entities share the best-matching value for %s=%q in domain %q", winners, req.QueryField, req.QueryValue, req.Domain)
	}
	if matched.Attributes.Equal(composed) {
		return nil, errors.NewConflictError("entity with identical attributes already exists in domain %q", req.Domain)
	}

	if score <= threshold {
		if !createStandalone {
			return nil, errors.NewNotFoundError("no alias candidate above threshold %d for %s=%q", threshold, req.QueryField, req.QueryValue)
		}
		created, cerr := s.create(ctx, req, composed, explicitUUID, nil)
		if cerr != nil {
			return nil, cerr
		}
		return &Result{Entity: created, Created: true, Score: &score}, nil
	}

	if _, err := s.create(ctx, req, composed, explicitUUID, &matched.UUID); err != nil {
		return nil, err
	}
	target := matched
	if req.ReturnCanonical {
		canonical, err := s.walker.CanonicalAlias(ctx, matched)
		if err != nil {
			s.logError(err, "failed to canonicalize alias target", matched.UUID)
			return nil, err
		}
		target = canonical
	}
	return &Result{Entity: target, Created: true, Aliased: true, Score: &score}, nil
}

// UpdateMatch merges the update attributes into the single entity matching
// the block attributes. Fails with ErrNotFound on zero matches and
// ErrAmbiguousMatch on several, applying nothing in either case.
func (s *Service) UpdateMatch(ctx context.Context, req Request) (*Result, error) {
	if err := s.prepareBlockOnly(ctx, &req); err != nil {
		return nil, err
	}
	if err := req.UpdateAttrs.Validate(); err != nil {
		return nil, err
	}
	updated, err := s.entities.UpdateUnique(ctx, req.Domain, req.BlockAttrs, req.UpdateAttrs)
	if err != nil {
		return nil, err
	}
	return &Result{Entity: updated}, nil
}

// DeleteMatch deletes the single entity matching the block attributes.
// Fails with ErrNotFound on zero matches and ErrAmbiguousMatch on several,
// deleting nothing in either case.
func (s *Service) DeleteMatch(ctx context.Context, req Request) error {
	if err := s.prepareBlockOnly(ctx, &req); err != nil {
		return err
	}
	return s.entities.DeleteUnique(ctx, req.Domain, req.BlockAttrs)
}

// BulkCreate validates and inserts every record in a single transaction. A
// caller-supplied "uuid" key in a record becomes that entity's UUID. Unless
// force is set, each record is checked for an existing identical entity
// before the batch runs.
func (s *Service) BulkCreate(ctx context.Context, domain string, records []entity.Attributes, createdBy *string, force bool) ([]entity.Entity, error) {
	if _, err := s.domains.GetBySlug(ctx, domain); err != nil {
		return nil, err
	}

	bulk := make([]storage.BulkRecord, len(records))
	for i, attrs := range records {
		attrs = attrs.Clone()
		id := attrs.PopUUID()
		if err := attrs.Validate(); err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
		bulk[i] = storage.BulkRecord{UUID: id, Attributes: attrs}
	}
	return s.entities.CreateBulk(ctx, domain, bulk, createdBy, force)
}

// prepare validates the shared request fields.
func (s *Service) prepare(ctx context.Context, req *Request) error {
	if req.QueryField == "" {
		return errors.Wrap(errors.ErrMissingParameter, "query field cannot be empty")
	}
	if entity.IsReservedKey(req.QueryField) {
		return errors.Wrapf(errors.ErrReservedKey, "query field %q", req.QueryField)
	}
	if err := req.BlockAttrs.Validate(); err != nil {
		return err
	}
	if err := req.CreateAttrs.ValidateShallow(); err != nil {
		return err
	}
	_, err := s.domains.GetBySlug(ctx, req.Domain)
	return err
}

// requireThreshold rejects threshold-gated requests that omit a threshold.
// Zero is a valid caller-supplied value.
func requireThreshold(req Request) (int, error) {
	if req.Threshold == nil {
		return 0, errors.Wrap(errors.ErrMissingParameter, "threshold is required")
	}
	return *req.Threshold, nil
}

func (s *Service) prepareBlockOnly(ctx context.Context, req *Request) error {
	if len(req.BlockAttrs) == 0 {
		return errors.New("block attributes cannot be empty")
	}
	if err := req.BlockAttrs.Validate(); err != nil {
		return err
	}
	_, err := s.domains.GetBySlug(ctx, req.Domain)
	return err
}

// composeAttributes builds the attributes stored on a created entity from
// the query pair, block, and create attributes, popping any caller-supplied
// "uuid" out of the create attributes first.
func (s *Service) composeAttributes(req Request) (entity.Attributes, string, error) {
	create := req.CreateAttrs.Clone()
	explicitUUID := create.PopUUID()
	composed := req.BlockAttrs.Merge(create).Merge(entity.Attributes{req.QueryField: req.QueryValue})
	if err := composed.Validate(); err != nil {
		return nil, "", err
	}
	return composed, explicitUUID, nil
}

func (s *Service) createComposed(ctx context.Context, req Request, aliasFor *string) (*entity.Entity, error) {
	composed, explicitUUID, err := s.composeAttributes(req)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, req, composed, explicitUUID, aliasFor)
}

func (s *Service) create(ctx context.Context, req Request, attrs entity.Attributes, explicitUUID string, aliasFor *string) (*entity.Entity, error) {
	created, err := s.entities.Create(ctx, storage.CreateParams{
		Domain:     req.Domain,
		UUID:       explicitUUID,
		Attributes: attrs,
		AliasFor:   aliasFor,
		CreatedBy:  req.CreatedBy,
	})
	if err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Infow("Created entity", "uuid", created.UUID, "domain", req.Domain, "alias", aliasFor != nil)
	}
	return created, nil
}

// finish canonicalizes a matched entity per the request flags and wraps it
// in a Result.
func (s *Service) finish(ctx context.Context, matched *entity.Entity, req Request, created bool, score *int) (*Result, error) {
	resolved := matched
	if req.ReturnCanonical {
		terminal, err := s.walker.Canonicalize(ctx, matched, true, req.FollowSupersession)
		if err != nil {
			s.logError(err, "failed to canonicalize entity", matched.UUID)
			return nil, err
		}
		resolved = terminal
	}
	return &Result{
		Entity:  resolved,
		Created: created,
		Aliased: resolved.UUID != matched.UUID,
		Score:   score,
	}, nil
}

func (s *Service) logError(err error, msg, uuid string) {
	if s.logger != nil {
		s.logger.Errorw(msg, "uuid", uuid, "error", err)
	}
}
