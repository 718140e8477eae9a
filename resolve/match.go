package resolve

import (
	"context"

	"github.com/The-Politico/crosswalk/entity"
	"github.com/The-Politico/crosswalk/errors"
)

// matchExact finds the single entity whose attributes contain the block
// attributes plus the query field/value pair. Zero matches fail with
// ErrNotFound, more than one with ErrAmbiguousMatch.
func (s *Service) matchExact(ctx context.Context, domain string, req Request) (*entity.Entity, error) {
	filter := req.BlockAttrs.Merge(entity.Attributes{req.QueryField: req.QueryValue})
	found, err := s.entities.Find(ctx, domain, filter)
	if err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, errors.NewNotFoundError("no entity matches %s=%q in domain %q", req.QueryField, req.QueryValue, domain)
	case 1:
		return &found[0], nil
	default:
		return nil, errors.Wrapf(errors.ErrAmbiguousMatch, "%d entities match %s=%q in domain %q", len(found), req.QueryField, req.QueryValue, domain)
	}
}

// matchFuzzy narrows candidates by the block attributes first, scores the
// query value against every candidate's string value for the query field in
// one pass, then re-filters candidates by exact equality to the winning
// value. Candidates arrive in creation order, so the returned match is the
// earliest-created entity carrying the winning value; winners reports how
// many candidates carry it, for callers that must treat a shared winning
// value as ambiguous.
func (s *Service) matchFuzzy(ctx context.Context, domain string, req Request) (match *entity.Entity, score, winners int, err error) {
	candidates, err := s.entities.Find(ctx, domain, req.BlockAttrs)
	if err != nil {
		return nil, 0, 0, err
	}

	values := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if v, ok := c.Attributes.StringValue(req.QueryField); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, 0, 0, errors.Wrapf(errors.ErrNoCandidates, "no candidate in domain %q has a string value for %q", domain, req.QueryField)
	}

	winner, score, err := s.scorers.Score(req.Scorer, req.QueryValue, values)
	if err != nil {
		return nil, 0, 0, err
	}

	for i := range candidates {
		if v, ok := candidates[i].Attributes.StringValue(req.QueryField); ok && v == winner {
			if match == nil {
				match = &candidates[i]
			}
			winners++
		}
	}
	if match == nil {
		return nil, 0, 0, errors.AssertionFailedf("winning value %q not found among candidates", winner)
	}
	return match, score, winners, nil
}
