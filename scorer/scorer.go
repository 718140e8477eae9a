// Package scorer provides pluggable fuzzy-matching strategies for the
// resolution engine. Strategies are resolved by name at call time; unknown
// names are rejected explicitly rather than falling back to a default.
package scorer

import (
	"sort"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/The-Politico/crosswalk/errors"
)

// DefaultScorer is the whole-string similarity strategy used when a caller
// does not name one.
const DefaultScorer = "ratio"

// ScoreFunc compares a query value against one candidate and returns a
// similarity in the range 0-100, higher meaning more similar.
type ScoreFunc func(query, candidate string) int

// Registry maps strategy names to scoring functions.
type Registry struct {
	strategies map[string]ScoreFunc
}

// NewRegistry returns a registry with the four standard strategies:
//
//	ratio            whole-string similarity
//	partial_ratio    best matching substring
//	token_sort_ratio token-order-independent similarity
//	token_set_ratio  token-set similarity
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[string]ScoreFunc)}
	r.Register("ratio", fuzzy.Ratio)
	r.Register("partial_ratio", fuzzy.PartialRatio)
	r.Register("token_sort_ratio", func(query, candidate string) int {
		return fuzzy.TokenSortRatio(query, candidate)
	})
	r.Register("token_set_ratio", func(query, candidate string) int {
		return fuzzy.TokenSetRatio(query, candidate)
	})
	return r
}

// Register adds or replaces a strategy under the given name.
func (r *Registry) Register(name string, fn ScoreFunc) {
	r.strategies[name] = fn
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Score runs the named strategy across all candidates and returns the best
// candidate with its score. Of equally-scored candidates the first wins, so
// callers control the tie-break through candidate order. An empty candidate
// sequence fails with ErrNoCandidates; an unregistered name fails with
// ErrUnknownScorer.
func (r *Registry) Score(name, query string, candidates []string) (string, int, error) {
	if name == "" {
		name = DefaultScorer
	}
	fn, ok := r.strategies[name]
	if !ok {
		return "", 0, errors.Wrapf(errors.ErrUnknownScorer, "scorer %q", name)
	}
	if len(candidates) == 0 {
		return "", 0, errors.Wrap(errors.ErrNoCandidates, "no candidate values to score")
	}

	best := candidates[0]
	bestScore := fn(query, candidates[0])
	for _, candidate := range candidates[1:] {
		if score := fn(query, candidate); score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best, bestScore, nil
}
