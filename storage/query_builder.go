package storage

import (
	"strings"

	"github.com/The-Politico/crosswalk/entity"
)

// queryBuilder accumulates SQL WHERE clauses and parameters for entity
// queries.
type queryBuilder struct {
	whereClauses []string
	args         []interface{}
}

// addClause appends a WHERE clause with its arguments
func (qb *queryBuilder) addClause(clause string, args ...interface{}) {
	qb.whereClauses = append(qb.whereClauses, clause)
	qb.args = append(qb.args, args...)
}

// build returns the WHERE clauses joined with AND
func (qb *queryBuilder) build() string {
	return strings.Join(qb.whereClauses, " AND ")
}

// buildDomainFilter scopes the query to one domain.
func (qb *queryBuilder) buildDomainFilter(slug string) {
	qb.addClause("domain_slug = ?", slug)
}

// buildAttributeKeyFilter narrows candidates to rows whose attribute JSON
// mentions every filter key. This is a coarse prefilter: the precise
// containment check (exact values, array inclusion) runs in Go after
// scanning, so a LIKE false positive only costs a decode.
func (qb *queryBuilder) buildAttributeKeyFilter(filter entity.Attributes) {
	for key := range filter {
		qb.addClause("attributes LIKE ? ESCAPE '\\'", `%"`+escapeLikePattern(key)+`"%`)
	}
}

// escapeLikePattern escapes special characters in LIKE patterns for SQL ESCAPE clause
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
