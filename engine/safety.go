package engine

import (
	"regexp"

	"github.com/jptmoore/beingdb"
	"github.com/jptmoore/beingdb/query"
)

var predicateNameRE = regexp.MustCompile(`^[a-z0-9_]+$`)

// ValidateQuery runs the safety budget checks of spec.md §4.5 in order,
// returning the first violation found.
func ValidateQuery(q *query.Query, offset, limit *int) error {
	if offset != nil && *offset < 0 {
		return &beingdb.InvalidOffsetError{Offset: *offset}
	}
	if limit != nil && *limit <= 0 {
		return &beingdb.InvalidLimitError{Limit: *limit}
	}

	for _, p := range q.Patterns {
		if p.Name == "" || !predicateNameRE.MatchString(p.Name) {
			return &beingdb.InvalidPredicateNameError{Name: p.Name}
		}
	}

	seen := make(map[string]bool, len(q.Patterns))
	for _, p := range q.Patterns {
		if seen[p.Name] {
			return beingdb.ErrCartesianProduct
		}
		seen[p.Name] = true
	}

	return nil
}
