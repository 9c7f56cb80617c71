package engine

import (
	"sort"

	"github.com/jptmoore/beingdb/pack"
	"github.com/jptmoore/beingdb/query"
)

// Sketch is a lazily-populated, in-memory approximation of per-predicate
// fact counts, grounded on the teacher's database.go Statistics/
// PlannerOptions idiom. It exists only to break ties in the selectivity
// heuristic below; it is never a correctness dependency.
type Sketch struct {
	counts map[string]int64
}

// NewSketch builds a sketch from one Predicates() call against the pack.
// A nil or failed lookup leaves the sketch empty, which simply disables
// tiebreaking (callers fall back to source order).
func NewSketch(store pack.Store) *Sketch {
	s := &Sketch{counts: make(map[string]int64)}
	if store == nil {
		return s
	}
	infos, err := store.Predicates()
	if err != nil {
		return s
	}
	for _, info := range infos {
		s.counts[info.Name] = info.Count
	}
	return s
}

func (s *Sketch) count(predicate string) (int64, bool) {
	if s == nil {
		return 0, false
	}
	n, ok := s.counts[predicate]
	return n, ok
}

// Optimize stable-sorts patterns descending by NonWildcardConstants
// (spec.md §4.5 "Pattern reordering"), using the sketch to break ties
// in ascending observed cardinality when both predicates have one,
// else preserving source order (sort.SliceStable's tie behavior).
// It returns a new Query with both Patterns and Variables recomputed
// in the reordered order.
func Optimize(q *query.Query, sketch *Sketch) *query.Query {
	patterns := make([]query.Pattern, len(q.Patterns))
	copy(patterns, q.Patterns)

	sort.SliceStable(patterns, func(i, j int) bool {
		ci, cj := patterns[i].NonWildcardConstants(), patterns[j].NonWildcardConstants()
		if ci != cj {
			return ci > cj
		}
		ni, oki := sketch.count(patterns[i].Name)
		nj, okj := sketch.count(patterns[j].Name)
		if oki && okj && ni != nj {
			return ni < nj
		}
		return false
	})

	return &query.Query{
		Patterns:  patterns,
		Variables: query.FirstOccurrenceVariables(patterns),
	}
}
