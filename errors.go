package beingdb

import (
	"errors"
	"fmt"
)

// Sentinel errors for the taxonomy entries that carry no payload beyond
// their identity (spec.md §7). Each propagates to the HTTP boundary as a
// 400 (or 503 for Overloaded); the execution errors (timeout and
// intermediate cap) end with a short remediation hint.
var (
	ErrParseError       = errors.New("invalid syntax")
	ErrCartesianProduct = errors.New("duplicate predicate in query (cartesian product)")
	ErrTimeout          = errors.New("query deadline exceeded: add constants to the query or request a smaller limit")
	ErrIntermediateCap  = errors.New("intermediate result cap exceeded: add constants to the query to narrow the join")
	ErrOverloaded       = errors.New("server overloaded")
)

// InvalidPredicateNameError reports a predicate name that fails
// `[a-z0-9_]+` or is empty.
type InvalidPredicateNameError struct {
	Name string
}

func (e *InvalidPredicateNameError) Error() string {
	return fmt.Sprintf("invalid predicate name %q: must match [a-z0-9_]+", e.Name)
}

// InvalidOffsetError reports a negative offset.
type InvalidOffsetError struct {
	Offset int
}

func (e *InvalidOffsetError) Error() string {
	return fmt.Sprintf("invalid offset %d: must be >= 0", e.Offset)
}

// InvalidLimitError reports a non-positive limit.
type InvalidLimitError struct {
	Limit int
}

func (e *InvalidLimitError) Error() string {
	return fmt.Sprintf("invalid limit %d: must be > 0", e.Limit)
}

// ArityViolationError is compile-time only: a predicate file mixed arities
// and was written with zero facts (spec.md §4.4 step 5).
type ArityViolationError struct {
	Predicate string
	Arities   []int
	Samples   []string // up to five representative lines
}

func (e *ArityViolationError) Error() string {
	return fmt.Sprintf("predicate %q has inconsistent arities %v (%d sample lines)",
		e.Predicate, e.Arities, len(e.Samples))
}
