package engine

import "github.com/jptmoore/beingdb"

// Result is the query-engine-facing counterpart to spec.md §4.5's
// "Result envelope"; the HTTP layer renders it to JSON.
type Result struct {
	Variables []string
	Results   []beingdb.Binding
	Count     int
	Total     *int // nil when the streaming path skipped the counting pass
	Offset    *int
	Limit     *int
}
