// Package engine implements the conjunctive query engine and its
// safety guards. Grounded on the teacher's datalog/storage/matcher.go
// (pattern-to-relation matching), datalog/executor (recursive join,
// Context tracing, WorkerPool admission idiom) and
// datalog/storage/database.go (Statistics cardinality hints), collapsed
// from Datalog's general pattern algebra down to spec.md §4.5's fixed
// conjunctive-pattern pipeline over a single pack.
package engine

import (
	"context"
	"sort"
	"time"

	"github.com/jptmoore/beingdb"
	"github.com/jptmoore/beingdb/encode"
	"github.com/jptmoore/beingdb/pack"
	"github.com/jptmoore/beingdb/query"
)

// Config bounds one engine's query execution (spec.md §4.5 guards and
// §5 concurrency model). Zero values disable the corresponding guard
// except QueryTimeout, which always applies (callers use a very large
// value to effectively disable it).
type Config struct {
	QueryTimeout          time.Duration
	MaxIntermediateResults int64
	Trace                 Trace
}

func (c Config) trace() Trace {
	if c.Trace != nil {
		return c.Trace
	}
	return NopTrace{}
}

// Engine binds a pack store and a config together for repeated queries.
// It holds a cardinality Sketch, rebuilt lazily on first use.
type Engine struct {
	store  pack.Store
	config Config
	sketch *Sketch
}

func New(store pack.Store, config Config) *Engine {
	return &Engine{store: store, config: config}
}

func (e *Engine) sketchOrBuild() *Sketch {
	if e.sketch == nil {
		e.sketch = NewSketch(e.store)
	}
	return e.sketch
}

// ListPredicates reads the distinct predicate names present in the pack.
func (e *Engine) ListPredicates() ([]string, error) {
	infos, err := e.store.Predicates()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names, nil
}

// ListPredicatesWithArity reports each predicate's observed arity.
// Predicates with zero facts are not listed: the pack holds no key for
// them (arity-violating files write zero facts and are therefore
// absent).
func (e *Engine) ListPredicatesWithArity() ([]pack.PredicateInfo, error) {
	return e.store.Predicates()
}

// QueryAll enumerates every fact stored under a predicate.
func (e *Engine) QueryAll(predicate string) ([][]beingdb.Arg, error) {
	var out [][]beingdb.Arg
	err := e.store.List(predicate, func(entry pack.Entry) error {
		out = append(out, encode.Decode(entry.PathArgs, entry.Blob))
		return nil
	})
	return out, err
}

// QueryPredicate scans facts under predicate whose decoded arguments
// match items (spec.md §4.5, "query_predicate"). offset/limit are
// optional pagination bounds applied in scan order.
func (e *Engine) QueryPredicate(predicate string, items []matcherItem, offset, limit *int) ([][]beingdb.Arg, error) {
	var out [][]beingdb.Arg
	skip := 0
	if offset != nil {
		skip = *offset
	}
	take := -1
	if limit != nil {
		take = *limit
	}

	seen := 0
	err := e.store.List(predicate, func(entry pack.Entry) error {
		args := encode.Decode(entry.PathArgs, entry.Blob)
		if !matchArgs(args, items) {
			return nil
		}
		if seen < skip {
			seen++
			return nil
		}
		seen++
		out = append(out, args)
		if take >= 0 && len(out) >= take {
			return stopSignal{}
		}
		return nil
	})
	if _, stopped := err.(stopSignal); stopped {
		err = nil
	}
	return out, err
}

// Execute fully materializes q against the pack (spec.md §4.5,
// "execute"). The result's Total is always populated.
func (e *Engine) Execute(ctx context.Context, q *query.Query) (Result, error) {
	optimized := Optimize(q, e.sketchOrBuild())

	ctx, cancel := e.deadline(ctx)
	defer cancel()

	g := &guard{ctx: ctx, maxIntermediate: e.config.MaxIntermediateResults, trace: e.config.trace()}
	g.trace.QueryBegin(optimized.String())

	var results []beingdb.Binding
	err := walk(g, e.store, optimized.Patterns, 0, beingdb.Binding{}, func(b beingdb.Binding) bool {
		results = append(results, b)
		return false
	})
	g.trace.QueryComplete(len(results), err)
	if err != nil {
		return Result{}, err
	}

	total := len(results)
	return Result{
		Variables: optimized.Variables,
		Results:   results,
		Count:     total,
		Total:     &total,
	}, nil
}

// ExecuteStreaming executes q with bounded additional memory, collecting
// only the [offset, offset+limit) window of complete bindings in
// production order (spec.md §4.5 "Streaming join semantics"). Total is
// left nil: computing it would require a second full pass, defeating
// the bounded-memory guarantee this path exists for.
func (e *Engine) ExecuteStreaming(ctx context.Context, q *query.Query, offset, limit int) (Result, error) {
	optimized := Optimize(q, e.sketchOrBuild())

	ctx, cancel := e.deadline(ctx)
	defer cancel()

	g := &guard{ctx: ctx, maxIntermediate: e.config.MaxIntermediateResults, trace: e.config.trace()}
	g.trace.QueryBegin(optimized.String())

	var results []beingdb.Binding
	produced := 0
	err := walk(g, e.store, optimized.Patterns, 0, beingdb.Binding{}, func(b beingdb.Binding) bool {
		idx := produced
		produced++
		if idx < offset {
			return false
		}
		results = append(results, b)
		return len(results) >= limit
	})
	if _, stopped := err.(stopSignal); stopped {
		err = nil
	}
	g.trace.QueryComplete(len(results), err)
	if err != nil {
		return Result{}, err
	}

	count := len(results)
	off, lim := offset, limit
	return Result{
		Variables: optimized.Variables,
		Results:   results,
		Count:     count,
		Offset:    &off,
		Limit:     &lim,
	}, nil
}

func (e *Engine) deadline(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := e.config.QueryTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(parent, timeout)
}

// sortedPredicateNames returns the names in infos in lexical order,
// independent of the order the pack listed them in. Nothing in the
// package calls it.
func sortedPredicateNames(infos []pack.PredicateInfo) []string {
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	sort.Strings(names)
	return names
}
