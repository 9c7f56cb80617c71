package engine

import (
	"context"
	"runtime"

	"github.com/jptmoore/beingdb"
	"github.com/jptmoore/beingdb/encode"
	"github.com/jptmoore/beingdb/pack"
	"github.com/jptmoore/beingdb/query"
)

// guard carries the per-execution deadline and intermediate-result cap
// state through the recursive join (spec.md §4.5 "During execution the
// engine enforces three guards").
type guard struct {
	ctx          context.Context
	maxIntermediate int64
	intermediate    int64
	trace           Trace
}

func (g *guard) yield() error {
	runtime.Gosched()
	if err := g.ctx.Err(); err != nil {
		return beingdb.ErrTimeout
	}
	return nil
}

func (g *guard) observeCandidate() error {
	g.intermediate++
	if g.maxIntermediate > 0 && g.intermediate > g.maxIntermediate {
		return beingdb.ErrIntermediateCap
	}
	return nil
}

// stopSignal unwinds the recursion once a streaming consumer's limit
// has been reached; it never escapes Execute or ExecuteStreaming.
type stopSignal struct{}

func (stopSignal) Error() string { return "stop" }

// walk performs the recursive conjunctive join of spec.md §4.5 "Binding
// protocol" over patterns[depth:], extending beta and invoking collect
// on every complete binding. collect returns true to request an early
// stop (used by the streaming path once limit bindings are collected).
func walk(g *guard, store pack.Store, patterns []query.Pattern, depth int, beta beingdb.Binding, collect func(beingdb.Binding) (stop bool)) error {
	if err := g.yield(); err != nil {
		return err
	}

	if depth == len(patterns) {
		g.trace.BindingProduced()
		if collect(beta) {
			return stopSignal{}
		}
		return nil
	}

	p := patterns[depth]
	items := resolve(p, beta)

	var matchErr error
	candidates := 0
	err := store.List(p.Name, func(entry pack.Entry) error {
		if err := g.yield(); err != nil {
			return err
		}

		args := encode.Decode(entry.PathArgs, entry.Blob)
		if !matchArgs(args, items) {
			return nil
		}
		candidates++

		if err := g.observeCandidate(); err != nil {
			return err
		}

		next, ok := extend(p, args, beta)
		if !ok {
			return nil
		}

		if err := walk(g, store, patterns, depth+1, next, collect); err != nil {
			matchErr = err
			return err
		}
		return nil
	})

	g.trace.PatternMatched(p.Name, candidates)

	if matchErr != nil {
		return matchErr
	}
	return err
}
