package engine

import (
	"github.com/jptmoore/beingdb"
	"github.com/jptmoore/beingdb/query"
)

// resolve turns one pattern's terms into matcher items against the
// partial binding β, per spec.md §4.5 "Binding protocol": Atom/String
// resolve to their content, Wildcard resolves to _, a bound Var
// resolves to its bound value, an unbound Var resolves to _.
func resolve(p query.Pattern, beta beingdb.Binding) []matcherItem {
	items := make([]matcherItem, len(p.Terms))
	for i, t := range p.Terms {
		switch t.Kind {
		case query.AtomTerm, query.StringTerm:
			items[i] = literalItem(t.Text)
		case query.VarTerm:
			if v, ok := beta[t.Text]; ok {
				items[i] = literalItem(v)
			} else {
				items[i] = wildcardItem()
			}
		default: // WildcardTerm
			items[i] = wildcardItem()
		}
	}
	return items
}

// extend produces a new binding that additionally binds any still-
// unbound Vars in p's terms to the corresponding textual argument from
// a matched fact. It reports a conflict (ok=false) if a Var in p is
// already bound in beta to a different textual value than the fact
// supplies — such branches must be pruned (spec.md §4.5).
func extend(p query.Pattern, args []beingdb.Arg, beta beingdb.Binding) (next beingdb.Binding, ok bool) {
	next = beta.Clone()
	for i, t := range p.Terms {
		if t.Kind != query.VarTerm {
			continue
		}
		val := args[i].Text
		if existing, bound := next[t.Text]; bound {
			if existing != val {
				return nil, false
			}
			continue
		}
		next[t.Text] = val
	}
	return next, true
}
