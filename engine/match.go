package engine

import (
	"github.com/jptmoore/beingdb"
)

// matcherItem is one resolved pattern position: either a concrete
// textual content to match, or the wildcard (spec.md §4.5, "Binding
// protocol" — "the pattern handed to query_predicate is a list of
// matcher items, each either a literal content string or the
// wildcard _").
type matcherItem struct {
	isWildcard bool
	content    string
}

func wildcardItem() matcherItem { return matcherItem{isWildcard: true} }
func literalItem(s string) matcherItem { return matcherItem{content: s} }

// matchArgs implements spec.md §8 property 3, "Pattern semantics":
// arity must match, then pairwise a wildcard matches anything and a
// literal matches iff its textual content equals the argument's
// textual content (atom/string distinction ignored).
func matchArgs(args []beingdb.Arg, items []matcherItem) bool {
	if len(args) != len(items) {
		return false
	}
	for i, item := range items {
		if item.isWildcard {
			continue
		}
		if args[i].Text != item.content {
			return false
		}
	}
	return true
}
