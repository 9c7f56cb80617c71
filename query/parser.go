package query

import (
	"fmt"
	"strings"
)

// Parse parses a query string into a Query. It returns a plain error
// when any non-empty top-level chunk fails to parse as a pattern (no `(`
// or an empty predicate name) and when the string contains no patterns
// at all; callers map these errors to beingdb.ErrParseError.
func Parse(input string) (*Query, error) {
	chunks := splitTopLevel(input)

	var patterns []Pattern
	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		p, err := parsePattern(chunk)
		if err != nil {
			return nil, fmt.Errorf("parsing pattern %q: %w", chunk, err)
		}
		patterns = append(patterns, p)
	}

	if len(patterns) == 0 {
		return nil, fmt.Errorf("query has no patterns")
	}

	return &Query{
		Patterns:  patterns,
		Variables: FirstOccurrenceVariables(patterns),
	}, nil
}

// splitTopLevel splits s on commas that sit outside any parenthesis
// nesting and outside any quoted string, so that a pattern's own
// argument-list commas are not mistaken for pattern separators.
func splitTopLevel(s string) []string {
	var parts []string
	var cur strings.Builder
	depth := 0
	inString := false
	escaped := false

	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case inString && r == '\\':
			cur.WriteRune(r)
			escaped = true
		case r == '"':
			inString = !inString
			cur.WriteRune(r)
		case inString:
			cur.WriteRune(r)
		case r == '(':
			depth++
			cur.WriteRune(r)
		case r == ')':
			depth--
			cur.WriteRune(r)
		case r == ',' && depth == 0:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	parts = append(parts, cur.String())
	return parts
}

// parsePattern parses one `name(arg, arg, ...)` chunk into a Pattern.
func parsePattern(chunk string) (Pattern, error) {
	open := strings.IndexByte(chunk, '(')
	if open < 0 {
		return Pattern{}, fmt.Errorf("no '(' found")
	}
	name := strings.TrimSpace(chunk[:open])
	if name == "" {
		return Pattern{}, fmt.Errorf("empty predicate name")
	}

	rest := strings.TrimSpace(chunk[open+1:])
	rest = strings.TrimSuffix(rest, ")")

	tokens := splitArgs(rest)
	terms := make([]Term, 0, len(tokens))
	for _, tok := range tokens {
		terms = append(terms, classifyTerm(tok))
	}

	return Pattern{Name: name, Terms: terms}, nil
}

// splitArgs is the same string-aware comma splitter used by the Fact
// Parser (spec.md §4.2: "the same string-aware rule as §4.1").
func splitArgs(s string) []string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}

	var tokens []string
	var cur strings.Builder
	inString := false
	escaped := false

	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case inString && r == '\\':
			cur.WriteRune(r)
			escaped = true
		case r == '"':
			inString = !inString
			cur.WriteRune(r)
		case r == ',' && !inString:
			tokens = append(tokens, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	tokens = append(tokens, strings.TrimSpace(cur.String()))

	return tokens
}

// classifyTerm applies the classification rules of spec.md §4.2 to one
// trimmed token.
func classifyTerm(tok string) Term {
	if tok == "_" {
		return Wildcard()
	}
	if strings.HasPrefix(tok, `"`) {
		if s, ok := unquote(tok); ok {
			return Str(s)
		}
		// Unterminated quote falls back to a raw Atom.
		return Atom(tok)
	}
	if len(tok) > 0 && isUpperASCII(tok[0]) {
		return Var(tok)
	}
	return Atom(tok)
}

func isUpperASCII(b byte) bool { return b >= 'A' && b <= 'Z' }

// unquote mirrors the Fact Parser's escape handling (\n \t \r \\ \").
func unquote(tok string) (string, bool) {
	if len(tok) < 2 || tok[0] != '"' || tok[len(tok)-1] != '"' {
		return "", false
	}
	body := tok[1 : len(tok)-1]

	var out strings.Builder
	escaped := false
	for _, r := range body {
		if escaped {
			switch r {
			case 'n':
				out.WriteByte('\n')
			case 't':
				out.WriteByte('\t')
			case 'r':
				out.WriteByte('\r')
			case '\\':
				out.WriteByte('\\')
			case '"':
				out.WriteByte('"')
			default:
				out.WriteRune(r)
			}
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		out.WriteRune(r)
	}
	if escaped {
		out.WriteByte('\\')
	}
	return out.String(), true
}

// FirstOccurrenceVariables returns the stable, deduplicated order of
// first appearance of all Var terms across patterns. Exported so the
// engine's optimizer can recompute it after reordering patterns
// (spec.md §4.2: variable order is defined "after reordering by the
// optimizer").
func FirstOccurrenceVariables(patterns []Pattern) []string {
	seen := make(map[string]bool)
	var vars []string
	for _, p := range patterns {
		for _, t := range p.Terms {
			if t.Kind == VarTerm && !seen[t.Text] {
				seen[t.Text] = true
				vars = append(vars, t.Text)
			}
		}
	}
	return vars
}
