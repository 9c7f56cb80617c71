// Package fact lexes and parses ground fact source lines of the form
// `name(arg, arg, ...).` into (predicate, args) pairs. It is deliberately
// lenient: malformed but non-empty lines degrade to best-effort Atom
// arguments rather than failing the whole file (spec.md §4.1).
package fact

import (
	"strings"

	"github.com/jptmoore/beingdb"
)

// Parse parses one source line. It returns ok=false for blank lines,
// comment lines (leading `%` or `#`), lines with no `(`, and lines with
// an empty name before the `(`. The compile pipeline skips blank and
// comment lines silently and logs the others as malformed at warning
// level; none of them fail the file.
func Parse(line string) (f beingdb.Fact, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return beingdb.Fact{}, false
	}
	if strings.HasPrefix(line, "%") || strings.HasPrefix(line, "#") {
		return beingdb.Fact{}, false
	}

	line = strings.TrimSuffix(line, ".")

	open := strings.IndexByte(line, '(')
	if open < 0 {
		return beingdb.Fact{}, false
	}
	name := strings.TrimSpace(line[:open])
	if name == "" {
		return beingdb.Fact{}, false
	}

	rest := strings.TrimSpace(line[open+1:])
	rest = strings.TrimSuffix(rest, ")")

	tokens := splitArgs(rest)
	args := make([]beingdb.Arg, 0, len(tokens))
	for _, tok := range tokens {
		args = append(args, parseArg(tok))
	}

	return beingdb.Fact{Predicate: name, Args: args}, true
}

// splitArgs splits s on commas that are not inside a double-quoted
// string, honoring backslash escapes within the string. An empty or
// all-whitespace s (arity-0 calls, `pred()`) yields no tokens.
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

// parseArg classifies one trimmed argument token. A token that begins
// with `"` is parsed as a quoted string with the escape set \n \t \r \\
// \"; anything else round-trips verbatim as an Atom.
func parseArg(tok string) beingdb.Arg {
	if strings.HasPrefix(tok, `"`) {
		if s, ok := unquote(tok); ok {
			return beingdb.Str(s)
		}
	}
	return beingdb.Atom(tok)
}

// unquote strips the surrounding quotes from tok and processes escapes.
// It requires a matching closing quote; an unterminated quote is not
// considered a string by the caller.
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
		// trailing lone backslash: keep it literally
		out.WriteByte('\\')
	}
	return out.String(), true
}
