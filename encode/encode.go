// Package encode implements BeingDB's two-level key scheme: a ground
// fact's arguments are split into a compact path segment (atoms,
// length-prefixed) and a value blob (strings, length-prefixed and
// concatenated). Grounded on the teacher's datalog/value_encoding.go
// (typed byte framing) and datalog/storage/key_encoder_binary.go (path
// construction and prefix/range helpers), adapted from the five-index
// EAVT scheme to the spec's single `[predicate, encoded_args]` path.
package encode

import (
	"strconv"
	"strings"

	"github.com/jptmoore/beingdb"
)

// maxAtomLen bounds the decoder's length field so adversarial input
// cannot force an unbounded allocation (spec.md §4.3).
const maxAtomLen = 1_000_000

// Args encodes an ordered argument list into the path segment and value
// blob pair spec.md §4.3 describes. Atoms are inlined into the path,
// length-prefixed; strings are offloaded into the blob and referenced
// from the path by index.
func Args(args []beingdb.Arg) (pathSegment string, blob []byte) {
	parts := make([]string, len(args))
	var strings_ []string

	for i, a := range args {
		if a.Kind == beingdb.StringArg {
			idx := len(strings_)
			strings_ = append(strings_, a.Text)
			parts[i] = "$:" + strconv.Itoa(idx)
			continue
		}
		parts[i] = strconv.Itoa(len(a.Text)) + ":" + a.Text
	}

	pathSegment = strings.Join(parts, ":")

	if len(strings_) == 0 {
		return pathSegment, nil
	}

	var b strings.Builder
	for _, s := range strings_ {
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
	}
	return pathSegment, []byte(b.String())
}

// Path builds the full two-element key `[predicate_name, encoded_args]`
// used as a KV path (spec.md §4.3). The pack store joins path elements
// with its own separator; here we simply return the two segments.
func Path(predicate string, args []beingdb.Arg) (segments []string, blob []byte) {
	encodedArgs, b := Args(args)
	return []string{predicate, encodedArgs}, b
}

// Decode reconstructs the argument list from a path segment and value
// blob. It never panics and never aborts on malformed input: on any
// arithmetic or bounds violation it stops and returns whatever was
// decoded so far (spec.md §4.3, "Decoder totality").
func Decode(pathSegment string, blob []byte) []beingdb.Arg {
	strs := splitBlob(blob)

	var args []beingdb.Arg
	rest := pathSegment

	for len(rest) > 0 {
		if strings.HasPrefix(rest, "$:") {
			rest = rest[2:]
			digits, tail := takeDigits(rest)
			if digits == "" {
				raw, tail := takeToken(rest)
				args = append(args, beingdb.Atom("$:"+raw))
				rest = consumeColon(tail)
				continue
			}
			idx, err := strconv.Atoi(digits)
			if err != nil || idx < 0 || idx >= len(strs) {
				args = append(args, beingdb.Atom("$:"+digits))
			} else {
				args = append(args, beingdb.Str(strs[idx]))
			}
			rest = consumeColon(tail)
			continue
		}

		digits, tail := takeDigits(rest)
		if digits == "" {
			return args
		}
		n, err := strconv.Atoi(digits)
		if err != nil || n < 0 || n > maxAtomLen {
			return args
		}
		tail = consumeColon(tail)
		if len(tail) < n {
			return args
		}
		args = append(args, beingdb.Atom(tail[:n]))
		rest = tail[n:]
		if len(rest) > 0 && rest[0] == ':' {
			rest = rest[1:]
		}
	}

	return args
}

// takeDigits consumes a run of ASCII digits from the front of s,
// returning the digits and the remainder (which still contains any
// separator that followed them).
func takeDigits(s string) (digits, rest string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}

// takeToken consumes everything up to (but not including) the next ':',
// or the whole string if none remains. Used for the non-integer $:
// index fallback, where the raw text can't be split by a digit count.
func takeToken(s string) (token, rest string) {
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

// consumeColon strips exactly one leading ':' if present.
func consumeColon(s string) string {
	if len(s) > 0 && s[0] == ':' {
		return s[1:]
	}
	return s
}

// splitBlob parses the value blob into its ordered list of strings. It
// is total: malformed framing simply truncates the returned list rather
// than erroring (spec.md §4.3, §7 DecodeAnomaly).
func splitBlob(blob []byte) []string {
	if len(blob) == 0 {
		return nil
	}
	s := string(blob)
	var out []string
	for len(s) > 0 {
		digits, tail := takeDigits(s)
		if digits == "" {
			return out
		}
		n, err := strconv.Atoi(digits)
		if err != nil || n < 0 {
			return out
		}
		tail = consumeColon(tail)
		if len(tail) < n {
			return out
		}
		out = append(out, tail[:n])
		s = tail[n:]
	}
	return out
}
