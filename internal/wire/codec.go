// Package wire implements the TLCP-2.0.0 line-oriented text codec: tokenizing
// and parsing inbound frames, and encoding outbound request parameter lists.
//
// Tokenization rules (ported from the reference client's parse_arguments,
// see original_source/src/util.rs): split a frame on commas, but never
// inside a balanced, nestable {...} group, and trim surrounding whitespace
// from each token. The reference client's sibling clean_message function
// additionally lowercases everything outside braces; that part is not
// ported, since session ids and field values are case-sensitive on the
// wire and CONOK's session id argument (e.g. "S8f4aec42c3c14ad0") would be
// silently corrupted by it. Tag matching only needs the tag token
// uppercased, which ParseFrame does directly.
package wire

import "strings"

// SplitFrame tokenizes a single CRLF-stripped frame line into its
// comma-separated arguments, honoring nested {...} groups as opaque to the
// comma delimiter.
func SplitFrame(line string) []string {
	var args []string
	depth := 0
	start := 0
	for i, r := range line {
		switch r {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(line[start:i]))
				start = i + 1
			}
		}
	}
	if start < len(line) {
		tail := strings.TrimSpace(line[start:])
		if tail != "" || len(args) > 0 {
			args = append(args, tail)
		}
	}
	return args
}

// unescape reverses the wire escaping applied to literal field values: '\'
// followed by any character yields that character literally, so "a\|b"
// becomes "a|b" and "a\\b" becomes "a\b".
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
