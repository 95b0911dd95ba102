// Package filter implements ContentFilter: the pure, stateless text
// normalization every document and query passes through before it touches
// the index. It has no I/O and no mutable state, by design — the shard
// calls it inline under its own lock rather than through any capability.
package filter

import (
	"strings"
)

// maxFilteredBytes is the byte cap applied to Filter's output before it is
// handed to Store.Upsert.
const maxFilteredBytes = 500

// minTokenLen and maxTokenLen bound which tokens survive filtering.
const (
	minTokenLen = 2
	maxTokenLen = 50
)

// Filter reduces raw content to the indexable token sequence: lowercase,
// collapse runs of non-word characters to a single space, split on
// whitespace, and drop tokens that are too short, too long, or present in
// the stop or common sets. The result is deterministic given raw and the
// compile-time word lists.
//
// Filter is idempotent: Filter(Filter(x)) == Filter(x), because every
// retained token is already lowercase, within length bounds, and absent
// from both word sets, so a second pass changes nothing.
func Filter(raw string) string {
	tokens := tokenize(strings.ToLower(raw))
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !keepable(tok) {
			continue
		}
		if isStop(tok) || isCommon(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	return truncateBytes(strings.Join(kept, " "), maxFilteredBytes)
}

// FilterQuery removes only the Stop set — a user may legitimately search
// for a Common-set term — and preserves the original case of every
// retained token, unlike Filter which normalizes case for indexing.
// FilterQuery is idempotent for the same reason Filter is.
func FilterQuery(raw string) string {
	lowered := tokenize(strings.ToLower(raw))
	original := tokenize(raw)
	// tokenize is a pure function of its input's word-boundary structure,
	// which is case-insensitive, so lowered and original always have the
	// same token count and boundaries; only casing can differ per token.
	kept := make([]string, 0, len(original))
	for i, tok := range lowered {
		if !keepable(tok) {
			continue
		}
		if isStop(tok) {
			continue
		}
		kept = append(kept, original[i])
	}
	return strings.Join(kept, " ")
}

// tokenize lowercases-agnostically splits s on runs of non-word characters
// and returns the non-empty pieces, in order.
func tokenize(s string) []string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isWordRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

// isWordRune matches the ASCII "word character" class [A-Za-z0-9_] that a
// run of non-word characters is collapsed around; every other rune,
// including non-ASCII letters and digits, counts as a non-word character.
func isWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		return true
	default:
		return false
	}
}

func keepable(tok string) bool {
	n := len(tok)
	return n >= minTokenLen && n <= maxTokenLen
}

func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	// Truncate on a rune boundary so we never split a multi-byte
	// character, even though tokens here are ASCII word runes in
	// practice.
	b := []byte(s)[:limit]
	for len(b) > 0 && !isUTF8Boundary(b) {
		b = b[:len(b)-1]
	}
	return string(b)
}

func isUTF8Boundary(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	last := b[len(b)-1]
	// A continuation byte has the top two bits "10"; truncating mid-rune
	// would leave one dangling, so back up past it.
	return last&0xC0 != 0x80
}
