// Package matching implements cross-federation gym identity matching:
// name normalization, similarity scoring, and match classification.
package matching

import "strings"

// DefaultSuffixTokens is the generic gym-naming vocabulary stripped
// during normalization. Tokens are matched as whole words against the
// cleaned (lowercase, punctuation-free) name; multi-word phrases are
// listed longest-first so "brazilian jiu jitsu" wins over "jiu jitsu".
// The list is configuration, not logic — operators can extend it via
// Config.SuffixTokens without code changes.
var DefaultSuffixTokens = []string{
	"brazilian jiu jitsu",
	"brazilian jiujitsu",
	"training center",
	"martial arts",
	"jiu jitsu",
	"headquarters",
	"jiujitsu",
	"academy",
	"team",
	"bjj",
	"mma",
	"hq",
}

// Normalizer canonicalizes gym display names for comparison.
type Normalizer struct {
	tokens []string
}

// NewNormalizer creates a normalizer with the given suffix vocabulary.
// Nil or empty tokens fall back to DefaultSuffixTokens.
func NewNormalizer(tokens []string) *Normalizer {
	if len(tokens) == 0 {
		tokens = DefaultSuffixTokens
	}
	return &Normalizer{tokens: tokens}
}

// Clean lowercases the name, replaces every character outside
// [a-z0-9\s] with a space, and collapses whitespace. This is the
// normalization pass before suffix stripping.
func (n *Normalizer) Clean(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))

	// Replace punctuation with spaces rather than deleting it, so
	// "gracie-barra" keeps its token boundary.
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return collapseSpaces(b.String())
}

// Normalize cleans the name and strips the suffix vocabulary as whole
// words. Pure and idempotent.
func (n *Normalizer) Normalize(name string) string {
	s := n.Clean(name)

	for _, token := range n.tokens {
		s = removeWholeWord(s, token)
	}

	return strings.TrimSpace(s)
}

// NormalizeGymName normalizes with the default suffix vocabulary.
func NormalizeGymName(name string) string {
	return defaultNormalizer.Normalize(name)
}

var defaultNormalizer = NewNormalizer(nil)

// removeWholeWord removes every whole-word occurrence of token from s.
// Both s and token must already be cleaned (lowercase, single-spaced).
func removeWholeWord(s, token string) string {
	if token == "" {
		return s
	}
	padded := " " + s + " "
	pattern := " " + token + " "
	for strings.Contains(padded, pattern) {
		padded = strings.ReplaceAll(padded, pattern, " ")
	}
	return collapseSpaces(padded)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
