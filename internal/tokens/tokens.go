// Package tokens splits free text into lowercase word tokens for cache keys and overlap scoring.
package tokens

import (
	"regexp"
	"strings"
	"unicode"
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Tokenize returns the lowercase word tokens of s in order. "GT-R" yields
// ["gt", "r"] and "R34" yields ["r34"].
func Tokenize(s string) []string {
	return wordRe.FindAllString(strings.ToLower(s), -1)
}

// Normalize joins the tokens of s with single spaces.
func Normalize(s string) string {
	return strings.Join(Tokenize(s), " ")
}

// Set is a token set.
type Set map[string]struct{}

// NewSet returns the distinct tokens of s.
func NewSet(s string) Set {
	toks := Tokenize(s)
	set := make(Set, len(toks))
	for _, t := range toks {
		set[t] = struct{}{}
	}
	return set
}

// Has reports whether tok is in the set.
func (s Set) Has(tok string) bool {
	_, ok := s[tok]
	return ok
}

// Overlap counts the tokens present in both sets.
func Overlap(a, b Set) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for t := range a {
		if b.Has(t) {
			n++
		}
	}
	return n
}

// HasDigit reports whether tok contains a decimal digit.
func HasDigit(tok string) bool {
	return strings.IndexFunc(tok, unicode.IsDigit) >= 0
}

// DigitTokens returns the members of s that carry a digit, such as model numbers.
func (s Set) DigitTokens() []string {
	var out []string
	for t := range s {
		if HasDigit(t) {
			out = append(out, t)
		}
	}
	return out
}
