// Package normalize implements the canonical word/phrase transform used
// everywhere a word or phrase is hashed or compared: at catalog ingest time,
// at planner lookup time, and when splitting an incoming request's text into
// tokens. The same function must be used on both sides of every comparison.
package normalize

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Text lowercases, collapses whitespace to single spaces, strips punctuation
// (except apostrophes inside a word), and trims. It is idempotent:
// Text(Text(x)) == Text(x).
func Text(input string) string {
	folded, _, _ := transform.String(foldTransformer, input)
	runes := []rune(strings.ToLower(folded))

	var b strings.Builder
	b.Grow(len(runes))
	lastWasSpace := false
	for i, r := range runes {
		switch {
		case unicode.IsSpace(r):
			if !lastWasSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			lastWasSpace = true
		case r == '\'' && isInteriorApostrophe(runes, i):
			b.WriteRune(r)
			lastWasSpace = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastWasSpace = false
		default:
			// Punctuation: drop, but treat as a word boundary so
			// "hello,world" normalizes to "hello world".
			if !lastWasSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			lastWasSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// foldTransformer strips combining marks (accents) ahead of the ASCII
// punctuation pass, so non-ASCII input folds toward comparable tokens
// instead of being silently dropped by the letter/digit check.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// isInteriorApostrophe reports whether the apostrophe at index i has a
// letter/digit on both sides, e.g. "don't".
func isInteriorApostrophe(runes []rune, i int) bool {
	if i == 0 || i == len(runes)-1 {
		return false
	}
	before, after := runes[i-1], runes[i+1]
	return (unicode.IsLetter(before) || unicode.IsDigit(before)) &&
		(unicode.IsLetter(after) || unicode.IsDigit(after))
}

// PhraseHash returns the hex MD5 digest of Text(phrase), matching the
// ingester's hash so phrase index lookups agree with ingest.
func PhraseHash(phrase string) string {
	sum := md5.Sum([]byte(Text(phrase)))
	return hex.EncodeToString(sum[:])
}

// Tokens splits a normalized phrase into its whitespace-separated words.
// Callers normally call Text first; Tokens also normalizes for convenience.
func Tokens(phrase string) []string {
	normalized := Text(phrase)
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, " ")
}

// WordCount returns the number of whitespace-separated tokens of
// Text(phrase).
func WordCount(phrase string) int {
	return len(Tokens(phrase))
}
