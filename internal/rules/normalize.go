// Package rules implements the tag extraction engine: ordered pattern
// rules turn raw provider channel names into a normalized tag set and a
// cleaned display name.
package rules

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer decomposes compatibility characters and drops combining
// marks. Provider names use superscript and math-style letters (ᵁᴴᴰ,
// ⁶⁰ᶠᵖˢ) that NFKD folds back to ASCII.
var foldTransformer = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
)

var (
	nonTagChars  = regexp.MustCompile(`[^\w\s-]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeTag canonicalizes a tag name: fold Unicode formatting
// characters to ASCII, uppercase, strip everything but word characters,
// spaces and hyphens, then join words with underscores.
//
// Normalization is idempotent: NormalizeTag(NormalizeTag(s)) equals
// NormalizeTag(s).
func NormalizeTag(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	out := strings.ToUpper(folded)
	out = nonTagChars.ReplaceAllString(out, "")
	out = whitespaceRe.ReplaceAllString(strings.TrimSpace(out), "_")
	return strings.Trim(out, "_")
}
