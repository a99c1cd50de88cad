// Package normalize holds the cell-level cleaning functions: free-text
// canonicalization, proper-noun casing, city correction and the phone and
// DANE code validators. Every function is total and maps an absent cell to
// an absent cell.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/empresas-cli/internal/model"
)

var (
	// \s is ASCII-only in RE2; \p{Z} adds no-break and other Unicode spaces.
	forbiddenRe  = regexp.MustCompile(`[^a-zA-Z0-9áéíóúÁÉÍÓÚñÑüÜ\s\p{Z}]`)
	whitespaceRe = regexp.MustCompile(`[\s\p{Z}]+`)
)

// connectors stay lower-case inside proper nouns unless they lead the name.
var connectors = map[string]bool{
	"de": true, "del": true, "la": true, "las": true, "los": true,
	"y": true, "e": true, "i": true, "o": true, "u": true,
}

// NormalizeText canonicalizes a free-text value:
//  1. Composing accents (NFC) so decomposed input survives the filter
//  2. Removing everything but letters, digits and whitespace
//  3. Converting to uppercase
//  4. Collapsing whitespace runs and trimming
func NormalizeText(c model.Cell) model.Cell {
	if !c.Valid {
		return c
	}
	return model.Str(normalizeString(c.Value))
}

func normalizeString(s string) string {
	s = norm.NFC.String(s)
	s = forbiddenRe.ReplaceAllString(s, "")
	s = strings.ToUpper(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// FixProperNounCasing title-cases each word of a name. Connector words are
// lower-cased unless they are the first word.
func FixProperNounCasing(c model.Cell) model.Cell {
	if !c.Valid {
		return c
	}
	words := strings.Fields(c.Value)
	for i, w := range words {
		lower := strings.ToLower(w)
		if i > 0 && connectors[lower] {
			words[i] = lower
			continue
		}
		words[i] = capitalize(lower)
	}
	return model.Str(strings.Join(words, " "))
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToTitle(r)) + s[size:]
}

// Fold strips diacritics and upper-cases s. It is used for accent-insensitive
// lookups only and never written to output.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(strings.TrimSpace(out))
}
