// Package slug generates URL-safe slugs from human-readable names.
package slug

import (
	"strings"
	"unicode"
)

var turkishReplacements = map[rune]rune{
	'ı': 'i', 'İ': 'i',
	'ç': 'c', 'Ç': 'c',
	'ş': 's', 'Ş': 's',
	'ğ': 'g', 'Ğ': 'g',
	'ü': 'u', 'Ü': 'u',
	'ö': 'o', 'Ö': 'o',
}

// Generate converts a name to a lowercase hyphen-separated slug.
// Turkish characters are transliterated to their ASCII equivalents;
// any remaining non-alphanumeric runes become hyphen separators.
func Generate(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastHyphen := true // suppress leading hyphens
	for _, r := range name {
		if mapped, ok := turkishReplacements[r]; ok {
			r = mapped
		} else {
			r = unicode.ToLower(r)
		}

		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}

		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
