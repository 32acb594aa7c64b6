// Copyright 2026, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsxcsv

import (
	"strings"
	"unicode/utf8"
)

// CleanXMLText returns s with every code point outside the XML 1.0
// character range removed. Invalid UTF-8 sequences are dropped, not
// replaced. Valid text comes back unchanged (same string, no copy).
func CleanXMLText(s string) string {
	if utf8.ValidString(s) &&
		!strings.ContainsFunc(s, func(r rune) bool { return !legalXMLChar(r) }) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			i++
			continue
		}
		if legalXMLChar(r) {
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

// legalXMLChar reports whether r is in the XML 1.0 Char production:
// #x9 | #xA | #xD | [#x20-#xD7FF] | [#xE000-#xFFFD] | [#x10000-#x10FFFF].
func legalXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		0x20 <= r && r <= 0xD7FF ||
		0xE000 <= r && r <= 0xFFFD ||
		0x10000 <= r && r <= 0x10FFFF
}
