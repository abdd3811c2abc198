// Package normalize turns card names and user queries into a comparison-safe
// form shared by the catalog merger and the match engine.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize lowercases s, replaces punctuation, symbols and any rune outside
// letters, numbers, whitespace and the kana/CJK ideograph blocks with a space,
// then collapses whitespace runs and trims the result.
//
// The output is deterministic and Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	// A Caser keeps state, so each call gets its own.
	lowered := cases.Lower(language.Und).String(s)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if isSeparator(r) {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokenize splits normalized text on spaces, dropping empty tokens.
func Tokenize(norm string) []string {
	if norm == "" {
		return []string{}
	}
	parts := strings.Split(norm, " ")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

func isSeparator(r rune) bool {
	switch {
	case r >= 0x2010 && r <= 0x201F: // dashes and curly quotes
		return true
	case r >= 0x3000 && r <= 0x303F: // CJK symbols and punctuation
		return true
	case unicode.IsPunct(r) || unicode.IsSymbol(r):
		return true
	}
	return !keep(r)
}

func keep(r rune) bool {
	return unicode.IsLetter(r) ||
		unicode.IsNumber(r) ||
		unicode.IsSpace(r) ||
		(r >= 0x3040 && r <= 0x30FF) || // hiragana and katakana
		(r >= 0x4E00 && r <= 0x9FAF) // CJK unified ideographs
}
