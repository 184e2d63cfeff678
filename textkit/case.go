// Package textkit provides the small text transformations extensions reach
// for constantly: case conversion between naming styles and display-width
// aware wrapping and truncation.
package textkit

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Upper returns s uppercased.
func Upper(s string) string { return strings.ToUpper(s) }

// Lower returns s lowercased.
func Lower(s string) string { return strings.ToLower(s) }

// Title returns s in title case, language-neutral.
func Title(s string) string {
	return cases.Title(language.Und).String(s)
}

// Words splits s into its component words, breaking on whitespace,
// underscores, hyphens, and lower-to-upper case boundaries. Acronym runs
// stay together, so "HTTPServer" splits into "HTTP", "Server", and digits
// bind to the word before them.
func Words(s string) []string {
	var words []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				boundary := unicode.IsLower(prev) || unicode.IsDigit(prev)
				if !boundary && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
					boundary = true
				}
				if boundary {
					flush()
				}
			}
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}

// Camel returns s in camelCase.
func Camel(s string) string {
	words := Words(s)
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(words[0]))
	for _, w := range words[1:] {
		b.WriteString(capitalize(w))
	}
	return b.String()
}

// Pascal returns s in PascalCase.
func Pascal(s string) string {
	var b strings.Builder
	for _, w := range Words(s) {
		b.WriteString(capitalize(w))
	}
	return b.String()
}

// Snake returns s in snake_case.
func Snake(s string) string { return joinWith(s, "_", strings.ToLower) }

// Kebab returns s in kebab-case.
func Kebab(s string) string { return joinWith(s, "-", strings.ToLower) }

// Constant returns s in CONSTANT_CASE.
func Constant(s string) string { return joinWith(s, "_", strings.ToUpper) }

func joinWith(s, sep string, transform func(string) string) string {
	words := Words(s)
	for i, w := range words {
		words[i] = transform(w)
	}
	return strings.Join(words, sep)
}

func capitalize(w string) string {
	if w == "" {
		return ""
	}
	runes := []rune(strings.ToLower(w))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
