package ogmgen

import (
	"strings"
	"unicode"
)

// splitName splits a string on hyphens and underscores.
func splitName(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_'
	})
}

// commonAcronyms lists abbreviations that stay fully uppercased in
// generated Go names.
var commonAcronyms = map[string]string{
	"id":   "ID",
	"uid":  "UID",
	"url":  "URL",
	"uuid": "UUID",
	"api":  "API",
	"http": "HTTP",
}

// ToPascalCase transforms a snake_case or kebab-case name into PascalCase,
// preserving common Go acronyms.
func ToPascalCase(name string) string {
	var b strings.Builder
	for _, part := range splitName(name) {
		if part == "" {
			continue
		}
		lower := strings.ToLower(part)
		if acro, ok := commonAcronyms[lower]; ok {
			b.WriteString(acro)
			continue
		}
		runes := []rune(lower)
		b.WriteRune(unicode.ToUpper(runes[0]))
		for _, r := range runes[1:] {
			b.WriteRune(r)
		}
	}
	return b.String()
}
