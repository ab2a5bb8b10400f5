package gogen

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var abbreviations = map[string]string{
	"id":   "ID",
	"url":  "URL",
	"http": "HTTP",
	"html": "HTML",
	"api":  "API",
	"json": "JSON",
	"xml":  "XML",
	"sql":  "SQL",
	"css":  "CSS",
}

// TemplateIdentifier converts a template name such as "user_list.html.tmpl"
// into an exported Go identifier stem ("UserListHTML").
func TemplateIdentifier(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	words := strings.FieldsFunc(base, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	caser := cases.Title(language.English, cases.NoLower)

	var b strings.Builder

	for _, word := range words {
		if abbr, ok := abbreviations[strings.ToLower(word)]; ok {
			b.WriteString(abbr)
			continue
		}

		b.WriteString(caser.String(word))
	}

	result := b.String()
	if result != "" && unicode.IsDigit(rune(result[0])) {
		result = "T" + result
	}

	return result
}

// PackageNameForDir returns the Go package name for a directory: its base
// name, sanitized.
func PackageNameForDir(dir string) string {
	return sanitizePackageName(filepath.Base(filepath.Clean(dir)))
}

// sanitizePackageName ensures the package name is valid for Go
func sanitizePackageName(name string) string {
	result := strings.ToLower(name)
	result = strings.ReplaceAll(result, "-", "_")
	result = strings.ReplaceAll(result, ".", "_")
	result = strings.ReplaceAll(result, " ", "_")

	// Ensure it starts with a letter
	if len(result) > 0 && (result[0] >= '0' && result[0] <= '9') {
		result = "pkg_" + result
	}

	return result
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}

		return false
	}

	return true
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}

	// keep leading acronyms readable: "HTMLPage" -> "htmlPage"
	runes := []rune(s)

	i := 0
	for i < len(runes) && unicode.IsUpper(runes[i]) {
		i++
	}

	if i > 1 && i < len(runes) {
		i--
	}

	for j := range i {
		runes[j] = unicode.ToLower(runes[j])
	}

	return string(runes)
}
