package workflow

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// runLabel derives a human-readable run label from the source directory
// name, e.g. "/media/card/DCIM" becomes "Dcim" and "holiday_2023" becomes
// "Holiday 2023".
func runLabel(sourceDir string) string {
	const fallback = "Import"
	if sourceDir == "" {
		return fallback
	}
	base := filepath.Base(sourceDir)
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	label := strings.TrimSpace(cleaned.String())
	if label == "" {
		return fallback
	}
	return cases.Title(language.Und).String(label)
}
