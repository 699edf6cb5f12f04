package util

import (
	"regexp"
	"strings"
)

const maxFileNameRunes = 120

var reSpaces = regexp.MustCompile(`\s+`)

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(strings.ReplaceAll(input, "\u00A0", " "), " "))
}

// SanitizeFileName makes a message id or subject usable as a file name part.
func SanitizeFileName(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_", "\"", "_")
	out := []rune(repl.Replace(input))
	if len(out) > maxFileNameRunes {
		out = out[:maxFileNameRunes]
	}
	return string(out)
}

func IntPtr(v int) *int { return &v }
