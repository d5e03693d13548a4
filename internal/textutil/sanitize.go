package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFileNameBytes bounds sanitized names well below common 255-byte limits,
// leaving room for suffixes such as "_summary.docx".
const MaxFileNameBytes = 200

// fileNameReplacer replaces filesystem-unsafe characters with underscores.
var fileNameReplacer = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	"\"", "_",
	"/", "_",
	"\\", "_",
	"|", "_",
	"?", "_",
	"*", "_",
)

// SanitizeFileName makes name safe to use as a single path segment. Unsafe
// characters and control characters become underscores, leading and trailing
// spaces and dots are trimmed, and the result is truncated to MaxFileNameBytes
// on a rune boundary. Case is preserved.
func SanitizeFileName(name string) string {
	name = fileNameReplacer.Replace(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, " .")
	name = TruncateBytes(name, MaxFileNameBytes)
	return strings.Trim(name, " .")
}

// TruncateBytes shortens s to at most limit bytes without splitting a rune.
func TruncateBytes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
