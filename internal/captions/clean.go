package captions

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	htmlTagPattern  = regexp.MustCompile(`<[^>]+>`)
	cueIDPattern    = regexp.MustCompile(`^\d+$`)
	metadataPattern = regexp.MustCompile(`^(WEBVTT|Kind:|Language:|NOTE\b|STYLE\b|REGION\b)`)
)

// Clean converts raw SRT or WebVTT subtitle content into a single line of
// plain text. Cue numbers, timing lines, headers, inline markup, and lines
// repeated by rolling auto-captions are dropped; whitespace is collapsed and
// the result is NFC-normalised. Plain text input passes through with only
// whitespace normalisation.
func Clean(raw string) string {
	raw = strings.TrimPrefix(raw, "\uFEFF")
	lines := strings.Split(raw, "\n")
	kept := make([]string, 0, len(lines))
	prev := ""
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || cueIDPattern.MatchString(line) || strings.Contains(line, "-->") || metadataPattern.MatchString(line) {
			continue
		}
		line = strings.TrimSpace(htmlTagPattern.ReplaceAllString(line, ""))
		if line == "" || line == prev {
			continue
		}
		kept = append(kept, line)
		prev = line
	}
	text := strings.Join(strings.Fields(strings.Join(kept, " ")), " ")
	return norm.NFC.String(text)
}
