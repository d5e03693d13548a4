package captions

import (
	"fmt"
	"unicode/utf8"

	"ytdigest/internal/services"
)

// Length counts caption length in Unicode code points.
func Length(text string) int {
	return utf8.RuneCountInString(text)
}

// Validate rejects caption text shorter than minLen code points. It is a pure
// gate: accepted text is returned unchanged and nothing is ever truncated.
func Validate(text string, minLen int) (string, error) {
	if n := Length(text); n < minLen {
		return "", services.Wrap(services.ErrValidation, services.StageValidating, "",
			fmt.Sprintf("caption too short (%d < %d characters)", n, minLen), nil)
	}
	return text, nil
}
