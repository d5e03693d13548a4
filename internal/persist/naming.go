package persist

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"ytdigest/internal/captions"
	"ytdigest/internal/textutil"
)

const hashSuffixLen = 8

// NameFor derives the output file stem for a video reference. It is pure and
// deterministic: YouTube URLs and bare ids map to the video id; any other
// reference is sanitised, and when sanitising changed it a short hash of the
// raw reference is appended so distinct references never share a name.
func NameFor(ref string) string {
	ref = strings.TrimSpace(ref)
	if id, ok := captions.ParseVideoID(ref); ok {
		return id
	}
	hash := shortHash(ref)
	name := textutil.SanitizeFileName(ref)
	if name == "" {
		return "video-" + hash
	}
	if name != ref {
		name = textutil.TruncateBytes(name, textutil.MaxFileNameBytes-hashSuffixLen-1)
		name = strings.TrimRight(name, " .") + "-" + hash
	}
	return name
}

func shortHash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:hashSuffixLen]
}
