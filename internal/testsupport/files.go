package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ytdigest/internal/captions"
	"ytdigest/internal/services"
)

// CaptionText returns n code points of repeating caption-like text.
func CaptionText(n int) string {
	const pattern = "the quick brown fox jumps over the lazy dog "
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(pattern)
	}
	return b.String()[:n]
}

// WriteRefList writes one reference per line to path.
func WriteRefList(t testing.TB, path string, refs ...string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(refs, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// StaticCaptions is a caption fetcher backed by a fixed map of refs to text.
// Raw optionally supplies the subtitle file contents per ref. Unknown refs
// fail with a fetch error.
type StaticCaptions struct {
	Tracks map[string]string
	Raw    map[string]string
	Titles map[string]string
	Calls  []string
}

// Fetch implements captions.Fetcher.
func (s *StaticCaptions) Fetch(_ context.Context, ref string) (captions.Track, error) {
	s.Calls = append(s.Calls, ref)
	text, ok := s.Tracks[ref]
	if !ok {
		return captions.Track{}, services.Wrap(services.ErrFetch, services.StageFetching, "static", "no captions available", nil)
	}
	return captions.Track{Title: s.Titles[ref], Text: text, Raw: s.Raw[ref], Format: "srt"}, nil
}
