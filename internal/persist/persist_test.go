package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ytdigest/internal/services"
)

func TestNameFor(t *testing.T) {
	cases := []struct {
		ref  string
		want string
	}{
		{"abc123", "abc123"},
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"  short1  ", "short1"},
	}
	for _, tc := range cases {
		if got := NameFor(tc.ref); got != tc.want {
			t.Fatalf("NameFor(%q): expected %q, got %q", tc.ref, tc.want, got)
		}
	}
}

func TestNameForAlteredRefsAreDistinct(t *testing.T) {
	a := NameFor("https://vimeo.com/1")
	b := NameFor("https:__vimeo.com_1")
	if a == b {
		t.Fatalf("expected distinct names, both were %q", a)
	}
	if strings.ContainsAny(a, `/:`) {
		t.Fatalf("expected sanitised name, got %q", a)
	}
	if NameFor("https://vimeo.com/1") != a {
		t.Fatal("expected NameFor to be deterministic")
	}
	if got := NameFor("..."); !strings.HasPrefix(got, "video-") {
		t.Fatalf("expected hashed fallback, got %q", got)
	}
}

func TestNameForLongRefStaysBounded(t *testing.T) {
	got := NameFor(strings.Repeat("界/", 200))
	if len(got) > 200 {
		t.Fatalf("expected at most 200 bytes, got %d", len(got))
	}
}

func TestRenderMarkdownLayout(t *testing.T) {
	doc := RenderMarkdown(Entry{
		Ref:      "abc123",
		Title:    "Title",
		URL:      "https://example.com/v",
		Captions: "caption text",
		Summary:  "这是总结",
		Thinking: "reasoning",
	})
	order := []string{"# Title", "**视频链接**: [https://example.com/v](https://example.com/v)", "## AI思考过程", "```\nreasoning\n```", "## AI总结", "这是总结", "## 字幕内容", "caption text"}
	last := -1
	for _, part := range order {
		idx := strings.Index(doc, part)
		if idx <= last {
			t.Fatalf("expected %q after previous section, document:\n%s", part, doc)
		}
		last = idx
	}

	bare := RenderMarkdown(Entry{Ref: "abc123", Captions: "c", Summary: "s"})
	if !strings.HasPrefix(bare, "# abc123\n") || strings.Contains(bare, "AI思考过程") || strings.Contains(bare, "视频链接") {
		t.Fatalf("unexpected minimal document:\n%s", bare)
	}
}

func TestPersistIsIdempotent(t *testing.T) {
	base := t.TempDir()
	p := New(Options{CaptionsDir: filepath.Join(base, "captions"), SummariesDir: filepath.Join(base, "summaries")}, nil)
	entry := Entry{Ref: "abc123", Captions: strings.Repeat("a", 500), Summary: "这是总结"}

	for i := 0; i < 2; i++ {
		if _, err := p.Persist(context.Background(), entry); err != nil {
			t.Fatalf("Persist run %d: %v", i+1, err)
		}
	}

	for _, dir := range []string{"captions", "summaries"} {
		entries, err := os.ReadDir(filepath.Join(base, dir))
		if err != nil {
			t.Fatalf("read %s: %v", dir, err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected exactly one file in %s, got %d", dir, len(entries))
		}
	}
	caption, err := os.ReadFile(p.CaptionPath("abc123"))
	if err != nil {
		t.Fatalf("read caption: %v", err)
	}
	if string(caption) != entry.Captions {
		t.Fatal("expected caption file to hold the caption text verbatim")
	}
	if !p.Exists("abc123") {
		t.Fatal("expected Exists to report both files")
	}
}

func TestPersistWritesRawTrackToCaptionFile(t *testing.T) {
	base := t.TempDir()
	p := New(Options{CaptionsDir: filepath.Join(base, "captions"), SummariesDir: filepath.Join(base, "summaries")}, nil)
	raw := "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nhello\n"
	entry := Entry{Ref: "abc123", Captions: "hello", RawCaptions: raw, Summary: "这是总结"}

	if _, err := p.Persist(context.Background(), entry); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	caption, err := os.ReadFile(p.CaptionPath("abc123"))
	if err != nil {
		t.Fatalf("read caption: %v", err)
	}
	if string(caption) != raw {
		t.Fatalf("expected raw track in caption file, got %q", caption)
	}
	summary, err := os.ReadFile(p.SummaryPath("abc123"))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if !strings.Contains(string(summary), "## 字幕内容\n\nhello") || strings.Contains(string(summary), "WEBVTT") {
		t.Fatalf("expected cleaned text in summary document, got:\n%s", summary)
	}
}

func TestPersistAttemptsBothWrites(t *testing.T) {
	base := t.TempDir()
	blocked := filepath.Join(base, "captions")
	if err := os.WriteFile(blocked, []byte("not a directory"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	p := New(Options{CaptionsDir: blocked, SummariesDir: filepath.Join(base, "summaries")}, nil)

	result, err := p.Persist(context.Background(), Entry{Ref: "abc123", Captions: "c", Summary: "s"})
	if !errors.Is(err, services.ErrPersist) {
		t.Fatalf("expected persist error, got %v", err)
	}
	var we *WriteError
	if !errors.As(err, &we) || we.Target != TargetCaption {
		t.Fatalf("expected caption write error, got %v", err)
	}
	if targets := FailedTargets(err); len(targets) != 1 || targets[0] != TargetCaption {
		t.Fatalf("expected only caption to fail, got %v", targets)
	}
	if _, statErr := os.Stat(result.SummaryPath); statErr != nil {
		t.Fatalf("expected summary to be written despite caption failure: %v", statErr)
	}
}

func TestPersistWritesDocx(t *testing.T) {
	base := t.TempDir()
	p := New(Options{CaptionsDir: base, SummariesDir: base, Docx: true}, nil)

	result, err := p.Persist(context.Background(), Entry{Ref: "abc123", Title: "T", Captions: "c", Summary: "- **bold** point"})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	data, err := os.ReadFile(result.DocxPath)
	if err != nil {
		t.Fatalf("read docx: %v", err)
	}
	if !strings.HasPrefix(string(data), "PK") {
		t.Fatal("expected docx to be a zip archive")
	}
	leftovers, _ := filepath.Glob(filepath.Join(base, ".ytdigest-*"))
	if len(leftovers) != 0 {
		t.Fatalf("expected no temp files, got %v", leftovers)
	}
}
