package captions

import "testing"

func TestParseVideoID(t *testing.T) {
	cases := []struct {
		ref  string
		want string
		ok   bool
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10", "dQw4w9WgXcQ", true},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/live/dQw4w9WgXcQ?feature=share", "dQw4w9WgXcQ", true},
		{"abc123", "", false},
		{"https://example.com/watch?v=dQw4w9WgXcQ", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseVideoID(tc.ref)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseVideoID(%q): expected (%q, %v), got (%q, %v)", tc.ref, tc.want, tc.ok, got, ok)
		}
	}
}

func TestResolveURL(t *testing.T) {
	if got := ResolveURL("dQw4w9WgXcQ"); got != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Fatalf("expected watch url, got %q", got)
	}
	if got := ResolveURL(" https://vimeo.com/1 "); got != "https://vimeo.com/1" {
		t.Fatalf("expected passthrough, got %q", got)
	}
}
