package captions

import "testing"

func TestCleanSRT(t *testing.T) {
	raw := "1\n00:00:00,000 --> 00:00:02,000\nHello <i>world</i>\n\n2\n00:00:02,000 --> 00:00:04,000\nHello world\n\n3\n00:00:04,000 --> 00:00:06,000\nsecond   line\n"
	got := Clean(raw)
	if got != "Hello world second line" {
		t.Fatalf("expected cleaned srt, got %q", got)
	}
}

func TestCleanVTT(t *testing.T) {
	raw := "WEBVTT\nKind: captions\nLanguage: en\n\nNOTE generated\n\n00:00:00.000 --> 00:00:01.000 align:start\n<c>rolling</c> text\n\n00:00:01.000 --> 00:00:02.000\nrolling text\nnext part\n"
	got := Clean(raw)
	if got != "rolling text next part" {
		t.Fatalf("expected cleaned vtt, got %q", got)
	}
}

func TestCleanPlainTextAndNFC(t *testing.T) {
	// "e" followed by a combining acute accent composes to a single rune.
	got := Clean("  cafe\u0301\n\n  menu ")
	if got != "caf\u00e9 menu" {
		t.Fatalf("expected NFC text, got %q", got)
	}
	if Clean("") != "" {
		t.Fatal("expected empty output for empty input")
	}
}
