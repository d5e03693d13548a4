package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"ytdigest/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrFetch, services.StageFetching, "yt-dlp", "no caption track", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrFetch) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"fetching", "yt-dlp", "no caption track", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrValidation, services.StageValidating, "", "caption too short", nil)
	if got := err.Error(); got != "validation error: validating: caption too short" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestStageOfMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"fetch", services.Wrap(services.ErrFetch, "", "", "x", nil), services.StageFetching},
		{"validation", services.Wrap(services.ErrValidation, "", "", "x", nil), services.StageValidating},
		{"summarize", services.Wrap(services.ErrSummarize, "", "", "x", nil), services.StageSummarizing},
		{"persist", fmt.Errorf("outer: %w", services.Wrap(services.ErrPersist, "", "", "x", nil)), services.StagePersisting},
		{"unknown", errors.New("plain"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.StageOf(tt.err); got != tt.want {
				t.Fatalf("expected stage %q, got %q", tt.want, got)
			}
		})
	}
}

func TestReasonStripsMarkerAndStage(t *testing.T) {
	err := services.Wrap(services.ErrValidation, services.StageValidating, "", "caption too short (10 < 100)", nil)
	if got := services.Reason(err); got != "caption too short (10 < 100)" {
		t.Fatalf("unexpected reason %q", got)
	}
	if got := services.Reason(errors.New("plain failure")); got != "plain failure" {
		t.Fatalf("unexpected reason for plain error %q", got)
	}
}

func TestWrapWithoutDetailKeepsCauseMessage(t *testing.T) {
	cause := errors.New("llm.api_key is required")
	err := services.Wrap(services.ErrConfiguration, "", "", "", cause)
	if err.Error() != "configuration error: llm.api_key is required" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, services.ErrConfiguration) || !errors.Is(err, cause) {
		t.Fatalf("expected marker and cause to match, got %v", err)
	}
}
