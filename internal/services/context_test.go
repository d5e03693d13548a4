package services_test

import (
	"context"
	"testing"

	"ytdigest/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithVideoRef(ctx, "abc123")
	ctx = services.WithStage(ctx, services.StageSummarizing)
	ctx = services.WithRunID(ctx, "run-123")

	if ref, ok := services.VideoRefFromContext(ctx); !ok || ref != "abc123" {
		t.Fatalf("unexpected video ref: %v %v", ref, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != services.StageSummarizing {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-123" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	ctx = services.WithVideoRef(ctx, "")
	if _, ok := services.VideoRefFromContext(ctx); ok {
		t.Fatal("expected no video ref value")
	}
}
