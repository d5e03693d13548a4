package logging

import (
	"context"
	"log/slog"

	"ytdigest/internal/services"
)

// Structured field keys shared by every component.
const (
	FieldComponent = "component"
	FieldVideoRef  = "video_ref"
	FieldStage     = "stage"
	FieldRunID     = "run_id"
	// FieldEventType classifies a record: stage_start, stage_complete,
	// stage_failure, llm_retry and so on.
	FieldEventType = "event_type"
	// FieldErrorHint carries a short next step for the operator.
	FieldErrorHint = "error_hint"
)

// WithContext returns logger tagged with the video reference, pipeline stage
// and run id carried by ctx. Keys missing from ctx are left off.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var args []any
	if ref, ok := services.VideoRefFromContext(ctx); ok {
		args = append(args, slog.String(FieldVideoRef, ref))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		args = append(args, slog.String(FieldStage, stage))
	}
	if id, ok := services.RunIDFromContext(ctx); ok {
		args = append(args, slog.String(FieldRunID, id))
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
