package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFetch         = errors.New("fetch error")
	ErrValidation    = errors.New("validation error")
	ErrSummarize     = errors.New("summarize error")
	ErrPersist       = errors.New("persist error")
	ErrConfiguration = errors.New("configuration error")
)

// Pipeline stage names shared by error classification, logging, and history.
const (
	StageFetching    = "fetching"
	StageValidating  = "validating"
	StageSummarizing = "summarizing"
	StagePersisting  = "persisting"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrConfiguration
	}
	if detail == "" && err != nil {
		return fmt.Errorf("%w: %w", marker, err)
	}
	if detail == "" {
		detail = "unspecified failure"
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// StageOf maps a marker-tagged error to the pipeline stage that produced it.
// Unknown errors report an empty stage.
func StageOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFetch):
		return StageFetching
	case errors.Is(err, ErrValidation):
		return StageValidating
	case errors.Is(err, ErrSummarize):
		return StageSummarizing
	case errors.Is(err, ErrPersist):
		return StagePersisting
	default:
		return ""
	}
}

// Reason strips the marker and stage prefix from a wrapped error so outcome
// lines read naturally.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, marker := range []error{ErrFetch, ErrValidation, ErrSummarize, ErrPersist, ErrConfiguration} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			msg = strings.TrimPrefix(msg, prefix)
			break
		}
	}
	if stage := StageOf(err); stage != "" {
		msg = strings.TrimPrefix(msg, stage+": ")
	}
	return msg
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	return strings.Join(parts, ": ")
}
