package pipeline

import (
	"fmt"
	"time"
)

// Success describes the files written for a completed run.
type Success struct {
	CaptionPath string
	SummaryPath string
	DocxPath    string
	// Attempt is the inference attempt that produced the summary.
	Attempt      int
	CaptionChars int
	SummaryChars int
}

// Failure names the stage that failed and why.
type Failure struct {
	Stage  State
	Reason string
	Err    error
}

// Outcome is the single terminal result of one pipeline run. Exactly one of
// Success, Failure is set unless the run was Skipped.
type Outcome struct {
	Ref         string
	Title       string
	Success     *Success
	Failure     *Failure
	Skipped     bool
	Transitions []State
	Elapsed     time.Duration
}

// OK reports whether the run succeeded or was skipped.
func (o Outcome) OK() bool {
	return o.Failure == nil
}

// Status is a short lowercase label: success, failed, or skipped.
func (o Outcome) Status() string {
	switch {
	case o.Skipped:
		return "skipped"
	case o.Failure != nil:
		return "failed"
	default:
		return "success"
	}
}

// Line renders the human-readable one-line summary printed per video.
func (o Outcome) Line() string {
	switch {
	case o.Skipped:
		return fmt.Sprintf("SKIP %s: outputs already exist", o.Ref)
	case o.Failure != nil:
		return fmt.Sprintf("FAIL %s: %s: %s", o.Ref, o.Failure.Stage, o.Failure.Reason)
	case o.Success != nil:
		return fmt.Sprintf("OK   %s: %s (attempt %d, %s)", o.Ref, o.Success.SummaryPath, o.Success.Attempt, o.Elapsed.Round(time.Millisecond))
	default:
		return fmt.Sprintf("???  %s", o.Ref)
	}
}

func (o Outcome) String() string {
	return fmt.Sprintf("%s[%s]", o.Ref, o.Status())
}
