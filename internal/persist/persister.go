package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"ytdigest/internal/fileutil"
	"ytdigest/internal/logging"
	"ytdigest/internal/services"
)

// Write targets reported in WriteError.
const (
	TargetCaption = "caption"
	TargetSummary = "summary"
	TargetDocx    = "docx"
)

const fileMode = 0o644

// WriteError records one failed output write.
type WriteError struct {
	Target string
	Path   string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s %s: %v", e.Target, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Result lists the files written for one video.
type Result struct {
	CaptionPath string
	SummaryPath string
	DocxPath    string
}

// Options selects the output locations and formats.
type Options struct {
	CaptionsDir  string
	SummariesDir string
	Docx         bool
}

// Persister writes caption and summary files named by NameFor.
type Persister struct {
	captionsDir  string
	summariesDir string
	docx         bool
	logger       *slog.Logger
}

// New constructs a persister.
func New(opts Options, logger *slog.Logger) *Persister {
	return &Persister{
		captionsDir:  opts.CaptionsDir,
		summariesDir: opts.SummariesDir,
		docx:         opts.Docx,
		logger:       logging.NewComponentLogger(logger, "persist"),
	}
}

// CaptionPath returns where the raw subtitle track for ref is stored.
func (p *Persister) CaptionPath(ref string) string {
	return filepath.Join(p.captionsDir, NameFor(ref)+".txt")
}

// SummaryPath returns where the markdown summary for ref is stored.
func (p *Persister) SummaryPath(ref string) string {
	return filepath.Join(p.summariesDir, NameFor(ref)+"_summary.md")
}

// DocxPath returns where the Word copy of the summary for ref is stored.
func (p *Persister) DocxPath(ref string) string {
	return filepath.Join(p.summariesDir, NameFor(ref)+"_summary.docx")
}

// Exists reports whether both the caption and summary files for ref exist.
func (p *Persister) Exists(ref string) bool {
	return fileutil.Exists(p.CaptionPath(ref)) && fileutil.Exists(p.SummaryPath(ref))
}

// Persist writes the raw caption file and the summary document. Each write is
// attempted regardless of whether the others failed; failures are joined
// into a single services.ErrPersist error listing every WriteError. Repeated
// calls for the same reference overwrite the same files.
func (p *Persister) Persist(ctx context.Context, e Entry) (Result, error) {
	result := Result{
		CaptionPath: p.CaptionPath(e.Ref),
		SummaryPath: p.SummaryPath(e.Ref),
	}
	logger := logging.WithContext(ctx, p.logger)

	var failures []error
	record := func(target, path string, err error) {
		if err == nil {
			logger.Debug("output written", logging.String("target", target), logging.String("path", path))
			return
		}
		failures = append(failures, &WriteError{Target: target, Path: path, Err: err})
	}

	captionBody := e.RawCaptions
	if strings.TrimSpace(captionBody) == "" {
		captionBody = e.Captions
	}
	record(TargetCaption, result.CaptionPath, fileutil.WriteFileAtomic(result.CaptionPath, []byte(captionBody), fileMode))
	record(TargetSummary, result.SummaryPath, fileutil.WriteFileAtomic(result.SummaryPath, []byte(RenderMarkdown(e)), fileMode))
	if p.docx {
		docxPath := p.DocxPath(e.Ref)
		err := writeDocx(docxPath, e)
		record(TargetDocx, docxPath, err)
		if err == nil {
			result.DocxPath = docxPath
		}
	}

	if len(failures) > 0 {
		return result, services.Wrap(services.ErrPersist, services.StagePersisting, "", describeFailures(failures), errors.Join(failures...))
	}
	return result, nil
}

// FailedTargets lists the targets named by WriteErrors inside err.
func FailedTargets(err error) []string {
	var targets []string
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if we, ok := err.(*WriteError); ok {
			targets = append(targets, we.Target)
			return
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return targets
}

func describeFailures(failures []error) string {
	targets := make([]string, 0, len(failures))
	for _, failure := range failures {
		var we *WriteError
		if errors.As(failure, &we) {
			targets = append(targets, we.Target)
		}
	}
	return strings.Join(targets, ", ") + " write failed"
}
