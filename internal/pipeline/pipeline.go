package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ytdigest/internal/captions"
	"ytdigest/internal/logging"
	"ytdigest/internal/persist"
	"ytdigest/internal/services"
	"ytdigest/internal/summarizer"
)

// Summarizer produces a summary from caption text.
type Summarizer interface {
	Summarize(ctx context.Context, title, captions string) (summarizer.Result, error)
}

// Persister stores caption text and summaries.
type Persister interface {
	Persist(ctx context.Context, entry persist.Entry) (persist.Result, error)
	Exists(ref string) bool
}

// Recorder receives every terminal outcome, for example to keep a history.
type Recorder interface {
	RecordOutcome(ctx context.Context, outcome Outcome) error
}

// Dependencies are the stage implementations a pipeline sequences.
type Dependencies struct {
	Fetcher    captions.Fetcher
	Summarizer Summarizer
	Persister  Persister
	Recorder   Recorder
	Logger     *slog.Logger
}

// Options are the cross-cutting settings the pipeline routes to stages.
type Options struct {
	MinCaptionLength int
	SkipExisting     bool
}

// Pipeline runs fetch, validate, summarize, and persist for one video at a
// time.
type Pipeline struct {
	fetcher      captions.Fetcher
	summarizer   Summarizer
	persister    Persister
	recorder     Recorder
	minLength    int
	skipExisting bool
	logger       *slog.Logger
	now          func() time.Time
}

// New constructs a pipeline.
func New(deps Dependencies, opts Options) (*Pipeline, error) {
	if deps.Fetcher == nil {
		return nil, errors.New("pipeline: caption fetcher required")
	}
	if deps.Summarizer == nil {
		return nil, errors.New("pipeline: summarizer required")
	}
	if deps.Persister == nil {
		return nil, errors.New("pipeline: persister required")
	}
	if opts.MinCaptionLength < 0 {
		opts.MinCaptionLength = 0
	}
	return &Pipeline{
		fetcher:      deps.Fetcher,
		summarizer:   deps.Summarizer,
		persister:    deps.Persister,
		recorder:     deps.Recorder,
		minLength:    opts.MinCaptionLength,
		skipExisting: opts.SkipExisting,
		logger:       logging.NewComponentLogger(deps.Logger, "pipeline"),
		now:          time.Now,
	}, nil
}

// run tracks the state machine for one video.
type run struct {
	p       *Pipeline
	ctx     context.Context
	outcome Outcome
	state   State
	started time.Time
	stageAt time.Time
}

func (r *run) enter(state State) {
	r.state = state
	r.outcome.Transitions = append(r.outcome.Transitions, state)
	if state.Terminal() {
		return
	}
	r.ctx = services.WithStage(r.ctx, state.Stage())
	r.stageAt = r.p.now()
	logging.WithContext(r.ctx, r.p.logger).Debug("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
	)
}

func (r *run) advance() {
	logging.WithContext(r.ctx, r.p.logger).Debug("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_elapsed", r.p.now().Sub(r.stageAt)),
	)
	r.enter(r.state.next())
}

func (r *run) fail(err error) Outcome {
	failed := r.state
	reason := strings.TrimSpace(services.Reason(err))
	if reason == "" {
		reason = "unknown failure"
	}
	r.outcome.Failure = &Failure{Stage: failed, Reason: reason, Err: err}
	logging.ErrorWithContext(logging.WithContext(r.ctx, r.p.logger), "stage failed", "stage_failure",
		logging.String("failed_stage", failed.String()),
		logging.String("error_message", reason),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hintFor(failed)),
	)
	r.enter(StateFailed)
	return r.finish()
}

func (r *run) finish() Outcome {
	r.outcome.Elapsed = r.p.now().Sub(r.started)
	if r.p.recorder != nil {
		if err := r.p.recorder.RecordOutcome(r.ctx, r.outcome); err != nil {
			logging.WarnWithContext(logging.WithContext(r.ctx, r.p.logger), "failed to record outcome", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check state_dir permissions"),
			)
		}
	}
	return r.outcome
}

// Run processes one video reference to a terminal outcome. Stages run in
// strict order and the first failure ends the run; nothing is retried here.
func (p *Pipeline) Run(ctx context.Context, ref string) Outcome {
	ref = strings.TrimSpace(ref)
	r := &run{
		p:       p,
		ctx:     services.WithVideoRef(ctx, ref),
		outcome: Outcome{Ref: ref},
		started: p.now(),
	}

	if p.skipExisting && p.persister.Exists(ref) {
		r.outcome.Skipped = true
		logging.WithContext(r.ctx, p.logger).Info("outputs exist; skipping",
			logging.String(logging.FieldEventType, "video_skipped"),
		)
		return r.finish()
	}

	r.enter(StateFetching)
	if ref == "" {
		return r.fail(services.Wrap(services.ErrFetch, services.StageFetching, "", "empty video reference", nil))
	}
	track, err := p.fetcher.Fetch(r.ctx, ref)
	if err != nil {
		return r.fail(ensureMarker(err, services.ErrFetch, services.StageFetching))
	}
	r.outcome.Title = track.Title
	r.advance()

	text, err := captions.Validate(track.Text, p.minLength)
	if err != nil {
		return r.fail(err)
	}
	r.advance()

	summary, err := p.summarizer.Summarize(r.ctx, track.Title, text)
	if err != nil {
		return r.fail(ensureMarker(err, services.ErrSummarize, services.StageSummarizing))
	}
	r.advance()

	url := track.URL
	if url == "" {
		url = captions.ResolveURL(ref)
	}
	written, err := p.persister.Persist(r.ctx, persist.Entry{
		Ref:         ref,
		Title:       track.Title,
		URL:         url,
		Captions:    text,
		RawCaptions: track.Raw,
		Summary:     summary.Text,
		Thinking:    summary.Thinking,
	})
	if err != nil {
		return r.fail(ensureMarker(err, services.ErrPersist, services.StagePersisting))
	}
	r.advance()

	r.outcome.Success = &Success{
		CaptionPath:  written.CaptionPath,
		SummaryPath:  written.SummaryPath,
		DocxPath:     written.DocxPath,
		Attempt:      summary.Attempt,
		CaptionChars: captions.Length(text),
		SummaryChars: captions.Length(summary.Text),
	}
	outcome := r.finish()
	logging.WithContext(r.ctx, p.logger).Info("video summarized",
		logging.String(logging.FieldEventType, "video_complete"),
		logging.String("summary_path", written.SummaryPath),
		logging.Int("attempt", summary.Attempt),
		logging.Duration("elapsed", outcome.Elapsed),
	)
	return outcome
}

// RunBatch processes refs one at a time. A failed video never stops the
// batch; only context cancellation does. onOutcome, when set, sees each
// outcome as soon as it is known.
func (p *Pipeline) RunBatch(ctx context.Context, refs []string, onOutcome func(Outcome)) ([]Outcome, Stats) {
	return p.RunLimited(ctx, refs, Limits{}, onOutcome)
}

// Limits bound a batch. Zero fields are unlimited.
type Limits struct {
	// Successes stops the batch once this many videos succeeded or were
	// skipped because their outputs exist.
	Successes int
	// Attempts caps how many refs are tried in total.
	Attempts int
}

func (l Limits) reached(stats Stats) bool {
	if l.Successes > 0 && stats.Succeeded+stats.Skipped >= l.Successes {
		return true
	}
	return l.Attempts > 0 && stats.Total >= l.Attempts
}

// RunLimited is RunBatch with a success target and an attempt cap.
func (p *Pipeline) RunLimited(ctx context.Context, refs []string, limits Limits, onOutcome func(Outcome)) ([]Outcome, Stats) {
	started := p.now()
	var stats Stats
	outcomes := make([]Outcome, 0, len(refs))
	for _, ref := range refs {
		if ctx.Err() != nil || limits.reached(stats) {
			break
		}
		outcome := p.Run(ctx, ref)
		stats.Record(outcome)
		outcomes = append(outcomes, outcome)
		if onOutcome != nil {
			onOutcome(outcome)
		}
	}
	stats.Elapsed = p.now().Sub(started)
	return outcomes, stats
}

// ensureMarker tags errors from stage implementations that did not wrap
// their own failures.
func ensureMarker(err, marker error, stage string) error {
	if errors.Is(err, marker) {
		return err
	}
	return services.Wrap(marker, stage, "", "", err)
}

func hintFor(state State) string {
	switch state {
	case StateFetching:
		return "check the video reference and that captions exist for the configured language"
	case StateValidating:
		return "captions are shorter than captions.min_length"
	case StateSummarizing:
		return "check llm.api_key, llm.base_url, and endpoint availability"
	case StatePersisting:
		return "check that paths.captions_dir and paths.summaries_dir are writable"
	default:
		return ""
	}
}
