package summarizer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"ytdigest/internal/logging"
	"ytdigest/internal/services"
	"ytdigest/internal/services/llm"
)

// Completer is the slice of the llm client the summarizer depends on.
type Completer interface {
	Complete(ctx context.Context, prompt string) (llm.Completion, error)
}

// Result is the generated summary plus metadata about how it was produced.
type Result struct {
	Text     string
	Thinking string
	Model    string
	// Attempt is the 1-based attempt index that succeeded.
	Attempt int
	Elapsed time.Duration
}

// Summarizer turns caption text into a summary through a Completer.
type Summarizer struct {
	client Completer
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a summarizer around client.
func New(client Completer, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		client: client,
		logger: logging.NewComponentLogger(logger, "summarizer"),
		now:    time.Now,
	}
}

// Summarize builds the prompt and calls the inference endpoint. The retry
// loop lives in the client; every failure it reports is wrapped as a
// services.ErrSummarize error.
func (s *Summarizer) Summarize(ctx context.Context, title, captions string) (Result, error) {
	if s == nil || s.client == nil {
		return Result{}, services.Wrap(services.ErrSummarize, services.StageSummarizing, "summarize", "no inference client configured", nil)
	}
	started := s.now()
	completion, err := s.client.Complete(ctx, BuildPrompt(title, captions))
	elapsed := s.now().Sub(started)
	if err != nil {
		return Result{}, services.Wrap(services.ErrSummarize, services.StageSummarizing, "", "", err)
	}
	text := strings.TrimSpace(completion.Content)
	if text == "" {
		return Result{}, services.Wrap(services.ErrSummarize, services.StageSummarizing, "", "empty summary", nil)
	}
	logging.WithContext(ctx, s.logger).Debug("summary generated",
		logging.Int("attempt", completion.Attempt),
		logging.Duration("elapsed", elapsed),
		logging.Int("summary_chars", len([]rune(text))),
		logging.Bool("has_thinking", completion.Reasoning != ""),
	)
	return Result{
		Text:     text,
		Thinking: strings.TrimSpace(completion.Reasoning),
		Model:    completion.Model,
		Attempt:  completion.Attempt,
		Elapsed:  elapsed,
	}, nil
}
