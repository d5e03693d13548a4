package pipeline

import (
	"log/slog"
	"net/http"
	"time"

	"ytdigest/internal/captions"
	"ytdigest/internal/config"
	"ytdigest/internal/logging"
	"ytdigest/internal/persist"
	"ytdigest/internal/services/llm"
	"ytdigest/internal/summarizer"
)

// BuildOption customises the components Build wires together.
type BuildOption func(*buildOptions)

type buildOptions struct {
	observer   func(llm.Delta)
	httpClient *http.Client
	fetcher    captions.Fetcher
	recorder   Recorder
	skip       *bool
}

// WithStreamObserver echoes streamed summary fragments as they arrive.
func WithStreamObserver(observer func(llm.Delta)) BuildOption {
	return func(o *buildOptions) { o.observer = observer }
}

// WithHTTPClient overrides the HTTP client used for inference requests.
func WithHTTPClient(client *http.Client) BuildOption {
	return func(o *buildOptions) { o.httpClient = client }
}

// WithFetcher replaces the configured caption source.
func WithFetcher(fetcher captions.Fetcher) BuildOption {
	return func(o *buildOptions) { o.fetcher = fetcher }
}

// WithRecorder attaches an outcome recorder.
func WithRecorder(recorder Recorder) BuildOption {
	return func(o *buildOptions) { o.recorder = recorder }
}

// WithSkipExisting overrides output.skip_existing.
func WithSkipExisting(skip bool) BuildOption {
	return func(o *buildOptions) { o.skip = &skip }
}

// Build wires a pipeline from configuration. Each component receives only
// the settings it uses.
func Build(cfg *config.Config, logger *slog.Logger, opts ...BuildOption) (*Pipeline, error) {
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}

	fetcher := bo.fetcher
	if fetcher == nil {
		var err error
		fetcher, err = captions.NewFetcher(CaptionSettings(cfg), logger)
		if err != nil {
			return nil, err
		}
	}

	client := NewLLMClient(cfg, logger, bo.observer, bo.httpClient)
	skip := cfg.Output.SkipExisting
	if bo.skip != nil {
		skip = *bo.skip
	}

	return New(Dependencies{
		Fetcher:    fetcher,
		Summarizer: summarizer.New(client, logger),
		Persister: persist.New(persist.Options{
			CaptionsDir:  cfg.Paths.CaptionsDir,
			SummariesDir: cfg.Paths.SummariesDir,
			Docx:         cfg.WantsFormat(config.FormatDocx),
		}, logger),
		Recorder: bo.recorder,
		Logger:   logger,
	}, Options{
		MinCaptionLength: cfg.Captions.MinLength,
		SkipExisting:     skip,
	})
}

// CaptionSettings routes the caption fields of cfg.
func CaptionSettings(cfg *config.Config) captions.Settings {
	return captions.Settings{
		Source:            cfg.Captions.Source,
		Language:          cfg.Captions.Language,
		YtDlpBinary:       cfg.Captions.YtDlpBinary,
		TimeoutSeconds:    cfg.Captions.TimeoutSeconds,
		RequestsPerSecond: cfg.Captions.RequestsPerSecond,
		TimedTextBaseURL:  cfg.Captions.TimedTextBaseURL,
	}
}

// LLMSettings routes the inference fields of cfg.
func LLMSettings(cfg *config.Config) llm.Config {
	return llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		Stream:         cfg.LLM.Stream,
		EnableThinking: cfg.LLM.EnableThinking,
		ThinkingBudget: cfg.LLM.ThinkingBudget,
	}
}

// NewLLMClient builds the inference client with the configured retry budget.
func NewLLMClient(cfg *config.Config, logger *slog.Logger, observer func(llm.Delta), httpClient *http.Client) *llm.Client {
	opts := []llm.Option{
		llm.WithRetryMaxAttempts(cfg.LLM.MaxRetryCount),
		llm.WithRetryBackoff(
			time.Duration(cfg.LLM.RetryBaseDelayMS)*time.Millisecond,
			time.Duration(cfg.LLM.RetryMaxDelayMS)*time.Millisecond,
		),
		llm.WithLogger(logging.NewComponentLogger(logger, "llm")),
	}
	if observer != nil {
		opts = append(opts, llm.WithStreamObserver(observer))
	}
	if httpClient != nil {
		opts = append(opts, llm.WithHTTPClient(httpClient))
	}
	return llm.NewClient(LLMSettings(cfg), opts...)
}
