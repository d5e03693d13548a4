package captions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ytdigest/internal/services"
)

// Track is the caption text extracted for one video plus whatever metadata
// the source could report alongside it.
type Track struct {
	VideoID  string
	Title    string
	URL      string
	Language string
	// Text is the cleaned caption text; never mutated after the fetch returns.
	Text string
	// Raw is the subtitle track as fetched, cue numbers and timings included.
	// Format names its syntax: "vtt" or "srt".
	Raw    string
	Format string
}

// Fetcher returns caption text for a video reference. Every failure is
// reported as a services.ErrFetch error and is not retried.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (Track, error)
}

// Settings carries only the configuration a caption source needs.
type Settings struct {
	Source            string
	Language          string
	YtDlpBinary       string
	TimeoutSeconds    int
	RequestsPerSecond float64
	TimedTextBaseURL  string
}

// Source names accepted by Settings.Source.
const (
	SourceYtDlp     = "ytdlp"
	SourceTimedText = "timedtext"
)

// NewFetcher builds the caption source selected by settings.
func NewFetcher(settings Settings, logger *slog.Logger) (Fetcher, error) {
	switch strings.ToLower(strings.TrimSpace(settings.Source)) {
	case "", SourceYtDlp:
		return NewYtDlp(settings, logger), nil
	case SourceTimedText:
		return NewTimedText(settings, logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "", "captions", fmt.Sprintf("unsupported source %q", settings.Source), nil)
	}
}

func fetchError(op, message string, err error) error {
	return services.Wrap(services.ErrFetch, services.StageFetching, op, message, err)
}
