package captions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ytdigest/internal/logging"
)

const (
	defaultTimedTextURL = "https://www.youtube.com/api/timedtext"
	timedTextUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	maxTimedTextBytes   = 16 << 20
)

// TimedTextOption configures the timedtext source.
type TimedTextOption func(*TimedText)

// WithHTTPClient overrides the HTTP client used for timedtext requests.
func WithHTTPClient(client *http.Client) TimedTextOption {
	return func(t *TimedText) {
		if client != nil {
			t.http = client
		}
	}
}

// TimedText queries YouTube's timedtext endpoint directly. It is used where
// yt-dlp is unavailable and only accepts references that resolve to a
// video id.
type TimedText struct {
	baseURL  string
	language string
	timeout  time.Duration
	http     *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

type timedTextResponse struct {
	Events []timedTextEvent `json:"events"`
}

type timedTextEvent struct {
	StartMs    int64              `json:"tStartMs"`
	DurationMs int64              `json:"dDurationMs"`
	Segs       []timedTextSegment `json:"segs,omitempty"`
}

type timedTextSegment struct {
	UTF8 string `json:"utf8"`
}

// NewTimedText constructs a timedtext source. Requests are paced by a token
// bucket at settings.RequestsPerSecond.
func NewTimedText(settings Settings, logger *slog.Logger, opts ...TimedTextOption) *TimedText {
	base := strings.TrimRight(strings.TrimSpace(settings.TimedTextBaseURL), "/")
	if base == "" {
		base = defaultTimedTextURL
	}
	language := strings.TrimSpace(settings.Language)
	if language == "" {
		language = "en"
	}
	limit := rate.Inf
	if settings.RequestsPerSecond > 0 {
		limit = rate.Limit(settings.RequestsPerSecond)
	}
	t := &TimedText{
		baseURL:  base,
		language: language,
		timeout:  time.Duration(settings.TimeoutSeconds) * time.Second,
		http:     &http.Client{},
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logging.NewComponentLogger(logger, "captions"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Fetch returns manually authored captions for the configured language,
// falling back to the automatic (ASR) track when none exist.
func (t *TimedText) Fetch(ctx context.Context, ref string) (Track, error) {
	id, ok := ParseVideoID(ref)
	if !ok {
		return Track{}, fetchError("timedtext", fmt.Sprintf("cannot determine video id from %q", ref), nil)
	}

	var text, raw string
	for _, kind := range []string{"", "asr"} {
		var err error
		text, raw, err = t.request(ctx, id, kind)
		if err != nil {
			return Track{}, err
		}
		if text != "" {
			break
		}
		t.logger.Debug("timedtext track empty", logging.String("video_id", id), logging.String("kind", kind))
	}
	if text == "" {
		return Track{}, fetchError("timedtext", fmt.Sprintf("no %s captions available for %s", t.language, id), nil)
	}
	return Track{
		VideoID:  id,
		URL:      WatchURL(id),
		Language: t.language,
		Text:     text,
		Raw:      raw,
		Format:   "srt",
	}, nil
}

func (t *TimedText) request(ctx context.Context, id, kind string) (string, string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", "", fetchError("timedtext", "rate limiter", err)
	}
	reqCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	params := url.Values{}
	params.Set("v", id)
	params.Set("lang", t.language)
	params.Set("fmt", "json3")
	if kind != "" {
		params.Set("kind", kind)
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, t.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", "", fetchError("timedtext", "build request", err)
	}
	req.Header.Set("User-Agent", timedTextUserAgent)

	resp, err := t.http.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", "", fetchError("timedtext", fmt.Sprintf("timed out after %s", t.timeout), err)
		}
		return "", "", fetchError("timedtext", "request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", "", fetchError("timedtext", fmt.Sprintf("captions not found for video %s in language %s", id, t.language), nil)
	case http.StatusForbidden:
		return "", "", fetchError("timedtext", "access denied: video region restricted or captions disabled", nil)
	case http.StatusTooManyRequests:
		return "", "", fetchError("timedtext", "rate limited by YouTube", nil)
	default:
		return "", "", fetchError("timedtext", fmt.Sprintf("timedtext API returned status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTimedTextBytes))
	if err != nil {
		return "", "", fetchError("timedtext", "read response", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", "", nil
	}
	return parseTimedText(body)
}

// parseTimedText decodes a json3 body into cleaned caption text and an SRT
// rendering of the timed events.
func parseTimedText(data []byte) (string, string, error) {
	var resp timedTextResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", "", fetchError("timedtext", "parse timedtext response", err)
	}
	lines := make([]string, 0, len(resp.Events))
	var srt strings.Builder
	cue := 0
	for _, event := range resp.Events {
		if len(event.Segs) == 0 {
			continue
		}
		var b strings.Builder
		for _, seg := range event.Segs {
			b.WriteString(seg.UTF8)
		}
		line := b.String()
		lines = append(lines, line)
		if strings.TrimSpace(line) == "" {
			continue
		}
		cue++
		fmt.Fprintf(&srt, "%d\n%s --> %s\n%s\n\n", cue,
			srtTimestamp(event.StartMs), srtTimestamp(event.StartMs+event.DurationMs), strings.TrimSpace(line))
	}
	return Clean(strings.Join(lines, "\n")), srt.String(), nil
}

func srtTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	d := time.Duration(ms) * time.Millisecond
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	sec := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, sec, ms%1000)
}
