package captions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"ytdigest/internal/logging"
	"ytdigest/internal/services"
)

// Search orderings accepted by SearchQuery.Sort.
const (
	SortViews      = "views"
	SortRelevance  = "relevance"
	SortUploadDate = "upload_date"
)

// Duration buckets accepted by SearchQuery.Duration.
const (
	DurationShort  = "short"
	DurationMedium = "medium"
	DurationLong   = "long"
)

// resultMarker prefixes each search hit yt-dlp prints.
const resultMarker = "ytdigest-result:"

// SearchQuery selects videos by keyword.
type SearchQuery struct {
	Keyword string
	// Sort is one of SortViews (default), SortRelevance, SortUploadDate.
	Sort string
	// Duration optionally restricts length: short is under 4 minutes, medium
	// 4 to 20 minutes, long over 20 minutes.
	Duration string
	Limit    int
}

// Normalize applies defaults and rejects unknown sort or duration values.
func (q SearchQuery) Normalize() (SearchQuery, error) {
	q.Keyword = strings.TrimSpace(q.Keyword)
	q.Sort = strings.ToLower(strings.TrimSpace(q.Sort))
	q.Duration = strings.ToLower(strings.TrimSpace(q.Duration))
	if q.Keyword == "" {
		return q, errors.New("search keyword must not be empty")
	}
	if q.Limit <= 0 {
		return q, errors.New("search limit must be positive")
	}
	switch q.Sort {
	case "":
		q.Sort = SortViews
	case SortViews, SortRelevance, SortUploadDate:
	default:
		return q, fmt.Errorf("unsupported sort %q (use views, relevance or upload_date)", q.Sort)
	}
	switch q.Duration {
	case "", DurationShort, DurationMedium, DurationLong:
	default:
		return q, fmt.Errorf("unsupported duration %q (use short, medium or long)", q.Duration)
	}
	return q, nil
}

// Searcher lists YouTube video ids for a keyword through yt-dlp's flat
// search, without touching any video page.
type Searcher struct {
	binary  string
	timeout time.Duration
	exec    Executor
	logger  *slog.Logger
}

// NewSearcher constructs a yt-dlp backed searcher. It honours WithExecutor.
func NewSearcher(settings Settings, logger *slog.Logger, opts ...YtDlpOption) *Searcher {
	y := NewYtDlp(settings, logger, opts...)
	return &Searcher{
		binary:  y.binary,
		timeout: y.timeout,
		exec:    y.exec,
		logger:  logging.NewComponentLogger(logger, "search"),
	}
}

type searchHit struct {
	id    string
	views int64
}

// Search returns up to q.Limit distinct video ids in the requested order.
func (s *Searcher) Search(ctx context.Context, q SearchQuery) ([]string, error) {
	q, err := q.Normalize()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "search", "", err)
	}

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	args := searchArgs(q)
	var mu sync.Mutex
	var lines []string
	var hits []searchHit
	seen := make(map[string]bool)
	onLine := func(line string) {
		line = strings.TrimSpace(line)
		if line == "" {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, line)
		rest, ok := strings.CutPrefix(line, resultMarker)
		if !ok {
			return
		}
		idField, viewField, _ := strings.Cut(rest, "\t")
		id, ok := ParseVideoID(idField)
		if !ok || seen[id] {
			return
		}
		seen[id] = true
		views, _ := strconv.ParseInt(strings.TrimSpace(viewField), 10, 64)
		hits = append(hits, searchHit{id: id, views: views})
	}

	s.logger.Debug("searching videos",
		logging.String("keyword", q.Keyword),
		logging.String("sort", q.Sort),
		logging.String("duration", q.Duration),
		logging.Int("limit", q.Limit),
	)
	if err := s.exec.Run(runCtx, s.binary, args, onLine); err != nil {
		switch {
		case len(hits) > 0 && ctx.Err() == nil:
			s.logger.Warn("search listing incomplete; using partial results",
				logging.Int("results", len(hits)),
				logging.Error(err),
			)
		case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			return nil, searchError(fmt.Sprintf("timed out after %s", s.timeout), err)
		case errors.Is(err, exec.ErrNotFound):
			return nil, searchError(fmt.Sprintf("%s not found in PATH", s.binary), err)
		default:
			return nil, searchError(describeFailure(lines), err)
		}
	}
	if len(hits) == 0 {
		return nil, searchError(fmt.Sprintf("no videos found for %q", q.Keyword), nil)
	}

	if q.Sort == SortViews {
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].views > hits[j].views })
	}
	if len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.id)
	}
	s.logger.Info("search complete", logging.String("keyword", q.Keyword), logging.Int("results", len(ids)))
	return ids, nil
}

// searchArgs builds the yt-dlp invocation. yt-dlp has no view-count search
// order, so views searches by relevance and the hits are re-sorted by the
// view counts the flat listing reports.
func searchArgs(q SearchQuery) []string {
	prefix := "ytsearch"
	if q.Sort == SortUploadDate {
		prefix = "ytsearchdate"
	}
	args := []string{
		"--flat-playlist",
		"--no-warnings",
		"--ignore-errors",
		"--print", resultMarker + "%(id)s\t%(view_count|0)s",
	}
	if filter := durationFilter(q.Duration); filter != "" {
		args = append(args, "--match-filter", filter)
	}
	return append(args, fmt.Sprintf("%s%d:%s", prefix, q.Limit, q.Keyword))
}

func durationFilter(bucket string) string {
	switch bucket {
	case DurationShort:
		return "duration<240"
	case DurationMedium:
		return "duration>=240 & duration<=1200"
	case DurationLong:
		return "duration>1200"
	}
	return ""
}

func searchError(message string, err error) error {
	return services.Wrap(services.ErrFetch, "", "search", message, err)
}
