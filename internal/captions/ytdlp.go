package captions

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"ytdigest/internal/logging"
)

const defaultYtDlpBinary = "yt-dlp"

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// YtDlpOption configures the yt-dlp source.
type YtDlpOption func(*YtDlp)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) YtDlpOption {
	return func(y *YtDlp) {
		if exec != nil {
			y.exec = exec
		}
	}
}

// YtDlp fetches subtitles by shelling out to yt-dlp without downloading media.
type YtDlp struct {
	binary   string
	language string
	timeout  time.Duration
	exec     Executor
	logger   *slog.Logger
}

// NewYtDlp constructs a yt-dlp backed caption source.
func NewYtDlp(settings Settings, logger *slog.Logger, opts ...YtDlpOption) *YtDlp {
	binary := strings.TrimSpace(settings.YtDlpBinary)
	if binary == "" {
		binary = defaultYtDlpBinary
	}
	language := strings.TrimSpace(settings.Language)
	if language == "" {
		language = "en"
	}
	y := &YtDlp{
		binary:   binary,
		language: language,
		timeout:  time.Duration(settings.TimeoutSeconds) * time.Second,
		exec:     commandExecutor{},
		logger:   logging.NewComponentLogger(logger, "captions"),
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

// Fetch downloads the subtitle track for ref into a scratch directory, reads
// it back, and returns the cleaned text.
func (y *YtDlp) Fetch(ctx context.Context, ref string) (Track, error) {
	target := ResolveURL(ref)
	if target == "" {
		return Track{}, fetchError("ytdlp", "empty video reference", nil)
	}

	workDir, err := os.MkdirTemp("", "ytdigest-captions-*")
	if err != nil {
		return Track{}, fetchError("ytdlp", "create scratch directory", err)
	}
	defer os.RemoveAll(workDir)

	runCtx := ctx
	if y.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, y.timeout)
		defer cancel()
	}

	args := []string{
		"--skip-download",
		"--no-simulate",
		"--no-playlist",
		"--no-warnings",
		"--write-sub",
		"--write-auto-sub",
		"--sub-langs", y.language + ".*," + y.language,
		"--sub-format", "vtt/srt/best",
		"--print", titleMarker + "%(title)s",
		"--output", filepath.Join(workDir, "%(id)s.%(ext)s"),
		target,
	}

	var mu sync.Mutex
	var lines []string
	onLine := func(line string) {
		line = strings.TrimSpace(line)
		if line == "" {
			return
		}
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	}

	y.logger.Debug("running yt-dlp", logging.String("url", target), logging.String("language", y.language))
	if err := y.exec.Run(runCtx, y.binary, args, onLine); err != nil {
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			return Track{}, fetchError("ytdlp", fmt.Sprintf("timed out after %s", y.timeout), err)
		case errors.Is(err, exec.ErrNotFound):
			return Track{}, fetchError("ytdlp", fmt.Sprintf("%s not found in PATH", y.binary), err)
		}
		return Track{}, fetchError("ytdlp", describeFailure(lines), err)
	}

	path, err := pickSubtitleFile(workDir, y.language)
	if err != nil {
		return Track{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Track{}, fetchError("ytdlp", "read subtitle file", err)
	}
	text := Clean(string(raw))
	if text == "" {
		return Track{}, fetchError("ytdlp", "subtitle file contained no text", nil)
	}

	track := Track{
		Title:    titleFrom(lines),
		URL:      target,
		Language: languageFromFile(path),
		Text:     text,
		Raw:      string(raw),
		Format:   strings.TrimPrefix(filepath.Ext(path), "."),
	}
	if id, ok := ParseVideoID(ref); ok {
		track.VideoID = id
	}
	return track, nil
}

// pickSubtitleFile prefers an exact language match, then any track for the
// language family, then whatever yt-dlp wrote.
func pickSubtitleFile(dir, language string) (string, error) {
	var candidates []string
	for _, pattern := range []string{"*.vtt", "*.srt"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return "", fetchError("ytdlp", "list subtitle files", err)
		}
		candidates = append(candidates, matches...)
	}
	if len(candidates) == 0 {
		return "", fetchError("ytdlp", fmt.Sprintf("no %s captions available", language), nil)
	}
	sort.Strings(candidates)
	for _, path := range candidates {
		if strings.EqualFold(languageFromFile(path), language) {
			return path, nil
		}
	}
	for _, path := range candidates {
		if strings.HasPrefix(strings.ToLower(languageFromFile(path)), strings.ToLower(language)) {
			return path, nil
		}
	}
	return candidates[0], nil
}

// languageFromFile reads the language tag yt-dlp places before the
// extension: <id>.<lang>.vtt.
func languageFromFile(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if idx := strings.LastIndex(base, "."); idx >= 0 {
		return base[idx+1:]
	}
	return ""
}

// titleMarker prefixes the title line yt-dlp prints so it cannot be confused
// with progress or diagnostic output, whatever the title looks like.
const titleMarker = "ytdigest-title:"

func titleFrom(lines []string) string {
	for _, line := range lines {
		if title, ok := strings.CutPrefix(line, titleMarker); ok {
			return strings.TrimSpace(title)
		}
	}
	return ""
}

func describeFailure(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(lines[i], "ERROR") {
			return strings.TrimSpace(strings.TrimPrefix(lines[i], "ERROR:"))
		}
	}
	return "yt-dlp failed"
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
