package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"ytdigest/internal/config"
)

// ConfigOption adjusts the configuration built by NewConfig.
type ConfigOption func(*config.Config)

// NewConfig returns a validated configuration whose output, log, and state
// directories live under one t.TempDir. Retry delays are a few milliseconds
// so failure paths finish quickly, and the API key is "test-key".
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.CaptionsDir = filepath.Join(base, "captions")
	cfg.Paths.SummariesDir = filepath.Join(base, "summaries")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.TimeoutSeconds = 5
	cfg.LLM.RetryBaseDelayMS = 1
	cfg.LLM.RetryMaxDelayMS = 5
	cfg.Captions.RequestsPerSecond = 0
	cfg.Logging.Level = "error"

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WithLLMEndpoint points the inference client at url.
func WithLLMEndpoint(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.LLM.BaseURL = url
	}
}

// WithTimedText switches the caption source to the timedtext endpoint at url.
func WithTimedText(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Captions.Source = config.CaptionSourceTimedText
		cfg.Captions.TimedTextBaseURL = url
	}
}

// WithYtDlpBinary points captions.yt_dlp_binary at path.
func WithYtDlpBinary(path string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Captions.YtDlpBinary = path
	}
}

// WithFormats overrides output.formats.
func WithFormats(formats ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Output.Formats = append([]string(nil), formats...)
	}
}

// WriteConfigFile encodes cfg as TOML next to its directories and returns the
// file path. The API key is left out so commands read it from the environment.
func WriteConfigFile(t testing.TB, cfg *config.Config) string {
	t.Helper()

	clone := *cfg
	clone.LLM.APIKey = ""
	data, err := toml.Marshal(clone)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// BaseDir returns the temp directory holding the config's directories.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CaptionsDir)
}
