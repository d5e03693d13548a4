package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"ytdigest/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("SILICONFLOW_API_KEY", "env-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "ytdigest")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if !filepath.IsAbs(cfg.Paths.CaptionsDir) || filepath.Base(cfg.Paths.CaptionsDir) != "captions" {
		t.Fatalf("unexpected captions dir: %q", cfg.Paths.CaptionsDir)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Fatalf("expected API key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "deepseek-ai/DeepSeek-R1" {
		t.Fatalf("unexpected default model %q", cfg.LLM.Model)
	}
	if cfg.LLM.MaxRetryCount != 3 || cfg.LLM.TimeoutSeconds != 60 || cfg.LLM.MaxTokens != 10000 {
		t.Fatalf("unexpected llm defaults: %+v", cfg.LLM)
	}
	if cfg.Captions.MinLength != 100 {
		t.Fatalf("expected min caption length 100, got %d", cfg.Captions.MinLength)
	}
	if cfg.HistoryPath() != filepath.Join(wantState, "history.db") {
		t.Fatalf("unexpected history path %q", cfg.HistoryPath())
	}
}

func TestLoadFallsBackToAlternateEnvKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SILICONFLOW_API_KEY", "")
	t.Setenv("YTDIGEST_API_KEY", "alt-key")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "alt-key" {
		t.Fatalf("expected alternate env key, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SILICONFLOW_API_KEY", "")
	t.Setenv("YTDIGEST_API_KEY", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := config.Default()
	cfg.Paths.CaptionsDir = filepath.Join(dir, "caps")
	cfg.Paths.SummariesDir = filepath.Join(dir, "sums")
	cfg.LLM.APIKey = "file-key"
	cfg.LLM.Stream = false
	cfg.LLM.MaxRetryCount = 5
	cfg.Captions.Source = "TimedText"
	cfg.Output.Formats = []string{"md", ".docx", "md"}
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s to exist, got %s exists=%v", path, resolved, exists)
	}
	if loaded.LLM.APIKey != "file-key" {
		t.Fatalf("expected file key, got %q", loaded.LLM.APIKey)
	}
	if loaded.LLM.Stream {
		t.Fatal("expected stream disabled from file")
	}
	if loaded.LLM.MaxRetryCount != 5 {
		t.Fatalf("expected retry count 5, got %d", loaded.LLM.MaxRetryCount)
	}
	if loaded.Captions.Source != config.CaptionSourceTimedText {
		t.Fatalf("expected normalized source, got %q", loaded.Captions.Source)
	}
	if len(loaded.Output.Formats) != 2 || !loaded.WantsFormat(config.FormatDocx) {
		t.Fatalf("unexpected formats %v", loaded.Output.Formats)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"retry count", func(c *config.Config) { c.LLM.MaxRetryCount = 0 }, "llm.max_retry_count"},
		{"temperature", func(c *config.Config) { c.LLM.Temperature = 3 }, "llm.temperature"},
		{"base url", func(c *config.Config) { c.LLM.BaseURL = "not a url" }, "llm.base_url"},
		{"backoff", func(c *config.Config) { c.LLM.RetryMaxDelayMS = 1; c.LLM.RetryBaseDelayMS = 10 }, "retry_max_delay_ms"},
		{"source", func(c *config.Config) { c.Captions.Source = "ftp" }, "captions.source"},
		{"min length", func(c *config.Config) { c.Captions.MinLength = -1 }, "captions.min_length"},
		{"format", func(c *config.Config) { c.Output.Formats = []string{"pdf"} }, "output.formats"},
		{"log level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in %v", tt.want, err)
			}
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	cfg := config.Default()
	if err := cfg.RequireAPIKey(); err == nil || !strings.Contains(err.Error(), "SILICONFLOW_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
	cfg.LLM.APIKey = "k"
	if err := cfg.RequireAPIKey(); err != nil {
		t.Fatalf("expected key to satisfy requirement, got %v", err)
	}
}

func TestEncodeRedactsAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "secret-value"
	out, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if strings.Contains(out, "secret-value") {
		t.Fatalf("expected API key to be redacted, got %s", out)
	}
	if !strings.Contains(out, "<redacted>") {
		t.Fatalf("expected redaction marker, got %s", out)
	}
	if cfg.LLM.APIKey != "secret-value" {
		t.Fatal("Encode must not mutate the receiver")
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample config to load, exists=%v err=%v", exists, err)
	}
}

func TestEnsureDirectoriesCreatesAll(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.CaptionsDir = filepath.Join(base, "c")
	cfg.Paths.SummariesDir = filepath.Join(base, "s")
	cfg.Paths.LogDir = filepath.Join(base, "l")
	cfg.Paths.StateDir = filepath.Join(base, "st")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.CaptionsDir, cfg.Paths.SummariesDir, cfg.Paths.LogDir, cfg.Paths.StateDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s, err=%v", dir, err)
		}
	}
}
