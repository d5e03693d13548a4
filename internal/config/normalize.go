package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeCaptions()
	c.normalizeOutput()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CaptionsDir) == "" {
		c.Paths.CaptionsDir = defaultCaptionsDir
	}
	if c.Paths.CaptionsDir, err = expandPath(c.Paths.CaptionsDir); err != nil {
		return fmt.Errorf("paths.captions_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SummariesDir) == "" {
		c.Paths.SummariesDir = defaultSummariesDir
	}
	if c.Paths.SummariesDir, err = expandPath(c.Paths.SummariesDir); err != nil {
		return fmt.Errorf("paths.summaries_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLLM() {
	// A missing .env is the common case.
	_ = godotenv.Load()

	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		for _, key := range []string{apiKeyEnv, altAPIKeyEnv} {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.LLM.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.ThinkingBudget <= 0 {
		c.LLM.ThinkingBudget = defaultLLMThinkingBudget
	}
}

func (c *Config) normalizeCaptions() {
	c.Captions.Source = strings.ToLower(strings.TrimSpace(c.Captions.Source))
	if c.Captions.Source == "" {
		c.Captions.Source = defaultCaptionSource
	}
	c.Captions.Language = strings.TrimSpace(c.Captions.Language)
	if c.Captions.Language == "" {
		c.Captions.Language = defaultCaptionLanguage
	}
	c.Captions.YtDlpBinary = strings.TrimSpace(c.Captions.YtDlpBinary)
	if c.Captions.YtDlpBinary == "" {
		c.Captions.YtDlpBinary = defaultYtDlpBinary
	}
	if c.Captions.TimeoutSeconds <= 0 {
		c.Captions.TimeoutSeconds = defaultCaptionTimeout
	}
	c.Captions.TimedTextBaseURL = strings.TrimSpace(c.Captions.TimedTextBaseURL)
	if c.Captions.TimedTextBaseURL == "" {
		c.Captions.TimedTextBaseURL = defaultTimedTextBaseURL
	}
}

func (c *Config) normalizeOutput() {
	seen := make(map[string]struct{}, len(c.Output.Formats))
	formats := make([]string, 0, len(c.Output.Formats))
	for _, f := range c.Output.Formats {
		f = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(f), "."))
		if f == "markdown" {
			f = FormatMarkdown
		}
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		formats = []string{FormatMarkdown}
	}
	c.Output.Formats = formats
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = defaultLogRetentionDays
	}
}
