package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable. The API key is checked
// separately by RequireAPIKey so offline commands keep working without it.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateCaptions(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLLM() error {
	if parsed, err := url.Parse(c.LLM.BaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("llm.base_url must be an absolute URL, got %q", c.LLM.BaseURL)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens <= 0 {
		return errors.New("llm.max_tokens must be positive")
	}
	if c.LLM.MaxRetryCount < 1 {
		return errors.New("llm.max_retry_count must be at least 1")
	}
	if c.LLM.RetryBaseDelayMS < 0 {
		return errors.New("llm.retry_base_delay_ms must be non-negative")
	}
	if c.LLM.RetryMaxDelayMS < c.LLM.RetryBaseDelayMS {
		return errors.New("llm.retry_max_delay_ms must be >= llm.retry_base_delay_ms")
	}
	return nil
}

func (c *Config) validateCaptions() error {
	switch c.Captions.Source {
	case CaptionSourceYtDlp, CaptionSourceTimedText:
	default:
		return fmt.Errorf("captions.source: unsupported value %q (use %q or %q)", c.Captions.Source, CaptionSourceYtDlp, CaptionSourceTimedText)
	}
	if c.Captions.MinLength < 0 {
		return errors.New("captions.min_length must be non-negative")
	}
	if c.Captions.RequestsPerSecond < 0 {
		return errors.New("captions.requests_per_second must be non-negative")
	}
	return nil
}

func (c *Config) validateOutput() error {
	for _, f := range c.Output.Formats {
		switch f {
		case FormatMarkdown, FormatDocx:
		default:
			return fmt.Errorf("output.formats: unsupported format %q", f)
		}
	}
	if !c.WantsFormat(FormatMarkdown) {
		return errors.New("output.formats must include \"md\"")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
