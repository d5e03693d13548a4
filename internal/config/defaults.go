package config

const (
	defaultCaptionsDir         = "./captions"
	defaultSummariesDir        = "./summaries"
	defaultLogDir              = "~/.local/share/ytdigest/logs"
	defaultStateDir            = "~/.local/share/ytdigest"
	defaultLLMBaseURL          = "https://api.siliconflow.cn/v1/chat/completions"
	defaultLLMModel            = "deepseek-ai/DeepSeek-R1"
	defaultLLMTemperature      = 0.6
	defaultLLMMaxTokens        = 10000
	defaultLLMTimeoutSeconds   = 60
	defaultLLMMaxRetryCount    = 3
	defaultLLMRetryBaseDelayMS = 1000
	defaultLLMRetryMaxDelayMS  = 10000
	defaultLLMThinkingBudget   = 4096
	defaultCaptionSource       = CaptionSourceYtDlp
	defaultCaptionLanguage     = "en"
	defaultCaptionMinLength    = 100
	defaultYtDlpBinary         = "yt-dlp"
	defaultCaptionTimeout      = 120
	defaultCaptionRate         = 1.0
	defaultTimedTextBaseURL    = "https://www.youtube.com/api/timedtext"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 28

	apiKeyEnv    = "SILICONFLOW_API_KEY"
	altAPIKeyEnv = "YTDIGEST_API_KEY"
)

// Caption source identifiers accepted by captions.source.
const (
	CaptionSourceYtDlp     = "ytdlp"
	CaptionSourceTimedText = "timedtext"
)

// Output formats accepted by output.formats.
const (
	FormatMarkdown = "md"
	FormatDocx     = "docx"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CaptionsDir:  defaultCaptionsDir,
			SummariesDir: defaultSummariesDir,
			LogDir:       defaultLogDir,
			StateDir:     defaultStateDir,
		},
		LLM: LLM{
			BaseURL:          defaultLLMBaseURL,
			Model:            defaultLLMModel,
			Temperature:      defaultLLMTemperature,
			MaxTokens:        defaultLLMMaxTokens,
			TimeoutSeconds:   defaultLLMTimeoutSeconds,
			MaxRetryCount:    defaultLLMMaxRetryCount,
			RetryBaseDelayMS: defaultLLMRetryBaseDelayMS,
			RetryMaxDelayMS:  defaultLLMRetryMaxDelayMS,
			Stream:           true,
			EnableThinking:   true,
			ThinkingBudget:   defaultLLMThinkingBudget,
		},
		Captions: Captions{
			Source:            defaultCaptionSource,
			Language:          defaultCaptionLanguage,
			MinLength:         defaultCaptionMinLength,
			YtDlpBinary:       defaultYtDlpBinary,
			TimeoutSeconds:    defaultCaptionTimeout,
			RequestsPerSecond: defaultCaptionRate,
			TimedTextBaseURL:  defaultTimedTextBaseURL,
		},
		Output: Output{
			Formats: []string{FormatMarkdown},
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
