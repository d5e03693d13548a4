package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ytdigest/internal/logging"
)

const (
	defaultBaseURL        = "https://api.siliconflow.cn/v1/chat/completions"
	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 3
	maxErrorBodyBytes     = 64 << 10
)

// Config captures the runtime settings required to talk to the inference endpoint.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float64
	MaxTokens      int
	TimeoutSeconds int
	Stream         bool
	EnableThinking bool
	ThinkingBudget int
}

// Client wraps an OpenAI-compatible chat completion API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
	observer         func(Delta)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the total number of attempts (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithAttemptTimeout overrides the per-attempt deadline derived from
// Config.TimeoutSeconds.
func WithAttemptTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithStreamObserver receives every streamed delta as it arrives.
func WithStreamObserver(observer func(Delta)) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// WithLogger attaches a logger for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	client := &Client{
		cfg: cfg,
		// Deadlines are applied per attempt through the request context so
		// streamed bodies are bounded as well.
		httpClient:       &http.Client{},
		timeout:          timeout,
		logger:           logging.NewNop(),
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	return client
}

// Completion is the generated text plus retry metadata.
type Completion struct {
	Content      string
	Reasoning    string
	FinishReason string
	Model        string
	// Attempt is the 1-based attempt that produced the completion.
	Attempt int
}

// Delta is one streamed fragment of either the answer or the model's reasoning.
type Delta struct {
	Reasoning bool
	Text      string
	// Restart marks the start of a retry attempt; fragments observed before
	// it belong to a failed attempt and are not part of the final result.
	Restart bool
	Attempt int
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("llm request: http %d: %s", e.StatusCode, summarizePayloadSnippet(e.Body))
}

type emptyContentError struct {
	Op           string
	FinishReason string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: empty content (finish_reason=%q, response_snippet=%s)", e.Op, e.FinishReason, e.Snippet)
}

// requestError marks failures that happen before anything is sent; retrying
// cannot fix them.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }

func (e *requestError) Unwrap() error { return e.err }

// StatusCode reports the HTTP status carried by a client error, if any.
func StatusCode(err error) (int, bool) {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, true
	}
	return 0, false
}

// Complete sends a single user prompt and returns the generated text. Failed
// attempts are retried with backoff; attempts never overlap.
func (c *Client) Complete(ctx context.Context, prompt string) (Completion, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Completion{}, errors.New("llm complete: prompt required")
	}
	if c.cfg.APIKey == "" {
		return Completion{}, errors.New("llm complete: api key required")
	}
	payload := chatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Stream:      c.cfg.Stream,
	}
	if c.cfg.EnableThinking {
		enabled := true
		payload.EnableThinking = &enabled
		payload.ThinkingBudget = c.cfg.ThinkingBudget
	}
	return c.completionWithRetry(ctx, payload, "llm complete")
}

// HealthCheck issues a small non-streaming request to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("llm health: api key required")
	}
	disabled := false
	payload := chatCompletionRequest{
		Model:          c.cfg.Model,
		Messages:       []chatMessage{{Role: "user", Content: "Reply with the single word OK."}},
		Temperature:    0,
		MaxTokens:      16,
		EnableThinking: &disabled,
	}
	_, err := c.completionWithRetry(ctx, payload, "llm health")
	return err
}

type chatCompletionRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	Stream         bool          `json:"stream,omitempty"`
	EnableThinking *bool         `json:"enable_thinking,omitempty"`
	ThinkingBudget int           `json:"thinking_budget,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
		// Some providers return the streaming schema (delta) even when
		// stream=false, so tolerate it as a fallback.
		Delta chatCompletionMessage `json:"delta"`
		// Legacy "text" field (completion-style responses).
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	// Minimal gateways answer with a bare {"text": "..."} object.
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type chatCompletionMessage struct {
	Content          string `json:"content"`
	ReasoningContent string `json:"reasoning_content"`
}

func (c *Client) completionWithRetry(ctx context.Context, payload chatCompletionRequest, op string) (Completion, error) {
	attempts := c.retryAttempts()
	var lastErr error
	var prevDelay time.Duration

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 && payload.Stream {
			emit(c.observer, Delta{Restart: true, Attempt: attempt})
		}
		completion, err := c.sendChatRequestOnce(ctx, payload, op)
		if err == nil {
			completion.Attempt = attempt
			if completion.Model == "" {
				completion.Model = payload.Model
			}
			return completion, nil
		}
		lastErr = err

		if !c.retryable(ctx, err) {
			return Completion{}, fmt.Errorf("%s: attempt %d: %w", op, attempt, err)
		}
		if attempt == attempts {
			break
		}

		delay := c.retryDelay(err, attempt)
		if delay < prevDelay {
			delay = prevDelay
		}
		prevDelay = delay
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "inference attempt failed; retrying", "llm_retry",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Duration("delay", delay),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "transient endpoint failure; the request will be retried"),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return Completion{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return Completion{}, fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (c *Client) sendChatRequestOnce(ctx context.Context, payload chatCompletionRequest, op string) (Completion, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Completion{}, &requestError{fmt.Errorf("llm request: encode body: %w", err)}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return Completion{}, &requestError{fmt.Errorf("llm request: new request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if payload.Stream {
		req.Header.Set("Accept", "text/event-stream, application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Completion{}, fmt.Errorf("llm request: http error (timeout=%s): %w", c.timeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return Completion{}, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}

	var completion Completion
	var snippet string
	if isEventStream(resp.Header.Get("Content-Type")) {
		completion, err = decodeStream(resp.Body, c.observer)
		if err != nil {
			return Completion{}, fmt.Errorf("llm request: read stream (timeout=%s): %w", c.timeout, err)
		}
		snippet = "<stream>"
	} else {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return Completion{}, fmt.Errorf("llm request: read body (timeout=%s): %w", c.timeout, err)
		}
		completion, err = decodeCompletion(body)
		if err != nil {
			return Completion{}, err
		}
		snippet = summarizePayloadSnippet(string(body))
	}

	completion.Content, completion.Reasoning = splitThinking(completion.Content, completion.Reasoning)
	if completion.Content == "" {
		return Completion{}, &emptyContentError{Op: op, FinishReason: completion.FinishReason, Snippet: snippet}
	}
	return completion, nil
}

func decodeCompletion(body []byte) (Completion, error) {
	var resp chatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Completion{}, fmt.Errorf("llm request: decode response: %w (payload snippet: %s)", err, summarizePayloadSnippet(string(body)))
	}
	if resp.Error != nil {
		return Completion{}, fmt.Errorf("llm request: api error: %s", strings.TrimSpace(resp.Error.Message))
	}
	completion := Completion{Model: strings.TrimSpace(resp.Model)}
	for _, choice := range resp.Choices {
		if completion.FinishReason == "" {
			completion.FinishReason = strings.TrimSpace(choice.FinishReason)
		}
		if completion.Reasoning == "" {
			completion.Reasoning = firstNonEmpty(choice.Message.ReasoningContent, choice.Delta.ReasoningContent)
		}
		if content := firstNonEmpty(choice.Message.Content, choice.Delta.Content, choice.Text); content != "" {
			completion.Content = content
			break
		}
	}
	if completion.Content == "" {
		completion.Content = strings.TrimSpace(resp.Text)
	}
	return completion, nil
}

func isEventStream(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/event-stream"
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func (c *Client) retryAttempts() int {
	if c == nil || c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

// retryable reports whether a failed attempt should count against the retry
// budget rather than end the call. Client errors other than 408 and 429
// (authentication, bad request) are permanent.
func (c *Client) retryable(ctx context.Context, err error) bool {
	if err == nil || ctx == nil {
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return false
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			return true
		default:
			return false
		}
	}
	// Network failures, attempt deadlines, malformed bodies, and empty content.
	return true
}

func (c *Client) retryDelay(err error, attempt int) time.Duration {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return c.capDelay(statusErr.RetryAfter)
	}
	return c.backoffDelay(attempt)
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := defaultRetryBaseDelay
	maxDelay := defaultRetryMaxDelay
	if c != nil {
		if c.retryBaseDelay >= 0 {
			base = c.retryBaseDelay
		}
		if c.retryMaxDelay > 0 {
			maxDelay = c.retryMaxDelay
		}
	}
	if base <= 0 {
		return 0
	}

	retryCount := attempt // attempt is 1-based, delay is for the next attempt.
	if retryCount <= 0 {
		retryCount = 1
	}

	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < retryCount; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := defaultRetryMaxDelay
	if c != nil && c.retryMaxDelay > 0 {
		maxDelay = c.retryMaxDelay
	}
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c != nil && c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
