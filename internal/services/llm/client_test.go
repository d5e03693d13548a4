package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeText(t *testing.T, w http.ResponseWriter, text string) {
	t.Helper()
	if err := json.NewEncoder(w).Encode(map[string]any{"text": text}); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestClientCompleteSendsRequestAndReadsTopLevelText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body["model"] != "demo-model" || body["temperature"] != 0.6 || body["max_tokens"] != float64(500) {
			t.Errorf("unexpected request body %v", body)
		}
		messages, _ := body["messages"].([]any)
		if len(messages) != 1 {
			t.Errorf("expected one message, got %v", body["messages"])
		}
		if _, ok := body["stream"]; ok {
			t.Errorf("expected stream to be omitted when disabled")
		}
		writeText(t, w, "这是总结")
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL, Model: "demo-model", Temperature: 0.6, MaxTokens: 500})
	completion, err := client.Complete(context.Background(), "summarize this")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if completion.Content != "这是总结" {
		t.Fatalf("expected summary text, got %q", completion.Content)
	}
	if completion.Attempt != 1 {
		t.Fatalf("expected first attempt, got %d", completion.Attempt)
	}
	if completion.Model != "demo-model" {
		t.Fatalf("expected model fallback to request model, got %q", completion.Model)
	}
}

func TestClientCompleteReadsChoicesMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"model": "served-model",
			"choices": []any{
				map[string]any{
					"finish_reason": "stop",
					"message": map[string]any{
						"content":           "<think>pondering</think>\n## 关键要点",
						"reasoning_content": "",
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "demo"})
	completion, err := client.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if completion.Content != "## 关键要点" {
		t.Fatalf("expected think block stripped, got %q", completion.Content)
	}
	if completion.Reasoning != "pondering" {
		t.Fatalf("expected inline thinking moved to reasoning, got %q", completion.Reasoning)
	}
	if completion.Model != "served-model" || completion.FinishReason != "stop" {
		t.Fatalf("unexpected metadata %+v", completion)
	}
}

func TestClientCompleteSucceedsAfterKFailures(t *testing.T) {
	const maxAttempts = 4
	for k := 0; k < maxAttempts; k++ {
		t.Run(fmt.Sprintf("failures=%d", k), func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				if int(n) <= k {
					w.WriteHeader(http.StatusServiceUnavailable)
					_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
					return
				}
				writeText(t, w, "ok")
			}))
			defer server.Close()

			var slept []time.Duration
			client := NewClient(
				Config{APIKey: "k", BaseURL: server.URL, Model: "demo"},
				WithRetryMaxAttempts(maxAttempts),
				WithRetryBackoff(100*time.Millisecond, time.Second),
				WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
			)
			completion, err := client.Complete(context.Background(), "prompt")
			if err != nil {
				t.Fatalf("Complete returned error: %v", err)
			}
			if completion.Attempt != k+1 {
				t.Fatalf("expected attempt %d, got %d", k+1, completion.Attempt)
			}
			if got := atomic.LoadInt32(&calls); int(got) != k+1 {
				t.Fatalf("expected %d requests, got %d", k+1, got)
			}
			if len(slept) != k {
				t.Fatalf("expected %d sleeps, got %v", k, slept)
			}
		})
	}
}

func TestClientCompleteExhaustsRetryBudget(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "k", BaseURL: server.URL, Model: "demo"},
		WithRetryMaxAttempts(3),
		WithRetryBackoff(100*time.Millisecond, time.Second),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	_, err := client.Complete(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected exactly 3 requests, got %d", got)
	}
	if !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Fatalf("expected exhaustion message, got %v", err)
	}
	if code, ok := StatusCode(err); !ok || code != http.StatusBadGateway {
		t.Fatalf("expected last status 502, got %d %v", code, ok)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(slept) != len(want) || slept[0] != want[0] || slept[1] != want[1] {
		t.Fatalf("expected backoff %v, got %v", want, slept)
	}
}

func TestClientCompleteDoesNotRetryAuthFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid api key"})
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"},
		WithRetryMaxAttempts(5),
		WithSleeper(func(time.Duration) { t.Fatal("unexpected retry sleep") }),
	)
	_, err := client.Complete(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected auth failure")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single request, got %d", got)
	}
	if code, ok := StatusCode(err); !ok || code != http.StatusUnauthorized {
		t.Fatalf("expected 401 status, got %d %v", code, ok)
	}
}

func TestClientCompleteCountsTimeoutAsFailedAttempt(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			writeText(t, w, "too late")
			return
		}
		writeText(t, w, "on time")
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "k", BaseURL: server.URL, Model: "demo"},
		WithRetryMaxAttempts(3),
		WithAttemptTimeout(50*time.Millisecond),
		WithRetryBackoff(0, 0),
	)
	completion, err := client.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if completion.Content != "on time" || completion.Attempt != 2 {
		t.Fatalf("expected second attempt to win, got %+v", completion)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 requests, got %d", got)
	}
}

func TestClientCompleteRetriesMalformedAndEmptyBodies(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			_, _ = w.Write([]byte("not json"))
		case 2:
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"   "},"finish_reason":"length"}]}`))
		default:
			writeText(t, w, "finally")
		}
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "k", BaseURL: server.URL, Model: "demo"},
		WithRetryMaxAttempts(3),
		WithRetryBackoff(0, 0),
	)
	completion, err := client.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if completion.Attempt != 3 || completion.Content != "finally" {
		t.Fatalf("unexpected completion %+v", completion)
	}
}

func TestClientBackoffNeverDecreases(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2, 3:
			w.WriteHeader(http.StatusInternalServerError)
		default:
			writeText(t, w, "ok")
		}
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "k", BaseURL: server.URL, Model: "demo"},
		WithRetryMaxAttempts(4),
		WithRetryBackoff(100*time.Millisecond, 5*time.Second),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	if _, err := client.Complete(context.Background(), "prompt"); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	want := []time.Duration{3 * time.Second, 3 * time.Second, 3 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), slept)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Fatalf("expected delays %v, got %v", want, slept)
		}
	}
}

func TestClientBackoffDelayCapped(t *testing.T) {
	client := NewClient(Config{}, WithRetryBackoff(time.Second, 5*time.Second))
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second},
		{10, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := client.backoffDelay(tt.attempt); got != tt.want {
			t.Fatalf("attempt %d: expected %s, got %s", tt.attempt, tt.want, got)
		}
	}
}

func TestClientCompleteStopsOnContextCancel(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient(
		Config{APIKey: "k", BaseURL: server.URL, Model: "demo"},
		WithRetryMaxAttempts(5),
		WithRetryBackoff(time.Millisecond, time.Millisecond),
		WithSleeper(func(time.Duration) { cancel() }),
	)
	if _, err := client.Complete(ctx, "prompt"); err == nil {
		t.Fatal("expected cancellation error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected retries to stop after cancel, got %d requests", got)
	}
}

func TestClientCompleteDecodesEventStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["stream"] != true || body["enable_thinking"] != true || body["thinking_budget"] != float64(4096) {
			t.Errorf("expected streaming thinking request, got %v", body)
		}
		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		chunks := []string{
			`{"model":"m1","choices":[{"delta":{"reasoning_content":"let me "}}]}`,
			`{"choices":[{"delta":{"reasoning_content":"think"}}]}`,
			`not-json`,
			`{"choices":[{"delta":{"content":"## 总结"}}]}`,
			`{"choices":[{"delta":{"content":" 完成"},"finish_reason":"stop"}]}`,
		}
		for _, chunk := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ignored\"}}]}\n\n")
	}))
	defer server.Close()

	var deltas []Delta
	client := NewClient(
		Config{APIKey: "k", BaseURL: server.URL, Model: "demo", Stream: true, EnableThinking: true, ThinkingBudget: 4096},
		WithStreamObserver(func(d Delta) { deltas = append(deltas, d) }),
	)
	completion, err := client.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if completion.Content != "## 总结 完成" {
		t.Fatalf("unexpected content %q", completion.Content)
	}
	if completion.Reasoning != "let me think" {
		t.Fatalf("unexpected reasoning %q", completion.Reasoning)
	}
	if completion.Model != "m1" || completion.FinishReason != "stop" {
		t.Fatalf("unexpected metadata %+v", completion)
	}
	if len(deltas) != 4 || !deltas[0].Reasoning || deltas[3].Reasoning {
		t.Fatalf("unexpected observed deltas %+v", deltas)
	}
}

func TestClientCompleteRequiresKeyAndPrompt(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	if _, err := client.Complete(context.Background(), "prompt"); err == nil || !strings.Contains(err.Error(), "api key") {
		t.Fatalf("expected api key error, got %v", err)
	}
	client = NewClient(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	if _, err := client.Complete(context.Background(), "  "); err == nil || !strings.Contains(err.Error(), "prompt") {
		t.Fatalf("expected prompt error, got %v", err)
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["enable_thinking"] != false {
			t.Errorf("expected thinking disabled for health check, got %v", body["enable_thinking"])
		}
		payload := map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "OK"}}},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestSplitThinking(t *testing.T) {
	tests := []struct {
		name, content, reasoning   string
		wantContent, wantReasoning string
	}{
		{"plain", "answer", "", "answer", ""},
		{"inline block", "<think>a</think>answer", "", "answer", "a"},
		{"keeps streamed reasoning", "<think>a</think>answer", "streamed", "answer", "streamed"},
		{"stray close tag", "</think>answer", "", "answer", ""},
		{"unterminated", "answer<think>half", "", "answer", "half"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, reasoning := splitThinking(tt.content, tt.reasoning)
			if content != tt.wantContent || reasoning != tt.wantReasoning {
				t.Fatalf("expected (%q, %q), got (%q, %q)", tt.wantContent, tt.wantReasoning, content, reasoning)
			}
		})
	}
}

func TestClientCompleteRetriesTruncatedStream(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		if atomic.AddInt32(&calls, 1) == 1 {
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"## 关键要点\\n1. 第一\"}}]}\n\n")
			return
		}
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"FINAL\"},\"finish_reason\":\"stop\"}]}\n\n")
	}))
	defer server.Close()

	var deltas []Delta
	client := NewClient(
		Config{APIKey: "k", BaseURL: server.URL, Model: "demo", Stream: true},
		WithRetryMaxAttempts(3),
		WithSleeper(func(time.Duration) {}),
		WithStreamObserver(func(d Delta) { deltas = append(deltas, d) }),
	)
	completion, err := client.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if completion.Content != "FINAL" || completion.Attempt != 2 {
		t.Fatalf("expected second attempt to win with FINAL, got %+v", completion)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected truncated stream to count as a failed attempt, got %d requests", got)
	}

	var afterRestart []string
	restarts := 0
	for _, d := range deltas {
		if d.Restart {
			restarts++
			afterRestart = nil
			if d.Attempt != 2 {
				t.Fatalf("expected restart for attempt 2, got %d", d.Attempt)
			}
			continue
		}
		afterRestart = append(afterRestart, d.Text)
	}
	if restarts != 1 || strings.Join(afterRestart, "") != "FINAL" {
		t.Fatalf("expected one restart followed by FINAL, got %+v", deltas)
	}
}

func TestClientCompleteFailsWhenEveryStreamIsTruncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"half\"}}]}\n\n")
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "k", BaseURL: server.URL, Model: "demo", Stream: true},
		WithRetryMaxAttempts(2),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.Complete(context.Background(), "prompt")
	if err == nil || !strings.Contains(err.Error(), "failed after 2 attempts") || !strings.Contains(err.Error(), "stream ended") {
		t.Fatalf("expected exhausted budget on truncated streams, got %v", err)
	}
}
