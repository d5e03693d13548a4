package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Responder writes one canned inference response.
type Responder func(w http.ResponseWriter, r *http.Request)

// LLMServer is a fake chat-completions endpoint that counts requests.
type LLMServer struct {
	*httptest.Server

	mu         sync.Mutex
	responders []Responder
	requests   int
	bodies     []map[string]any
}

// NewLLMServer starts a fake endpoint that answers the i-th request with the
// i-th responder, repeating the last one once the list is exhausted. With no
// responders every request gets {"text": "这是总结"}.
func NewLLMServer(t testing.TB, responders ...Responder) *LLMServer {
	t.Helper()

	if len(responders) == 0 {
		responders = []Responder{RespondText("这是总结")}
	}
	s := &LLMServer{responders: responders}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *LLMServer) handle(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	idx := s.requests
	if idx >= len(s.responders) {
		idx = len(s.responders) - 1
	}
	s.requests++
	s.bodies = append(s.bodies, body)
	respond := s.responders[idx]
	s.mu.Unlock()

	respond(w, r)
}

// Requests returns how many requests the server has received.
func (s *LLMServer) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// LastBody returns the decoded JSON body of the most recent request.
func (s *LLMServer) LastBody() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.bodies) == 0 {
		return nil
	}
	return s.bodies[len(s.bodies)-1]
}

// RespondText answers with a top-level {"text": ...} body.
func RespondText(text string) Responder {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": text})
	}
}

// RespondChat answers with an OpenAI-style choices body.
func RespondChat(content string) Responder {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}
}

// RespondStatus answers with the given status and a JSON error payload.
func RespondStatus(status int) Responder {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"message":"injected failure"}}`))
	}
}
