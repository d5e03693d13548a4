package llm

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const maxStreamLineBytes = 1 << 20

// errStreamTruncated reports a stream that closed before the [DONE] sentinel
// or a finish_reason arrived. The partial text is discarded.
var errStreamTruncated = errors.New("stream ended before [DONE] or finish_reason")

// decodeStream consumes a server-sent event body of chat completion chunks
// until the [DONE] sentinel. Chunks that fail to decode are skipped; a body
// that ends without [DONE] or a finish_reason is an error.
func decodeStream(r io.Reader, observe func(Delta)) (Completion, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxStreamLineBytes)

	var content, reasoning strings.Builder
	var completion Completion
	var terminated bool
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			terminated = true
			break
		}
		var chunk chatCompletionResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			return Completion{}, fmt.Errorf("api error in stream: %s", strings.TrimSpace(chunk.Error.Message))
		}
		if completion.Model == "" {
			completion.Model = strings.TrimSpace(chunk.Model)
		}
		for _, choice := range chunk.Choices {
			if text := choice.Delta.ReasoningContent; text != "" {
				reasoning.WriteString(text)
				emit(observe, Delta{Reasoning: true, Text: text})
			}
			if text := firstRaw(choice.Delta.Content, choice.Message.Content, choice.Text); text != "" {
				content.WriteString(text)
				emit(observe, Delta{Text: text})
			}
			if reason := strings.TrimSpace(choice.FinishReason); reason != "" {
				completion.FinishReason = reason
				terminated = true
			}
		}
		if chunk.Text != "" {
			content.WriteString(chunk.Text)
			emit(observe, Delta{Text: chunk.Text})
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return Completion{}, fmt.Errorf("stream line exceeds %d bytes", maxStreamLineBytes)
		}
		return Completion{}, err
	}
	if !terminated {
		return Completion{}, errStreamTruncated
	}

	completion.Content = strings.TrimSpace(content.String())
	completion.Reasoning = strings.TrimSpace(reasoning.String())
	return completion, nil
}

func emit(observe func(Delta), delta Delta) {
	if observe != nil {
		observe(delta)
	}
}

// firstRaw returns the first non-empty value without trimming; streamed
// fragments carry meaningful leading whitespace.
func firstRaw(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

// splitThinking moves inline <think>...</think> blocks out of the answer and
// into the reasoning text, then drops any stray tags.
func splitThinking(content, reasoning string) (string, string) {
	var thoughts []string
	for {
		start := strings.Index(content, "<think>")
		if start < 0 {
			break
		}
		end := strings.Index(content[start:], "</think>")
		if end < 0 {
			thoughts = append(thoughts, content[start+len("<think>"):])
			content = content[:start]
			break
		}
		end += start
		thoughts = append(thoughts, content[start+len("<think>"):end])
		content = content[:start] + content[end+len("</think>"):]
	}
	content = strings.ReplaceAll(content, "</think>", "")
	if strings.TrimSpace(reasoning) == "" {
		reasoning = strings.Join(thoughts, "\n")
	}
	return strings.TrimSpace(content), strings.TrimSpace(reasoning)
}
