// Package llm provides a chat completion client for OpenAI-compatible
// inference endpoints such as SiliconFlow.
//
// # Entry Points
//
// NewClient: construct a client from Config.
// Client.Complete: send one user prompt and receive the generated text.
// Client.HealthCheck: verify the API key and model are usable.
//
// # Responses
//
// Plain JSON bodies are read from choices[].message.content (falling back to
// delta.content, choices[].text, or a top-level "text" field). Bodies served
// as text/event-stream are decoded chunk by chunk until [DONE], accumulating
// answer and reasoning deltas separately. A stream that closes before [DONE]
// or a finish_reason is a failed attempt, not a short answer. Inline <think>
// blocks are moved out of the answer into Completion.Reasoning.
//
// # Retry Behaviour
//
// Each call makes at most the configured number of attempts, one at a time.
// Every attempt runs under its own deadline. Network errors, deadlines,
// HTTP 408/429/5xx, undecodable or truncated bodies, and empty answers are retried with
// exponential backoff (base doubling, capped, never shorter than the previous
// delay; Retry-After is honoured up to the cap). Any other 4xx, such as a
// rejected API key, ends the call immediately. Context cancellation aborts
// retries. Stream observers receive a Restart delta before each retry.
package llm
