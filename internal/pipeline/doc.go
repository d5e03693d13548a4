// Package pipeline sequences caption fetching, validation, summarization,
// and persistence for one video at a time.
//
// Each run moves Fetching → Validating → Summarizing → Persisting → Done, or
// into Failed from whichever stage reported an error. Build wires the stages
// from configuration, handing each only the settings it needs. RunLimited
// stops a batch at a success target or an attempt cap.
package pipeline
