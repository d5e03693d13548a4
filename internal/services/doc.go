// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp video references, stage names, and run
//     identifiers for logging and history.
//   - Structured error markers plus the Wrap helper. Each marker names the
//     stage that failed, so callers classify failures with errors.Is instead
//     of string matching.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
