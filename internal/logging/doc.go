// Package logging assembles structured slog loggers used across ytdigest.
//
// It owns the console and JSON handlers, level parsing, and output plumbing,
// including the size-rotated log file kept under the configured log directory.
// Context-aware helpers tag records with the video reference, pipeline stage,
// and run identifier so a batch can be followed end to end. A no-op logger is
// provided for tests and for constructors that accept a nil logger.
package logging
