// Package history keeps a SQLite log of summarize runs and the outcome of
// every video each run processed.
package history
