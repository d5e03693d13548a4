// Package watcher feeds reference list files dropped into a directory to a
// handler, one file at a time.
package watcher
