// Package persist writes caption text and summary documents to disk.
//
// File names come from NameFor, a pure function of the video reference, so
// processing the same video again overwrites its files in place. Writes go
// through a temp file and rename.
package persist
