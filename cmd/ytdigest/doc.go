// Package main hosts the ytdigest CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds the logger, and
// hands video references to the summarization pipeline. Each processed video
// produces one outcome line on stdout; logs go to stderr and the rotating log
// file. Keep the heavy lifting in internal packages and surface it here
// through commands and flags.
package main
