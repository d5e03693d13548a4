// Package deps checks that the external binaries a caption source shells out
// to are installed.
package deps
