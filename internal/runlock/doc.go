// Package runlock keeps two ytdigest batches from writing into the same
// output and state directories at once. Acquire fails fast with ErrHeld
// instead of waiting.
package runlock
