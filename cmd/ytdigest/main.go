package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"ytdigest/internal/services"
)

// Exit statuses: 1 when at least one video failed, 2 when the invocation
// never reached a video (bad configuration, missing credential, bad flags).
const (
	exitVideoFailed = 1
	exitMisconfig   = 2
)

func main() {
	err := newRootCommand().ExecuteContext(context.Background())
	if err == nil {
		return
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "ytdigest:", err)
	}
	os.Exit(exitStatus(err))
}

func exitStatus(err error) int {
	var usage usageError
	if errors.Is(err, services.ErrConfiguration) || errors.As(err, &usage) {
		return exitMisconfig
	}
	return exitVideoFailed
}

// usageError marks invocation mistakes detected before any video is processed.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }
