package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess   = 0 // Pipeline ran and diagnostics are clean
	ExitAttention = 1 // Pipeline ran but diagnostics flagged the run
	ExitError     = 2 // Configuration or runtime error
)

// AttentionError indicates that the pipeline ran to completion, but the
// convergence diagnostics flagged the run for attention.
type AttentionError struct {
	Message string
}

func (e *AttentionError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// Check error type to determine exit code
		var attentionErr *AttentionError
		if errors.As(err, &attentionErr) {
			os.Exit(ExitAttention)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
