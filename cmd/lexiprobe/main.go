package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/probelab/lexiprobe/internal/probe"
)

// Exit codes for different failure modes
const (
	ExitSuccess   = 0 // Probe issued, schedule exhausted, or report written
	ExitTransport = 1 // Remote call failed; safe to rerun the same slot
	ExitError     = 2 // Configuration, ledger or runtime error
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var transportErr *probe.TransportError
		if errors.As(err, &transportErr) {
			os.Exit(ExitTransport)
		}

		// Everything else is a configuration, ledger or runtime error.
		os.Exit(ExitError)
	}
}
