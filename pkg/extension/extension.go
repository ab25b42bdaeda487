// Package extension defines the contract between the strix manager and
// its loadable extensions.
package extension

import (
	"firestige.xyz/strix/internal/core"
)

// Extension observes captured frames and may produce frames to transmit
// and log lines to report. Instances live for the whole run; they are
// never removed or reloaded.
//
// Ingest runs on the manager's capture goroutine, DrainLog on whatever
// goroutine collects output, possibly at the same time. Extensions must
// therefore make their log accumulation safe for concurrent append and
// drain; LogBuffer provides that. Neither method may block unboundedly:
// a stalled Ingest stalls frame processing for every extension behind it.
type Extension interface {
	// Name returns the identifier the extension was registered under.
	Name() string

	// Ingest offers one captured frame. The returned frames, if any, are
	// queued for transmission in order. Errors are isolated per call: the
	// manager logs them and moves on.
	Ingest(frame *core.Frame) ([]*core.Frame, error)

	// DrainLog returns and clears the accumulated output lines.
	DrainLog() ([]string, error)
}

// Factory constructs an extension from the shared data snapshot.
// Construction may fail, e.g. when a required setting is missing; that
// aborts the whole load.
type Factory func(data SharedData) (Extension, error)
