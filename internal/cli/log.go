// Package cli implements the sheetslicer command-line interface.
//
// The commands work on a session: a pair of sheet images, a grid and the
// tile names with their undo history, stored between invocations under
// ~/.config/sheetslicer/sessions/. Every command loads the session, applies
// one operation and saves it again.
//
// # Commands
//
// The main commands are:
//   - session: Open sheets, show, list and delete sessions
//   - grid: Show the tile layout of a sheet and write a preview
//   - names: Set, clear, undo and redo tile names; CSV import and export
//   - template: Save and load grid-plus-names templates
//   - search: Query ArkhamDB, interactively with --interactive
//   - export: Write one named image per tile, optionally uploading to S3
//   - cache, config, serve: Maintenance and the HTTP API
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// shows cache, HTTP and per-tile export events.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Exported 70 tiles (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
