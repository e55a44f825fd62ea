// Package logging assembles structured slog loggers and formatting helpers used
// across the transcribe client.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so sync and polling code can tag
// log lines with job IDs, components, and correlation IDs. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
