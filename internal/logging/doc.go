// Package logging assembles structured slog loggers and formatting helpers used
// across Memento services.
//
// It owns the console and JSON handlers, fans output out to stdout and the
// daemon log file, and exposes context-aware helpers so pipeline code can tag
// log lines with run IDs and item keys. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
package logging
