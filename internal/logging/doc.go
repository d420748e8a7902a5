// Package logging builds slog loggers for the daemon and CLI.
//
// Two output formats are supported: a compact console format for interactive
// use and JSON for log files and machine consumption. Attr helpers keep call
// sites terse and give every subsystem a stable `component` attribute.
package logging
