// Package logging builds the slog loggers shared by the CLI, the API and the pipeline.
package logging

import (
	"io"
	"log/slog"
)

// New returns a text logger writing to w; verbose enables debug records
func New(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// OrDiscard returns l, or a logger that drops everything when l is nil
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
