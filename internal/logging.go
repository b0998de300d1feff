package internal

import (
	"context"
	"io"

	"golang.org/x/exp/slog"
)

var nop (slog.Handler) = nopLogger{}

// NopLogger returns a logger that discards all log records.
func NopLogger() *slog.Logger {
	return slog.New(nop)
}

// TextHandler returns a slog.Handler that writes text records to w. Debug
// records are only written if verbose is true.
func TextHandler(w io.Writer, verbose bool) slog.Handler {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.HandlerOptions{Level: level}.NewTextHandler(w)
}

type nopLogger struct{}

func (nopLogger) Enabled(context.Context, slog.Level) bool { return false }
func (nopLogger) Handle(context.Context, slog.Record) error { return nil }
func (nopLogger) WithAttrs([]slog.Attr) slog.Handler { return nop }
func (nopLogger) WithGroup(string) slog.Handler { return nop }
