// Package sl holds small helpers for structured logging with slog.
package sl

import "log/slog"

// Err wraps an error into an "error" attribute.
//
//	log.Error("failed to send message", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
