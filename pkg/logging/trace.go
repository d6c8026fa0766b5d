package logging

import "log/slog"

// EnableTrace turns on per-fix debug logs. Off by default; a walking session
// produces one fix per second or more.
var EnableTrace = false

// Trace logs a message at DEBUG level, but only if EnableTrace is true.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if EnableTrace {
		logger.Debug(msg, args...)
	}
}
