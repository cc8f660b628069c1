package testutil

import "log/slog"

// DiscardLogger returns a slog.Logger that discards all output.
//
// log.Logger is a type alias for *slog.Logger, so this is
// interchangeable with log.NewNop(); prefer log.NewNop() in code that
// already imports the internal/log package.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
