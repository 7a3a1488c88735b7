package app

import (
	"io"
	"log/slog"
)

// newLogger builds the slog.Logger an App owns. The logger is never
// installed globally, so two Apps in one process (tests do this) cannot
// see each other's output. Unknown level or format strings fall back to
// info/text rather than failing: logging config must not stop a build.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
