package cli

import (
	"io"
	"log/slog"

	"github.com/mesh-intelligence/annopack/pkg/types"
)

// newLogger builds the CLI logger. Unknown levels fall back to warn and
// unknown formats to text; Config.Validate rejects both earlier.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case types.LogLevelDebug:
		lvl = slog.LevelDebug
	case types.LogLevelInfo:
		lvl = slog.LevelInfo
	case types.LogLevelError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if format == types.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
