package logger

import (
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/log"
)

// New builds a slog logger backed by a charmbracelet handler.
// format is one of "text", "json" or "logfmt".
func New(w io.Writer, format string, debug bool) *slog.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}

	handler := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       formatter(format),
	})

	return slog.New(handler)
}

func formatter(format string) log.Formatter {
	switch format {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}
