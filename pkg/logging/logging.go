package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

func DbErr(method string, err error) slog.Attr {
	return slog.Attr{
		Key: "db",
		Value: slog.GroupValue(
			slog.String("method", method),
			slog.String("error", err.Error()),
		),
	}
}

// SetupLogger builds the process logger on stdout and makes it the
// slog default.
func SetupLogger(level slog.Level, format string) *slog.Logger {
	log := NewLogger(os.Stdout, level, format)
	slog.SetDefault(log)
	return log
}

// NewLogger builds a logger writing to w. format is "json" or "text";
// anything else falls back to text.
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}
