package logging

import (
	"log/slog"
	"os"
)

// Setup initializes the global slog logger with JSON output to stdout and
// returns the level in effect. LOG_LEVEL (debug, info, warn, error)
// overrides the info default; unparseable values keep the default.
func Setup() slog.Level {
	level := slog.LevelInfo
	if s := os.Getenv("LOG_LEVEL"); s != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(s)); err == nil {
			level = parsed
		}
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
	return level
}
