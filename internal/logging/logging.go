package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates a *slog.Logger writing to stderr and optionally to a rotated
// logFile. format "text" selects a colourised console handler; anything else
// writes JSON. The logger also becomes the slog default. The returned cleanup
// func closes the log file if one was opened; callers must defer it.
func New(level, format, logFile string) (*slog.Logger, func(), error) {
	lvl := parseLevel(level)
	cleanup := func() {}

	var file *lumberjack.Logger
	if logFile != "" {
		file = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		cleanup = func() { _ = file.Close() }
	}

	var handler slog.Handler
	switch format {
	case "text":
		console := tint.NewHandler(os.Stderr, &tint.Options{Level: lvl, TimeFormat: time.Kitchen})
		if file == nil {
			handler = console
			break
		}
		// The file always gets JSON so it stays machine readable.
		handler = fanout{console, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: lvl})}
	default:
		var w io.Writer = os.Stderr
		if file != nil {
			w = io.MultiWriter(os.Stderr, file)
		}
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
