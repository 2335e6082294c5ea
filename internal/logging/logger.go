package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the optional log file.
const (
	maxLogFileSizeMB  = 20
	maxLogFileBackups = 5
	maxLogFileAgeDays = 28
)

// Config selects where the application logs go.
type Config struct {
	// Level is the minimum level that gets logged.
	Level slog.Level
	// File is an optional path to a log file that is rotated by size. Stdout is always written.
	File string
}

// NewLogger builds the application logger. The returned closer flushes and closes the log file, if any.
func NewLogger(cfg Config) (*slog.Logger, io.Closer) {
	var (
		out    io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxLogFileSizeMB,
			MaxBackups: maxLogFileBackups,
			MaxAge:     maxLogFileAgeDays,
			Compress:   true,
			LocalTime:  false,
		}
		out = io.MultiWriter(os.Stdout, rotating)
		closer = rotating
	}
	return NewTextLogger(out, cfg.Level), closer
}

// NewTextLogger returns a text logger with context attribute support writing to w.
func NewTextLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewContextHandler(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource:   false,
		Level:       level,
		ReplaceAttr: nil,
	})))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
