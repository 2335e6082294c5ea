package testhelpers

import (
	"io"
	"log/slog"

	"github.com/myrjola/repcoach/internal/logging"
)

// NewLogger creates a debug level logger writing to logSink, usually a [NewWriter].
func NewLogger(logSink io.Writer) *slog.Logger {
	return logging.NewTextLogger(logSink, slog.LevelDebug)
}
