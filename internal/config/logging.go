package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger builds the pipeline logger: human-readable text on stderr so
// ingest runs stay legible next to the progress UI, JSON appended to the log
// file for later inspection of long archive runs. Returns the logger and a
// cleanup function closing the file.
func SetupLogger(logFile string, level slog.Level) (*slog.Logger, func() error) {
	opts := &slog.HandlerOptions{Level: level}
	stderrHandler := slog.NewTextHandler(os.Stderr, opts)

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// Stderr-only fallback keeps ingestion usable without a writable
		// log location.
		slog.Error("failed to open log file, using stderr only", "error", err, "file", logFile)
		return newLogger(stderrHandler), func() error { return nil }
	}

	fileHandler := slog.NewJSONHandler(file, opts)
	return newLogger(slogmulti.Fanout(stderrHandler, fileHandler)), file.Close
}

// SetupLoggerWithWriters creates a logger with custom writers (for testing).
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	return newLogger(slogmulti.Fanout(
		slog.NewTextHandler(stderr, opts),
		slog.NewJSONHandler(file, opts),
	))
}

func newLogger(h slog.Handler) *slog.Logger {
	return slog.New(h).With("app", "contextuse")
}
