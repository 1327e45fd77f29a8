package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger builds the process logger: human-readable text on stderr,
// plus structured JSON appended to logFile when one is configured. The
// returned cleanup closes the file and must run at shutdown.
//
// An empty logFile means stderr only. An unopenable logFile degrades to
// stderr only rather than failing startup; sync and ingest still work
// without the JSON trail.
func SetupLogger(logFile string, level slog.Level) (*slog.Logger, func() error) {
	opts := &slog.HandlerOptions{Level: level}
	stderrHandler := slog.NewTextHandler(os.Stderr, opts)

	noop := func() error { return nil }

	if logFile == "" {
		return slog.New(stderrHandler), noop
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		slog.Error("failed to open log file, using stderr only", "error", err, "file", logFile)
		return slog.New(stderrHandler), noop
	}

	fanout := slogmulti.Fanout(stderrHandler, slog.NewJSONHandler(file, opts))
	return slog.New(fanout), file.Close
}

// SetupLoggerWithWriters builds the same dual-output logger over arbitrary
// writers. Testing only.
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	return slog.New(slogmulti.Fanout(
		slog.NewTextHandler(stderr, opts),
		slog.NewJSONHandler(file, opts),
	))
}
