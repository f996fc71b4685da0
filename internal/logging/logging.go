// Package logging writes structured JSON logs to a rotated file. The
// terminal belongs to the TUI, so nothing is ever logged to stdout.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pablasso/flightpath/internal/version"
)

const FileName = "flightpath.slog"

// Logger is a slog.Logger that knows where it writes.
type Logger struct {
	*slog.Logger
	LogFile string

	closer io.Closer
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", level)
	}
}

// New opens dir/flightpath.slog, rotating at 16 MB and keeping two backups.
func New(level, dir string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	w := &lumberjack.Logger{
		Filename:   filepath.Join(dir, FileName),
		MaxSize:    16, // MB
		MaxBackups: 2,
	}
	if lvl == slog.LevelDebug {
		w.MaxSize = 128
	}

	l := &Logger{
		Logger:  slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})),
		LogFile: w.Filename,
		closer:  w,
	}
	l.Info("logging_started",
		slog.String("version", version.Version),
		slog.String("commit", version.CommitSHA),
		slog.String("goos", runtime.GOOS),
		slog.String("goarch", runtime.GOARCH),
	)
	return l, nil
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// OrDiscard returns l's slog.Logger, or a discarding one when l is nil.
func (l *Logger) OrDiscard() *slog.Logger {
	if l == nil || l.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l.Logger
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
