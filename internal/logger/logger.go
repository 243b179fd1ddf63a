// Package logger holds the process-wide slog logger used by safememctl.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// L is the global logger instance. It discards all output until Init enables
// a destination.
var L = discard()

var logFile *os.File

const (
	logPrefix     = "safememctl-"
	logSuffix     = ".log"
	dateLayout    = "2006-01-02"
	retentionDays = 30
)

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // Write JSON records to a dated file in LogDir
	LogDir  string     // Directory for log files. Default: ~/.safememctl/logs
	Level   slog.Level // Minimum file level. Default: LevelInfo

	// Verbose mirrors debug-level records as text to Stderr.
	Verbose bool
	Stderr  io.Writer // Default: os.Stderr
}

// Init configures logging. Call from main() before any log calls. It closes
// any file opened by a previous Init.
func Init(opts Options) error {
	Close()

	var handlers []slog.Handler
	if opts.Verbose {
		w := opts.Stderr
		if w == nil {
			w = os.Stderr
		}
		handlers = append(handlers, slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	if opts.Enabled {
		h, err := fileHandler(opts)
		if err != nil {
			return err
		}
		handlers = append(handlers, h)
	}

	switch len(handlers) {
	case 0:
		L = discard()
	case 1:
		L = slog.New(handlers[0])
	default:
		L = slog.New(fanout(handlers))
	}
	return nil
}

func fileHandler(opts Options) (slog.Handler, error) {
	logDir := opts.LogDir
	if logDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "locate log directory")
		}
		logDir = filepath.Join(home, ".safememctl", "logs")
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create %s", logDir)
	}

	// Clean up old logs (best-effort, ignore errors)
	cleanOldLogs(logDir, time.Now())

	filename := filepath.Join(logDir, logPrefix+time.Now().Format(dateLayout)+logSuffix)
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", filename)
	}
	logFile = f

	level := opts.Level
	if level == 0 {
		level = slog.LevelInfo
	}
	return slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}), nil
}

// Close flushes and closes the log file, if any, and resets L to discard.
func Close() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	L = discard()
}

// cleanOldLogs removes log files dated more than retentionDays before now.
func cleanOldLogs(logDir string, now time.Time) {
	cutoff := now.AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, logPrefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}

		// safememctl-2024-01-05.log
		dateStr := strings.TrimPrefix(strings.TrimSuffix(name, logSuffix), logPrefix)
		logDate, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			continue
		}

		if logDate.Before(cutoff) {
			os.Remove(filepath.Join(logDir, name))
		}
	}
}

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var err error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			err = errors.CombineErrors(err, h.Handle(ctx, r.Clone()))
		}
	}
	return err
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
