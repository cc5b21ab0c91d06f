// Package logging configures the slog logger shared by the
// command line tools: a text handler on stderr, optionally
// fanned out to a JSON log file.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// ErrUnknownLevel is returned for log levels other than
// debug, info, warn and error.
var ErrUnknownLevel = errors.New("unknown log level")

// Level is shared by every handler built by Setup.
var Level = new(slog.LevelVar)

// Options configures Setup.
type Options struct {
	// Level is one of debug, info, warn, error. Empty
	// means info.
	Level string

	// File, when set, receives JSON records in addition
	// to the text output.
	File string

	// Writer receives text records. Nil means stderr.
	Writer io.Writer
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
}

// New builds a logger from opts without installing it.
// The returned close function releases the log file and
// is never nil.
func New(opts Options) (*slog.Logger, func(), error) {
	const errCtx = "setting up logging"

	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	Level.Set(lvl)

	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(writer, &slog.HandlerOptions{
			Level: Level,
		}),
	}

	closer := func() {}

	if opts.File != "" {
		fi, err := os.OpenFile( //nolint:gosec // path from CLI flag
			opts.File,
			os.O_WRONLY|os.O_CREATE|os.O_APPEND,
			0o644,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		handlers = append(handlers, slog.NewJSONHandler(
			fi, &slog.HandlerOptions{Level: Level},
		))

		closer = func() {
			_ = fi.Close() //nolint:errcheck // best-effort close
		}
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// Setup builds a logger with New and installs it as the
// slog default.
func Setup(opts Options) (func(), error) {
	logger, closer, err := New(opts)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)

	return closer, nil
}
