// ABOUTME: Structured logging setup
// ABOUTME: Builds zerolog loggers for console or JSON output
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level is a logging severity name
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config holds logger configuration
type Config struct {
	// Level sets the minimum level (debug, info, warn, error)
	Level Level

	// JSONFormat enables JSON lines instead of console output
	JSONFormat bool

	// Output defaults to os.Stderr
	Output io.Writer

	// NoColor disables ANSI colors in console output
	NoColor bool
}

// DefaultConfig returns console logging at info level to stderr
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Output: os.Stderr}
}

// New creates a logger from cfg
func New(cfg Config) zerolog.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if !cfg.JSONFormat {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.NoColor,
		}
	}

	return zerolog.New(output).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel converts a level name to a zerolog level, defaulting to info
func ParseLevel(l Level) zerolog.Level {
	switch Level(strings.ToLower(string(l))) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// OpenFile opens path for appending log lines
func OpenFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
}

// Output picks the log destination. When a TUI owns the terminal logs go
// only to the file; otherwise they go to both stderr and the file.
func Output(file io.Writer, tui bool) io.Writer {
	switch {
	case file == nil && tui:
		return io.Discard
	case file == nil:
		return os.Stderr
	case tui:
		return file
	default:
		return io.MultiWriter(os.Stderr, file)
	}
}
