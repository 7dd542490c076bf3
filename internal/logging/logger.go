// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName is stamped on every JSON log line.
const ServiceName = "custodian"

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error or disabled.
	Level string

	// Format is json (for log shippers) or console (for operators at a terminal).
	Format string

	// Caller adds file:line to each entry.
	Caller bool

	// Version is added as a "version" field to JSON output when set.
	Version string

	// NoColor disables ANSI colors in console output.
	NoColor bool

	// Output defaults to os.Stderr so command output on stdout stays clean.
	Output io.Writer
}

// DefaultConfig returns JSON logging at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: os.Stderr,
	}
}

var (
	log zerolog.Logger
	mu  sync.RWMutex
)

//nolint:gochecknoinits // logging must work before Init is called
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.MessageFieldName = "message"
	log = build(DefaultConfig())
}

// Init configures the global logger. Safe to call more than once.
func Init(cfg Config) {
	l := build(cfg)

	mu.Lock()
	defer mu.Unlock()
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	log = l
}

func build(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	if cfg.Format == "console" {
		// Console output omits the service and version fields.
		l := zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
			NoColor:    cfg.NoColor,
		}).With().Timestamp()
		if cfg.Caller {
			l = l.Caller()
		}
		return l.Logger()
	}

	l := zerolog.New(out).With().Timestamp().Str("service", ServiceName)
	if cfg.Version != "" {
		l = l.Str("version", cfg.Version)
	}
	if cfg.Caller {
		l = l.Caller()
	}
	return l.Logger()
}

// parseLevel maps a configured level name to zerolog, defaulting to info.
// "warning" is accepted as an alias of "warn".
func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// SetLogger replaces the global logger instance.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

// Logger returns a copy of the global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := log
	return &l
}

// WithComponent returns a child logger tagged with a component field.
//
//	storageLog := logging.WithComponent("storage")
func WithComponent(component string) zerolog.Logger {
	return current().With().Str("component", component).Logger()
}

// Debug starts a new message with debug level.
func Debug() *zerolog.Event { return current().Debug() }

// Info starts a new message with info level.
func Info() *zerolog.Event { return current().Info() }

// Warn starts a new message with warning level.
func Warn() *zerolog.Event { return current().Warn() }

// Error starts a new message with error level.
func Error() *zerolog.Event { return current().Error() }

// Err starts a new error level message with err attached.
func Err(err error) *zerolog.Event { return current().Err(err) }

// NewTestLogger creates a logger writing JSON to w, for capturing output in tests.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
