// Package logging configures the global zerolog logger for artic-table.
//
// Logs always go to stderr so they never interleave with the table, which
// the CLI writes to stdout.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

var levels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

// ParseLevel normalizes a level name from configuration. "warning" is
// accepted as an alias of warn.
func ParseLevel(s string) (LogLevel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if _, ok := levels[name]; !ok {
		return "", fmt.Errorf("must be debug, info, warn or error, got %q", s)
	}
	if name == "warning" {
		return LevelWarn, nil
	}
	return LogLevel(name), nil
}

// Config holds logger configuration.
type Config struct {
	Level LogLevel

	// Pretty switches from JSON lines to console output.
	Pretty bool

	// NoColor disables ANSI colours in pretty output.
	NoColor bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns JSON logging at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// FromSettings builds a Config from the log section of the config file.
// Unknown levels fall back to info; the config package rejects them first.
func FromSettings(level string, pretty bool) Config {
	cfg := DefaultConfig()
	if parsed, err := ParseLevel(level); err == nil {
		cfg.Level = parsed
	}
	cfg.Pretty = pretty
	return cfg
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: time.TimeOnly,
		}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// parseLevel maps a LogLevel to zerolog, defaulting to info.
func parseLevel(level LogLevel) zerolog.Level {
	if l, ok := levels[strings.ToLower(string(level))]; ok {
		return l
	}
	return zerolog.InfoLevel
}

// NewLogger returns a child of the global logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: cache hits and revalidations, page loads started, stale
// responses discarded, batch worker progress, browse commands.
//
// Info: pages loaded, cross-page selections requested, browse session
// start and end, servers started.
//
// Warn: throttling, Redis or cache errors (the request goes to the API
// directly), partial batch results, failed proxied requests.
//
// Error: failed page fetches, critical rate limit blocks.
//
// Context Fields:
//   - component: artic-client, pagination, browse, cli
//   - page, seq: requested page and driver sequence number
//   - fetch_id: uuid shared by the log lines of one page fetch
//   - session_id: uuid of a browse session
//   - status, error_class, reason: fetch failure details
//   - remaining: requests left in the rate limit window
