// Package logging builds the structured slog loggers used by the CLI tools.
// Logs go to stderr (text by default, JSON on request) and never to stdout,
// which carries results.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Level is the minimum severity written.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Config selects level, format and destination. The zero value writes Info
// and above as text to Output.
type Config struct {
	Level   Level
	JSON    bool
	Service string // added as "service" to every record when set
	// Quiet discards everything below Warn regardless of Level.
	Quiet  bool
	Output io.Writer
}

// New returns a logger for cfg. A nil Output discards all records.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = io.Discard
	}
	lvl := cfg.Level
	if cfg.Quiet && lvl < LevelWarn {
		lvl = LevelWarn
	}
	opts := &slog.HandlerOptions{Level: lvl.toSlogLevel()}
	var h slog.Handler
	if cfg.JSON {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	l := slog.New(h)
	if cfg.Service != "" {
		l = l.With("service", cfg.Service)
	}
	return l
}

// Discard is a logger that writes nothing.
func Discard() *slog.Logger { return New(Config{}) }
