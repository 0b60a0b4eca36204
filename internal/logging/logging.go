// Package logging sets up the agent's own diagnostics and the fallback
// channel that receives Discord delivery failures.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"

	"github.com/GabrielNunesIT/discordlog/internal/config"
)

const consoleTimeFormat = time.DateTime

// ParseLevel maps a config level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup creates the console logger used for diagnostics.
func Setup(level string) zerolog.Logger {
	return New(os.Stderr, level)
}

// New creates a console logger writing to w.
func New(w io.Writer, level string) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat}
	return zerolog.New(cw).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// Fallback is the destination for delivery failures. Close releases the
// rotating file, if any.
type Fallback struct {
	Logger zerolog.Logger
	closer io.Closer
}

// Close flushes and closes the underlying file.
func (f *Fallback) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// NewFallback builds the fallback logger. An empty path writes JSON lines to
// stderr; otherwise events go to a rotating file.
func NewFallback(cfg config.FallbackConfig) *Fallback {
	if cfg.Path == "" {
		return &Fallback{Logger: fallbackLogger(os.Stderr)}
	}

	w := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return &Fallback{Logger: fallbackLogger(w), closer: w}
}

func fallbackLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Str("component", "discordlog").Logger()
}
