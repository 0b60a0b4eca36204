package discordlog

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/zerolog"
)

// Level is an ordered record severity.
type Level int

const (
	LevelDebug    Level = 10
	LevelInfo     Level = 20
	LevelWarning  Level = 30
	LevelError    Level = 40
	LevelCritical Level = 50
)

// Embed colors by severity.
const (
	colorError   = 0xE74C3C
	colorWarning = 0xF1C40F
	colorDefault = 0x95A5A6
)

func (l Level) String() string {
	switch {
	case l >= LevelCritical:
		return "CRITICAL"
	case l >= LevelError:
		return "ERROR"
	case l >= LevelWarning:
		return "WARNING"
	case l >= LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

// Color returns the embed color used for the level.
func (l Level) Color() int {
	switch {
	case l >= LevelError:
		return colorError
	case l >= LevelWarning:
		return colorWarning
	default:
		return colorDefault
	}
}

// ParseLevel converts a level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	case "critical", "fatal", "panic":
		return LevelCritical, nil
	default:
		return LevelInfo, fmt.Errorf("%w: unknown level %q", ErrMalformedConfiguration, s)
	}
}

// FromSlog maps a slog level onto a Level.
func FromSlog(l slog.Level) Level {
	switch {
	case l >= slog.LevelError+4:
		return LevelCritical
	case l >= slog.LevelError:
		return LevelError
	case l >= slog.LevelWarn:
		return LevelWarning
	case l >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}

// ToSlog maps a Level onto a slog level.
func (l Level) ToSlog() slog.Level {
	switch {
	case l >= LevelCritical:
		return slog.LevelError + 4
	case l >= LevelError:
		return slog.LevelError
	case l >= LevelWarning:
		return slog.LevelWarn
	case l >= LevelInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// FromZerolog maps a zerolog level onto a Level.
func FromZerolog(l zerolog.Level) Level {
	switch l {
	case zerolog.FatalLevel, zerolog.PanicLevel:
		return LevelCritical
	case zerolog.ErrorLevel:
		return LevelError
	case zerolog.WarnLevel:
		return LevelWarning
	case zerolog.InfoLevel, zerolog.NoLevel:
		return LevelInfo
	default:
		return LevelDebug
	}
}
