package discordlog

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatter_Default(t *testing.T) {
	f, err := NewFormatter("", "")
	require.NoError(t, err)

	got := f.Format(Record{
		Level:   LevelError,
		Logger:  "api",
		Message: "request failed",
		Fields:  []Field{{Key: "status", Value: "502"}},
	})
	assert.Equal(t, "[ERROR] api: request failed status=502", got)
}

func TestFormatter_DefaultWithoutLogger(t *testing.T) {
	f, err := NewFormatter("", "")
	require.NoError(t, err)

	assert.Equal(t, "[INFO] started", f.Format(Record{Level: LevelInfo, Message: "started"}))
}

func TestFormatter_CustomTemplate(t *testing.T) {
	f, err := NewFormatter(`[{{.Level}}] [{{.Source}}]: {{FmtTime .Time}} - {{ToUpper .Message}}`, "")
	require.NoError(t, err)

	rec := Record{
		Time:    time.Date(2026, 1, 18, 12, 30, 0, 0, time.UTC),
		Level:   LevelWarning,
		Message: "disk low",
		Source:  &Source{File: "/srv/app/disk.go", Line: 42},
	}
	assert.Equal(t, "[WARNING] [disk.go:42]: 2026-01-18 12:30:00 - DISK LOW", f.Format(rec))
}

func TestFormatter_InvalidTemplate(t *testing.T) {
	_, err := NewFormatter("{{.Level", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedConfiguration))
}

func TestFormatter_ExecutionErrorFallsBack(t *testing.T) {
	f, err := NewFormatter(`{{.Missing}}`, "")
	require.NoError(t, err)

	got := f.Format(Record{Level: LevelInfo, Logger: "svc", Message: "hi"})
	assert.Equal(t, "[INFO] svc: hi", got)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warn", LevelWarning},
		{"Warning", LevelWarning},
		{"error", LevelError},
		{"critical", LevelCritical},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("verbose")
	assert.ErrorIs(t, err, ErrMalformedConfiguration)
}

func TestLevel_Color(t *testing.T) {
	assert.Equal(t, 0xE74C3C, LevelCritical.Color())
	assert.Equal(t, 0xE74C3C, LevelError.Color())
	assert.Equal(t, 0xF1C40F, LevelWarning.Color())
	assert.Equal(t, 0x95A5A6, LevelInfo.Color())
	assert.Equal(t, 0x95A5A6, LevelDebug.Color())
}
