//go:build linux && cgo

package ingestor

import (
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/sdjournal"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/GabrielNunesIT/discordlog/internal/config"
	"github.com/GabrielNunesIT/discordlog/pkg/discordlog"
)

func TestJournalEntry(t *testing.T) {
	ts := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	jEntry := &sdjournal.JournalEntry{
		Fields: map[string]string{
			sdjournal.SD_JOURNAL_FIELD_MESSAGE:           "disk almost full",
			sdjournal.SD_JOURNAL_FIELD_PRIORITY:          "4",
			sdjournal.SD_JOURNAL_FIELD_SYSTEMD_UNIT:      "backup.service",
			sdjournal.SD_JOURNAL_FIELD_SYSLOG_IDENTIFIER: "backup",
			sdjournal.SD_JOURNAL_FIELD_PID:               "812",
		},
		RealtimeTimestamp: uint64(ts.UnixMicro()),
	}

	entry := journalEntry("journal", jEntry)
	rec := entry.Record(discordlog.LevelInfo)

	assert.Equal(t, "disk almost full", rec.Message)
	assert.Equal(t, discordlog.LevelWarning, rec.Level)
	assert.Equal(t, "backup", rec.Logger)
	assert.True(t, ts.Equal(rec.Time))
	assert.Contains(t, rec.Fields, discordlog.Field{Key: "pid", Value: "812"})
	assert.Contains(t, rec.Fields, discordlog.Field{Key: "unit", Value: "backup.service"})
}

func TestNewJournalIngestor(t *testing.T) {
	j, err := NewJournalIngestor(config.JournalSourceConfig{Units: []string{"nginx.service"}}, zerolog.Nop())
	assert.NoError(t, err)
	assert.Equal(t, "journal", j.Name())

	_, err = NewJournalIngestor(config.JournalSourceConfig{Units: []string{""}}, zerolog.Nop())
	assert.Error(t, err)
}
