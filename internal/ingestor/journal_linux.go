//go:build linux && cgo

package ingestor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/coreos/go-systemd/v22/sdjournal"
	"github.com/rs/zerolog"

	"github.com/GabrielNunesIT/discordlog/internal/config"
	"github.com/GabrielNunesIT/discordlog/internal/model"
)

// journalWait bounds each wait so cancellation is noticed.
const journalWait = time.Second

// JournalIngestor reads logs from the systemd journal.
type JournalIngestor struct {
	cfg    config.JournalSourceConfig
	name   string
	logger zerolog.Logger
}

// NewJournalIngestor creates a systemd journal ingestor. The journal is
// opened in Start.
func NewJournalIngestor(cfg config.JournalSourceConfig, log zerolog.Logger) (*JournalIngestor, error) {
	for _, unit := range cfg.Units {
		if unit == "" {
			return nil, fmt.Errorf("journal: empty unit name")
		}
	}
	return &JournalIngestor{
		cfg:    cfg,
		name:   "journal",
		logger: log.With().Str("ingestor", "journal").Logger(),
	}, nil
}

// Name returns the ingestor identifier.
func (j *JournalIngestor) Name() string {
	return j.name
}

// Start follows the journal from its current tail.
func (j *JournalIngestor) Start(ctx context.Context, out chan<- *model.LogEntry) error {
	defer close(out)

	journal, err := sdjournal.NewJournal()
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer journal.Close()

	// Matches on the same field are ORed by the journal.
	for _, unit := range j.cfg.Units {
		if err := journal.AddMatch(sdjournal.SD_JOURNAL_FIELD_SYSTEMD_UNIT + "=" + unit); err != nil {
			return fmt.Errorf("adding unit filter %q: %w", unit, err)
		}
	}

	if err := journal.SeekTail(); err != nil {
		return fmt.Errorf("seeking to journal tail: %w", err)
	}
	// Step back once so the first Next lands on the first new entry.
	if _, err := journal.Previous(); err != nil {
		return fmt.Errorf("moving to previous entry: %w", err)
	}

	j.logger.Info().Strs("units", j.cfg.Units).Msg("following journal")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if status := journal.Wait(journalWait); status == sdjournal.SD_JOURNAL_NOP {
			continue
		}

		for {
			n, err := journal.Next()
			if err != nil {
				return fmt.Errorf("reading next entry: %w", err)
			}
			if n == 0 {
				break
			}

			entry, err := j.toLogEntry(journal)
			if err != nil {
				j.logger.Debug().Err(err).Msg("skipping unreadable journal entry")
				continue
			}

			select {
			case out <- entry:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// journalFields maps journal fields onto parsed keys understood by
// model.LogEntry.Record.
var journalFields = map[string]string{
	sdjournal.SD_JOURNAL_FIELD_SYSTEMD_UNIT:      "unit",
	sdjournal.SD_JOURNAL_FIELD_SYSLOG_IDENTIFIER: "identifier",
	sdjournal.SD_JOURNAL_FIELD_PID:               "pid",
	sdjournal.SD_JOURNAL_FIELD_COMM:              "command",
	sdjournal.SD_JOURNAL_FIELD_HOSTNAME:          "hostname",
}

func (j *JournalIngestor) toLogEntry(journal *sdjournal.Journal) (*model.LogEntry, error) {
	jEntry, err := journal.GetEntry()
	if err != nil {
		return nil, err
	}
	return journalEntry(j.name, jEntry), nil
}

// journalEntry converts a raw journal entry. PRIORITY carries a syslog
// severity, which decides the Discord level.
func journalEntry(source string, jEntry *sdjournal.JournalEntry) *model.LogEntry {
	entry := model.NewLogEntry(source, []byte(jEntry.Fields[sdjournal.SD_JOURNAL_FIELD_MESSAGE]))

	for jField, key := range journalFields {
		if val, ok := jEntry.Fields[jField]; ok {
			entry.Parsed[key] = val
		}
	}
	if p, err := strconv.Atoi(jEntry.Fields[sdjournal.SD_JOURNAL_FIELD_PRIORITY]); err == nil {
		entry.Parsed["syslog_severity"] = p
	}

	entry.Timestamp = time.UnixMicro(int64(jEntry.RealtimeTimestamp))
	return entry
}
