// Package ingestor defines the interface and implementations for log sources
// whose lines are forwarded to Discord.
package ingestor

import (
	"context"
	"errors"

	"github.com/GabrielNunesIT/discordlog/internal/model"
)

// ErrJournalUnsupported is returned when the binary was built without
// systemd journal support.
var ErrJournalUnsupported = errors.New("journal source not supported by this build")

// Ingestor is a source of log lines. Start blocks until ctx is done, the
// source is exhausted, or it fails, and always closes out before returning.
// Every entry sent on out becomes at most one Discord record.
type Ingestor interface {
	Start(ctx context.Context, out chan<- *model.LogEntry) error
	Name() string
}
