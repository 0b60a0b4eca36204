//go:build !linux || !cgo

package ingestor

import (
	"context"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/GabrielNunesIT/discordlog/internal/config"
	"github.com/GabrielNunesIT/discordlog/internal/model"
)

// JournalIngestor is unavailable without linux and cgo.
type JournalIngestor struct{}

// NewJournalIngestor fails so a journal source is rejected before the
// pipeline starts.
func NewJournalIngestor(config.JournalSourceConfig, zerolog.Logger) (*JournalIngestor, error) {
	return nil, fmt.Errorf("%w (built for %s, cgo required)", ErrJournalUnsupported, runtime.GOOS)
}

func (j *JournalIngestor) Name() string { return "journal" }

func (j *JournalIngestor) Start(_ context.Context, out chan<- *model.LogEntry) error {
	close(out)
	return ErrJournalUnsupported
}
