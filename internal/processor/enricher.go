package processor

import (
	"context"
	"os"

	"github.com/GabrielNunesIT/discordlog/internal/config"
	"github.com/GabrielNunesIT/discordlog/internal/model"
)

// Enricher attaches host and static fields. They show up as key=value
// fields in the Discord message. Keys already set by the source or parser
// are left alone.
type Enricher struct {
	cfg      config.EnricherConfig
	hostname string
}

// NewEnricher resolves the hostname once when it is requested.
func NewEnricher(cfg config.EnricherConfig) *Enricher {
	e := &Enricher{cfg: cfg}
	if cfg.AddHostname {
		e.hostname, _ = os.Hostname()
	}
	return e
}

// WithHostname builds an Enricher with a fixed hostname.
func WithHostname(cfg config.EnricherConfig, hostname string) *Enricher {
	e := NewEnricher(cfg)
	e.hostname = hostname
	return e
}

func (e *Enricher) Name() string { return "enricher" }

func (e *Enricher) Process(_ context.Context, entry *model.LogEntry) error {
	if !e.cfg.Enabled {
		return nil
	}
	if entry.Metadata == nil {
		entry.Metadata = make(map[string]string)
	}

	if e.cfg.AddHostname && e.hostname != "" {
		setIfAbsent(entry.Metadata, "hostname", e.hostname)
	}
	for k, v := range e.cfg.StaticFields {
		setIfAbsent(entry.Metadata, k, v)
	}
	return nil
}

func setIfAbsent(m map[string]string, k, v string) {
	if _, ok := m[k]; !ok {
		m[k] = v
	}
}
