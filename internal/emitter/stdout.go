package emitter

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/GabrielNunesIT/discordlog/internal/config"
	"github.com/GabrielNunesIT/discordlog/pkg/discordlog"
)

// StdoutEmitter echoes forwarded records locally. Text output uses the
// Discord template; JSON output is one zerolog event per record.
type StdoutEmitter struct {
	cfg       config.EchoConfig
	formatter *discordlog.Formatter
	logger    zerolog.Logger

	mu   sync.Mutex
	w    io.Writer
	json zerolog.Logger
}

// NewStdoutEmitter writes to os.Stdout.
func NewStdoutEmitter(cfg config.EchoConfig, formatter *discordlog.Formatter, log zerolog.Logger) *StdoutEmitter {
	return NewStdoutEmitterWithWriter(cfg, formatter, os.Stdout, log)
}

// NewStdoutEmitterWithWriter writes to w.
func NewStdoutEmitterWithWriter(cfg config.EchoConfig, formatter *discordlog.Formatter, w io.Writer, log zerolog.Logger) *StdoutEmitter {
	return &StdoutEmitter{
		cfg:       cfg,
		formatter: formatter,
		logger:    log.With().Str("emitter", "stdout").Logger(),
		w:         w,
		json:      zerolog.New(zerolog.SyncWriter(w)),
	}
}

func (s *StdoutEmitter) Name() string { return "stdout" }

func (s *StdoutEmitter) Start(context.Context) error {
	s.logger.Debug().Str("format", s.cfg.Format).Msg("echo started")
	return nil
}

func (s *StdoutEmitter) Stop(context.Context) error {
	s.logger.Debug().Msg("echo stopped")
	return nil
}

// Emit writes rec as one line.
func (s *StdoutEmitter) Emit(_ context.Context, rec discordlog.Record) error {
	if s.cfg.Format == "json" {
		ev := s.json.Log()
		for _, f := range rec.Fields {
			ev = ev.Str(f.Key, f.Value)
		}
		if rec.Source != nil {
			ev = ev.Str("caller", rec.Source.String())
		}
		ev.Time("time", rec.Time).
			Str("level", rec.Level.String()).
			Str("logger", rec.Logger).
			Str("message", rec.Message).
			Send()
		return nil
	}

	line := s.formatter.Format(rec) + "\n"
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, line)
	return err
}
