package ingestor

import (
	"bufio"
	"context"
	"io"
	"os"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/GabrielNunesIT/discordlog/internal/config"
	"github.com/GabrielNunesIT/discordlog/internal/model"
)

// multilineFlush is how long a multi-line entry waits for more lines.
const multilineFlush = 250 * time.Millisecond

// continuation matches stack trace lines that belong to the previous entry.
var continuation = regexp.MustCompile(`^([ \t]|Traceback \(|Caused by:|\.\.\. \d+ more|[\w.]+(Error|Exception)\b)`)

// StdinIngestor reads log entries from standard input, one per line, or one
// per multi-line block when configured.
type StdinIngestor struct {
	cfg    config.StdinSourceConfig
	reader io.Reader
	logger zerolog.Logger
}

// NewStdinIngestor creates a new stdin ingestor.
func NewStdinIngestor(cfg config.StdinSourceConfig, log zerolog.Logger) *StdinIngestor {
	return NewStdinIngestorWithReader(cfg, os.Stdin, log)
}

// NewStdinIngestorWithReader reads from r instead of os.Stdin.
func NewStdinIngestorWithReader(cfg config.StdinSourceConfig, r io.Reader, log zerolog.Logger) *StdinIngestor {
	return &StdinIngestor{
		cfg:    cfg,
		reader: r,
		logger: log.With().Str("ingestor", "stdin").Logger(),
	}
}

func (s *StdinIngestor) Name() string { return "stdin" }

// Start reads until EOF or ctx is done. Blank lines are skipped.
func (s *StdinIngestor) Start(ctx context.Context, out chan<- *model.LogEntry) error {
	defer close(out)
	if err := ctx.Err(); err != nil {
		return err
	}

	s.logger.Info().Bool("multiline", s.cfg.Multiline).Msg("reading from stdin")

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go s.scan(ctx, lines, scanErr)

	flush := time.NewTimer(multilineFlush)
	flush.Stop()
	defer flush.Stop()

	var (
		pending *model.LogEntry
		count   int
	)
	send := func() bool {
		if pending == nil {
			return true
		}
		select {
		case out <- pending:
			pending = nil
			count++
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug().Int("entries", count).Msg("stdin ingestor stopped")
			return ctx.Err()

		case <-flush.C:
			if !send() {
				return ctx.Err()
			}

		case line, ok := <-lines:
			if !ok {
				if !send() {
					return ctx.Err()
				}
				if err := <-scanErr; err != nil {
					s.logger.Error().Err(err).Msg("stdin read error")
					return err
				}
				s.logger.Info().Int("entries", count).Msg("EOF reached")
				return nil
			}

			if s.cfg.Multiline && pending != nil && continuation.Match(line) {
				pending.Raw = append(append(pending.Raw, '\n'), line...)
				flush.Reset(multilineFlush)
				continue
			}
			if !send() {
				return ctx.Err()
			}
			pending = model.NewLogEntry(s.Name(), line)
			if !s.cfg.Multiline {
				if !send() {
					return ctx.Err()
				}
				continue
			}
			flush.Reset(multilineFlush)
		}
	}
}

// scan feeds non-empty lines to lines and closes it at EOF. The read error,
// if any, is sent on errc before the close.
func (s *StdinIngestor) scan(ctx context.Context, lines chan<- []byte, errc chan<- error) {
	scanner := bufio.NewScanner(s.reader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		// Scanner reuses its buffer.
		raw := make([]byte, len(line))
		copy(raw, line)

		select {
		case lines <- raw:
		case <-ctx.Done():
			return
		}
	}
	errc <- scanner.Err()
	close(lines)
}
