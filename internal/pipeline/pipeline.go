// Package pipeline moves log lines from sources, through per-source processor
// chains, into the Discord emitter.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/GabrielNunesIT/discordlog/internal/config"
	"github.com/GabrielNunesIT/discordlog/internal/emitter"
	"github.com/GabrielNunesIT/discordlog/internal/ingestor"
	"github.com/GabrielNunesIT/discordlog/internal/model"
	"github.com/GabrielNunesIT/discordlog/internal/processor"
	"github.com/GabrielNunesIT/discordlog/pkg/discordlog"
)

// Emitter names.
const (
	DiscordEmitter = "discord"
	EchoEmitter    = "stdout"
)

// IngestorFactory builds the named source from cfg.
type IngestorFactory func(name string, cfg *config.Config) (ingestor.Ingestor, error)

// EmitterFactory builds the named emitter from cfg.
type EmitterFactory func(name string, cfg *config.Config) (emitter.Emitter, error)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithIngestorFactory replaces how sources are built.
func WithIngestorFactory(f IngestorFactory) Option {
	return func(p *Pipeline) {
		p.newIngestor = f
	}
}

// WithEmitterFactory replaces how emitters are built.
func WithEmitterFactory(f EmitterFactory) Option {
	return func(p *Pipeline) {
		p.newEmitter = f
	}
}

// WithFallback sets where Discord delivery failures are reported.
func WithFallback(l zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.fallback = l
	}
}

// managedIngestor wraps an ingestor with its lifecycle management.
type managedIngestor struct {
	ingestor  ingestor.Ingestor
	processor *processor.Chain
	cancel    context.CancelFunc
	done      chan struct{}
}

// Pipeline coordinates ingestors, processors, and emitters.
type Pipeline struct {
	cfg          *config.Config
	defaultLevel discordlog.Level
	logger       zerolog.Logger
	fallback     zerolog.Logger
	mu           sync.RWMutex

	newIngestor IngestorFactory
	newEmitter  EmitterFactory

	ingestors map[string]*managedIngestor
	emitters  map[string]emitter.Emitter

	// fanoutChan receives processed entries for distribution to emitters.
	fanoutChan chan *model.LogEntry
	bufferSize int

	runCtx context.Context
}

// New creates a new pipeline from configuration.
func New(cfg *config.Config, log zerolog.Logger, opts ...Option) (*Pipeline, error) {
	level, err := discordlog.ParseLevel(cfg.Pipeline.DefaultLevel)
	if err != nil {
		return nil, fmt.Errorf("pipeline default level: %w", err)
	}

	p := &Pipeline{
		cfg:          cfg,
		defaultLevel: level,
		logger:       log.With().Str("component", "pipeline").Logger(),
		fallback:     discordlog.DefaultFallback(),
		ingestors:    make(map[string]*managedIngestor),
		emitters:     make(map[string]emitter.Emitter),
		fanoutChan:   make(chan *model.LogEntry, cfg.Pipeline.BufferSize),
		bufferSize:   cfg.Pipeline.BufferSize,
	}
	p.newIngestor = p.buildIngestor
	p.newEmitter = p.buildEmitter
	for _, opt := range opts {
		opt(p)
	}

	if err := p.buildIngestors(); err != nil {
		return nil, fmt.Errorf("building ingestors: %w", err)
	}

	if err := p.buildEmitters(); err != nil {
		return nil, fmt.Errorf("building emitters: %w", err)
	}

	return p, nil
}

// sourceNames lists every source in a stable order.
var sourceNames = []string{"file", "syslog", "journal", "stdin"}

func sourceEnabled(name string, cfg *config.Config) bool {
	switch name {
	case "file":
		return cfg.Sources.File.Enabled
	case "syslog":
		return cfg.Sources.Syslog.Enabled
	case "journal":
		return cfg.Sources.Journal.Enabled
	case "stdin":
		return cfg.Sources.Stdin.Enabled
	}
	return false
}

func processorConfig(name string, cfg *config.Config) config.ProcessorConfig {
	switch name {
	case "file":
		return cfg.Sources.File.Processor
	case "syslog":
		return cfg.Sources.Syslog.Processor
	case "journal":
		return cfg.Sources.Journal.Processor
	default:
		return cfg.Sources.Stdin.Processor
	}
}

// buildIngestor is the default IngestorFactory.
func (p *Pipeline) buildIngestor(name string, cfg *config.Config) (ingestor.Ingestor, error) {
	switch name {
	case "file":
		return ingestor.NewFileIngestor(cfg.Sources.File, p.logger), nil
	case "syslog":
		return ingestor.NewSyslogIngestor(cfg.Sources.Syslog, p.logger), nil
	case "journal":
		return ingestor.NewJournalIngestor(cfg.Sources.Journal, p.logger)
	case "stdin":
		return ingestor.NewStdinIngestor(cfg.Sources.Stdin, p.logger), nil
	default:
		return nil, fmt.Errorf("unknown ingestor: %s", name)
	}
}

// buildEmitter is the default EmitterFactory.
func (p *Pipeline) buildEmitter(name string, cfg *config.Config) (emitter.Emitter, error) {
	switch name {
	case DiscordEmitter:
		return emitter.NewDiscordEmitter(cfg.Discord, p.fallback, p.logger)
	case EchoEmitter:
		f, err := discordlog.NewFormatter(cfg.Discord.Format, cfg.Discord.TimeFormat)
		if err != nil {
			return nil, err
		}
		return emitter.NewStdoutEmitter(cfg.Echo, f, p.logger), nil
	default:
		return nil, fmt.Errorf("unknown emitter: %s", name)
	}
}

// managed creates the ingestor and its processor chain.
func (p *Pipeline) managed(name string, cfg *config.Config) (*managedIngestor, error) {
	ing, err := p.newIngestor(name, cfg)
	if err != nil {
		return nil, err
	}
	chain, err := p.buildProcessorChain(processorConfig(name, cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	p.logger.Debug().Str("ingestor", name).Strs("processors", chain.Names()).Msg("built processor chain")
	return &managedIngestor{
		ingestor:  ing,
		processor: chain,
		done:      make(chan struct{}),
	}, nil
}

// buildIngestors creates enabled ingestors with their processor chains.
func (p *Pipeline) buildIngestors() error {
	for _, name := range sourceNames {
		if !sourceEnabled(name, p.cfg) {
			continue
		}
		mi, err := p.managed(name, p.cfg)
		if err != nil {
			return err
		}
		p.ingestors[name] = mi
	}

	if len(p.ingestors) == 0 {
		return errors.New("no ingestors enabled")
	}

	p.logger.Debug().Int("count", len(p.ingestors)).Msg("built ingestors")
	return nil
}

// buildProcessorChain creates a processor chain from config.
func (p *Pipeline) buildProcessorChain(cfg config.ProcessorConfig) (*processor.Chain, error) {
	chain := processor.NewChain()

	if cfg.Filter.Enabled {
		filter, err := processor.NewFilter(cfg.Filter)
		if err != nil {
			return nil, fmt.Errorf("creating filter: %w", err)
		}
		chain.Add(filter)
	}

	if cfg.Parser.Enabled {
		parser, err := processor.NewParser(cfg.Parser)
		if err != nil {
			return nil, fmt.Errorf("creating parser: %w", err)
		}
		chain.Add(parser)
	}

	if cfg.Enricher.Enabled {
		chain.Add(processor.NewEnricher(cfg.Enricher))
	}

	return chain, nil
}

// buildEmitters creates the Discord emitter and the optional echo.
func (p *Pipeline) buildEmitters() error {
	d, err := p.newEmitter(DiscordEmitter, p.cfg)
	if err != nil {
		return err
	}
	p.emitters[DiscordEmitter] = d

	if p.cfg.Echo.Enabled {
		e, err := p.newEmitter(EchoEmitter, p.cfg)
		if err != nil {
			return err
		}
		p.emitters[EchoEmitter] = e
	}

	p.logger.Debug().Int("count", len(p.emitters)).Msg("built emitters")
	return nil
}

// Run starts the pipeline and blocks until context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	p.runCtx = runCtx
	for name, em := range p.emitters {
		if err := em.Start(runCtx); err != nil {
			p.mu.Unlock()
			p.shutdown()
			return fmt.Errorf("starting emitter %s: %w", name, err)
		}
		p.logger.Debug().Str("emitter", name).Msg("started emitter")
	}
	p.mu.Unlock()

	g, gCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return p.runFanout(gCtx)
	})

	p.mu.Lock()
	for name, mi := range p.ingestors {
		ingestorCtx, cancel := context.WithCancel(gCtx)
		mi.cancel = cancel

		g.Go(func() error {
			defer close(mi.done)
			p.logger.Debug().Str("ingestor", name).Msg("started ingestor")
			return p.runIngestorPipeline(ingestorCtx, name, mi)
		})
	}
	p.mu.Unlock()

	err := g.Wait()

	p.shutdown()

	return err
}

// shutdown gracefully stops all emitters.
func (p *Pipeline) shutdown() {
	p.mu.RLock()
	timeout := p.cfg.Pipeline.ShutdownTimeout
	emitters := make(map[string]emitter.Emitter, len(p.emitters))
	for name, em := range p.emitters {
		emitters[name] = em
	}
	p.mu.RUnlock()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for name, em := range emitters {
		if err := em.Stop(shutdownCtx); err != nil {
			p.logger.Warn().Err(err).Str("emitter", name).Msg("emitter stop error")
		}
	}
	p.logger.Debug().Msg("all emitters stopped")
}

// runIngestorPipeline runs a single ingestor and its processor chain.
func (p *Pipeline) runIngestorPipeline(ctx context.Context, name string, mi *managedIngestor) error {
	rawChan := make(chan *model.LogEntry, p.bufferSize)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for entry := range rawChan {
			if err := mi.processor.Process(ctx, entry); err != nil {
				if !errors.Is(err, processor.ErrDropped) {
					p.logger.Debug().Err(err).Str("ingestor", name).Msg("processor error")
				}
				continue
			}

			select {
			case p.fanoutChan <- entry:
			case <-ctx.Done():
				// Keep draining so the ingestor can close rawChan.
			}
		}
	}()

	err := mi.ingestor.Start(ctx, rawChan)

	wg.Wait()

	if errors.Is(err, context.Canceled) {
		err = nil
	}
	p.logger.Debug().Str("ingestor", name).Msg("ingestor stopped")
	return err
}

// runFanout distributes entries to all emitters. On cancellation it drains
// what is already buffered.
func (p *Pipeline) runFanout(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case entry := <-p.fanoutChan:
					p.emitToAll(context.WithoutCancel(ctx), entry)
				default:
					return nil
				}
			}
		case entry := <-p.fanoutChan:
			p.emitToAll(ctx, entry)
		}
	}
}

// emitToAll converts an entry once and sends it to every emitter. The read
// lock is held until every emitter returns, so Reconfigure never stops an
// emitter mid-send.
func (p *Pipeline) emitToAll(ctx context.Context, entry *model.LogEntry) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	rec := entry.Record(p.defaultLevel)

	var wg sync.WaitGroup
	for _, em := range p.emitters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := em.Emit(ctx, rec); err != nil {
				p.logger.Debug().Err(err).Str("emitter", em.Name()).Msg("emit error")
			}
		}()
	}
	wg.Wait()
}

// Reconfigure applies a new configuration. Sources are added or removed and
// a changed Discord section replaces the Discord emitter.
func (p *Pipeline) Reconfigure(newCfg *config.Config) error {
	level, err := discordlog.ParseLevel(newCfg.Pipeline.DefaultLevel)
	if err != nil {
		return fmt.Errorf("pipeline default level: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.runCtx == nil {
		return errors.New("pipeline is not running")
	}

	oldCfg := p.cfg

	if err := p.reconfigureEmitters(oldCfg, newCfg); err != nil {
		return fmt.Errorf("reconfiguring emitters: %w", err)
	}

	if err := p.reconfigureIngestors(oldCfg, newCfg); err != nil {
		return fmt.Errorf("reconfiguring ingestors: %w", err)
	}

	p.cfg = newCfg
	p.defaultLevel = level

	p.logger.Info().Int("ingestors", len(p.ingestors)).Int("emitters", len(p.emitters)).
		Msg("configuration applied")

	return nil
}

// reconfigureIngestors handles adding/removing ingestors.
func (p *Pipeline) reconfigureIngestors(oldCfg, newCfg *config.Config) error {
	for _, name := range sourceNames {
		was, is := sourceEnabled(name, oldCfg), sourceEnabled(name, newCfg)
		switch {
		case was && !is:
			p.removeIngestor(name)
		case is && !was:
			if err := p.addIngestor(name, newCfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// addIngestor adds a new ingestor at runtime.
func (p *Pipeline) addIngestor(name string, cfg *config.Config) error {
	mi, err := p.managed(name, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(p.runCtx)
	mi.cancel = cancel
	p.ingestors[name] = mi

	go func() {
		defer close(mi.done)
		if err := p.runIngestorPipeline(ctx, name, mi); err != nil {
			p.logger.Warn().Err(err).Str("ingestor", name).Msg("ingestor error")
		}
	}()

	p.logger.Info().Str("ingestor", name).Msg("ingestor added")
	return nil
}

// removeIngestor stops and removes an ingestor.
func (p *Pipeline) removeIngestor(name string) {
	mi, ok := p.ingestors[name]
	if !ok {
		return
	}

	if mi.cancel != nil {
		mi.cancel()
	}
	<-mi.done

	delete(p.ingestors, name)
	p.logger.Info().Str("ingestor", name).Msg("ingestor removed")
}

// reconfigureEmitters swaps the Discord emitter when its section changed and
// toggles the echo.
func (p *Pipeline) reconfigureEmitters(oldCfg, newCfg *config.Config) error {
	if oldCfg.Discord != newCfg.Discord {
		if err := p.replaceEmitter(DiscordEmitter, newCfg); err != nil {
			return err
		}
	}

	switch {
	case oldCfg.Echo.Enabled && !newCfg.Echo.Enabled:
		p.removeEmitter(EchoEmitter)
	case newCfg.Echo.Enabled && (!oldCfg.Echo.Enabled || oldCfg.Echo != newCfg.Echo ||
		oldCfg.Discord.Format != newCfg.Discord.Format):
		if err := p.replaceEmitter(EchoEmitter, newCfg); err != nil {
			return err
		}
	}
	return nil
}

// replaceEmitter starts a new emitter, swaps it in, then stops the old one.
// On failure the old emitter stays in place.
func (p *Pipeline) replaceEmitter(name string, cfg *config.Config) error {
	em, err := p.newEmitter(name, cfg)
	if err != nil {
		return err
	}
	if err := em.Start(p.runCtx); err != nil {
		return fmt.Errorf("starting emitter %s: %w", name, err)
	}

	old := p.emitters[name]
	p.emitters[name] = em
	if old != nil {
		p.stopEmitter(name, old)
	}

	p.logger.Info().Str("emitter", name).Msg("emitter replaced")
	return nil
}

// removeEmitter stops and removes an emitter.
func (p *Pipeline) removeEmitter(name string) {
	em, ok := p.emitters[name]
	if !ok {
		return
	}
	delete(p.emitters, name)
	p.stopEmitter(name, em)
	p.logger.Info().Str("emitter", name).Msg("emitter removed")
}

func (p *Pipeline) stopEmitter(name string, em emitter.Emitter) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Pipeline.ShutdownTimeout)
	defer cancel()

	if err := em.Stop(ctx); err != nil {
		p.logger.Warn().Err(err).Str("emitter", name).Msg("emitter stop error")
	}
}

// IngestorCount returns the number of enabled ingestors.
func (p *Pipeline) IngestorCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.ingestors)
}

// EmitterCount returns the number of enabled emitters.
func (p *Pipeline) EmitterCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.emitters)
}
