package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/discordlog/internal/config"
	"github.com/GabrielNunesIT/discordlog/internal/logging"
	"github.com/GabrielNunesIT/discordlog/internal/pipeline"
)

// NewRunCmd creates the run command.
func NewRunCmd(cfgFile, logLevel *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Forward log sources to Discord until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, cfgFile, logLevel)
		},
	}

	// Source flags
	cmd.Flags().Bool("stdin", false, "forward lines read from stdin")
	cmd.Flags().Bool("multiline", false, "join indented and stack trace lines on stdin into one message")
	cmd.Flags().StringSlice("file", nil, "file paths to tail (enables file source)")
	cmd.Flags().String("syslog-address", "", "syslog listen address (enables syslog source)")
	cmd.Flags().Bool("journal", false, "forward the systemd journal")

	// Output flags
	cmd.Flags().String("level", "", "minimum level forwarded to Discord")
	cmd.Flags().Bool("echo", false, "also print forwarded records to stdout")
	cmd.Flags().String("echo-format", "", "echo format (text, json)")

	cmd.Flags().Bool("hot-reload", true, "enable hot-reload of config file")

	return cmd
}

// loadConfig loads, overrides, and validates the configuration.
func loadConfig(cmd *cobra.Command, cfgFile string) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	applyCLIOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func diagnosticLevel(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.LogLevel
}

func runPipeline(cmd *cobra.Command, cfgFile, logLevel *string) error {
	cfg, err := loadConfig(cmd, *cfgFile)
	if err != nil {
		return err
	}

	log := logging.Setup(diagnosticLevel(*logLevel, cfg))

	fallback := logging.NewFallback(cfg.Fallback)
	defer fallback.Close()

	p, err := pipeline.New(cfg, log, pipeline.WithFallback(fallback.Logger))
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	log.Info().Int("ingestors", p.IngestorCount()).Int("emitters", p.EmitterCount()).
		Msg("starting discordlog")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	reload := func(newCfg *config.Config) {
		applyCLIOverrides(cmd, newCfg)
		if err := newCfg.Validate(); err != nil {
			log.Error().Err(err).Msg("reloaded config is invalid, keeping current config")
			return
		}
		if err := p.Reconfigure(newCfg); err != nil {
			log.Error().Err(err).Msg("reconfigure failed")
		}
	}

	hotReloadEnabled, _ := cmd.Flags().GetBool("hot-reload")
	if *cfgFile != "" && hotReloadEnabled {
		startConfigWatcher(ctx, *cfgFile, reload, log)
	}

	go handleSignals(ctx, cancel, sigChan, *cfgFile, reload, log)

	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("pipeline error: %w", err)
	}

	log.Info().Msg("discordlog stopped")
	return nil
}

func startConfigWatcher(ctx context.Context, cfgFile string, reload func(*config.Config), log zerolog.Logger) {
	watcher := config.NewConfigWatcher(cfgFile, log)
	if err := watcher.Start(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to start config watcher")
		return
	}

	log.Info().Str("config", cfgFile).Msg("hot-reload enabled")

	go func() {
		for {
			select {
			case newCfg := <-watcher.Changes():
				reload(newCfg)
			case err := <-watcher.Errors():
				log.Error().Err(err).Msg("config watcher error")
			case <-ctx.Done():
				return
			}
		}
	}()
}

func handleSignals(ctx context.Context, cancel context.CancelFunc, sigChan <-chan os.Signal, cfgFile string, reload func(*config.Config), log zerolog.Logger) {
	for {
		select {
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGHUP:
				log.Info().Msg("received SIGHUP, reloading config")
				newCfg, err := config.Load(cfgFile)
				if err != nil {
					log.Error().Err(err).Msg("failed to reload config")
					continue
				}
				reload(newCfg)
			case syscall.SIGINT, syscall.SIGTERM:
				log.Info().Stringer("signal", sig).Msg("received shutdown signal")
				cancel()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func applyCLIOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if v, _ := flags.GetBool("stdin"); v {
		cfg.Sources.Stdin.Enabled = true
	}
	if v, _ := flags.GetBool("multiline"); v {
		cfg.Sources.Stdin.Multiline = true
	}
	if v, _ := flags.GetBool("journal"); v {
		cfg.Sources.Journal.Enabled = true
	}
	if files, _ := flags.GetStringSlice("file"); len(files) > 0 {
		cfg.Sources.File.Enabled = true
		cfg.Sources.File.Paths = files
	}
	if addr, _ := flags.GetString("syslog-address"); addr != "" {
		cfg.Sources.Syslog.Enabled = true
		cfg.Sources.Syslog.Address = addr
	}
	if level, _ := flags.GetString("level"); level != "" {
		cfg.Discord.Level = level
	}
	if v, _ := flags.GetBool("echo"); v {
		cfg.Echo.Enabled = true
	}
	if format, _ := flags.GetString("echo-format"); format != "" {
		cfg.Echo.Format = format
	}
}
