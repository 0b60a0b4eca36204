package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/discordlog/internal/emitter"
	"github.com/GabrielNunesIT/discordlog/internal/pipeline"
)

// NewValidateCmd creates the validate command.
func NewValidateCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration without contacting Discord",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *cfgFile)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			if _, err := emitter.NewDiscordEmitter(cfg.Discord, zerolog.Nop(), zerolog.Nop()); err != nil {
				return fmt.Errorf("discord configuration error: %w", err)
			}

			transport := "webhook"
			if cfg.Discord.BotToken != "" {
				transport = "bot"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration valid:\n")
			fmt.Fprintf(out, "  Transport: %s\n", transport)
			fmt.Fprintf(out, "  Level:     %s\n", cfg.Discord.Level)

			if !cfg.Sources.Enabled() {
				fmt.Fprintf(out, "  Sources:   none enabled (send only)\n")
				return nil
			}

			p, err := pipeline.New(cfg, zerolog.Nop())
			if err != nil {
				return fmt.Errorf("pipeline configuration error: %w", err)
			}
			fmt.Fprintf(out, "  Sources:   %d enabled\n", p.IngestorCount())
			fmt.Fprintf(out, "  Emitters:  %d enabled\n", p.EmitterCount())
			return nil
		},
	}
}
