package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/GabrielNunesIT/discordlog/internal/emitter"
	"github.com/GabrielNunesIT/discordlog/internal/logging"
	"github.com/GabrielNunesIT/discordlog/pkg/discordlog"
)

// NewSendCmd creates the send command.
func NewSendCmd(cfgFile, logLevel *string) *cobra.Command {
	var (
		level  string
		logger string
	)

	cmd := &cobra.Command{
		Use:   "send [message...]",
		Short: "Send one message to Discord and report the outcome",
		Long: `Send renders a single record with the configured template and delivers it.
With no arguments, or "-", the message is read from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := readMessage(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			lvl, err := discordlog.ParseLevel(level)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd, *cfgFile)
			if err != nil {
				return err
			}
			log := logging.Setup(diagnosticLevel(*logLevel, cfg))

			fallback := logging.NewFallback(cfg.Fallback)
			defer fallback.Close()

			d, err := emitter.NewDiscordEmitter(cfg.Discord, fallback.Logger, log)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := d.Start(ctx); err != nil {
				return err
			}
			defer d.Stop(ctx)

			rec := discordlog.Record{
				Time:    time.Now(),
				Level:   lvl,
				Logger:  logger,
				Message: msg,
			}
			if err := d.Emit(ctx, rec); err != nil {
				return err
			}

			st := d.Stats()
			switch {
			case st.Failed > 0:
				return fmt.Errorf("delivery failed: %d of %d chunks", st.Failed, st.Sent+st.Failed)
			case st.Sent == 0:
				fmt.Fprintln(cmd.OutOrStdout(), "nothing sent: message empty or below the configured level")
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "sent %d chunk(s)\n", st.Sent)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&level, "severity", "s", "info", "record level (debug, info, warning, error, critical)")
	cmd.Flags().StringVar(&logger, "logger", "discordlog", "logger name shown in the message")
	cmd.Flags().String("level", "", "minimum level forwarded to Discord")

	return cmd
}

// readMessage joins args, or reads r when args are empty or "-".
func readMessage(r io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}
