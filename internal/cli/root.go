// Package cli wires the discordlog commands.
package cli

import (
	"github.com/spf13/cobra"
)

// Execute builds and runs the CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile  string
		logLevel string
	)

	rootCmd := &cobra.Command{
		Use:   "discordlog",
		Short: "Forward log lines to a Discord channel",
		Long: `discordlog forwards log records to Discord through a webhook or a bot
channel. Messages longer than Discord's limit are split into ordered chunks,
and failed deliveries are reported to a local fallback log instead of being
retried.

The run command tails sources (stdin, files, syslog, systemd journal), parses
levels and fields, and forwards every line at or above the configured level.

Hot-reload: When a config file is specified, changes are automatically applied
without requiring a restart.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./discordlog.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "diagnostic log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(
		NewRunCmd(&cfgFile, &logLevel),
		NewSendCmd(&cfgFile, &logLevel),
		NewValidateCmd(&cfgFile),
		NewVersionCmd(),
	)

	return rootCmd
}
