// Package cli implements the wdl2vidarr and vidarr-build commands.
package cli

import (
	"log/slog"

	"github.com/me/wdl2vidarr/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
)

// addLoggingFlags registers the logging flags on a root command and creates
// the logger before any subcommand runs.
func addLoggingFlags(root *cobra.Command) {
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logger = logging.FromOptions(logging.Options{
			Level:  flagLogLevel,
			Format: flagLogFormat,
			Debug:  flagDebug,
		}, cmd.ErrOrStderr())
	}

	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")
}
