package cli

import (
	"log/slog"
	"os"

	"github.com/me/pitwall/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking PITWALL_SERVER env var first.
func defaultServer() string {
	if s := os.Getenv("PITWALL_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// NewRootCmd creates the root cobra command for the pitwall CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pitwall",
		Short: "Pitwall arena scheduler",
		Long:  "Pitwall queues teams, runs them on arena slots, and resolves run reviews.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)
			client = NewClient(flagServer, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "Pitwall server URL (or PITWALL_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newJoinCmd(),
		newStatusCmd(),
		newWatchCmd(),
		newStartCmd(),
		newPauseCmd(),
		newResumeCmd(),
		newFlagCmd(),
		newEndCmd(),
		newReviewCmd(),
		newDurationCmd(),
	)

	return root
}
