package app

import (
	"github.com/spf13/cobra"
)

var (
	collectionPath string
	configPath     string
	logLevel       string

	// RootCmd is the root command for leechkit
	RootCmd = &cobra.Command{
		Use:   "leechkit",
		Short: "Find leech cards with a statistical test on their review history",
		Long: `leechkit finds leeches: cards you keep failing far more often than their
memory model predicts.

Each card's reviews are grouped into study days. Every transition from one
study day to the next is a trial whose success probability is the card's
predicted retrievability. The number of successful trials is compared against
the exact Poisson-binomial distribution of those probabilities, and a card whose
record is improbably bad is reported as a leech.

Settings are read from ~/.config/leechkit/config.yaml, then LEECHKIT_*
environment variables, then command-line flags.

Examples:
  # Report leeches in a collection
  leechkit scan --collection ~/collection.db

  # Tag and flag the leeches of one deck
  leechkit scan --collection ~/collection.db --deck Japanese --write --flag

  # Show the working behind one card
  leechkit explain 1735732800123 --collection ~/collection.db

  # Undo the last write
  leechkit undo latest --collection ~/collection.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVarP(&collectionPath, "collection", "c", "", "path to the collection database")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ~/.config/leechkit/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(scanCmd)
	RootCmd.AddCommand(explainCmd)
	RootCmd.AddCommand(watchCmd)
	RootCmd.AddCommand(undoCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}
