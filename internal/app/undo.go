package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/leechkit/internal/output"
	"github.com/blackwell-systems/leechkit/internal/store"
)

var undoFlagList bool

var undoCmd = &cobra.Command{
	Use:   "undo [run-id | latest]",
	Short: "Revert the tags and flags written by a scan",
	Long: `Revert a run recorded by 'leechkit scan --write'.

Tags the run added are removed from their notes and card flags are restored to
their values before the run. Tags that were already present are left alone.

Arguments:
  run-id  The ID of the run to revert
  latest  Revert the most recent run that has not been reverted`,
	Example: `  leechkit undo --list -c ~/collection.db     # List recorded runs
  leechkit undo latest -c ~/collection.db     # Revert the latest run
  leechkit undo 6f1c... -c ~/collection.db    # Revert a specific run`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUndo,
}

func init() {
	undoCmd.Flags().BoolVar(&undoFlagList, "list", false, "list recorded runs")
}

func runUndo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()

	if undoFlagList {
		runs, err := st.ListRuns()
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		fmt.Fprint(out, output.RenderRunTable(runs))
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("run ID or 'latest' required\n\nUsage: leechkit undo [run-id | latest]\n\nUse 'leechkit undo --list' to see recorded runs")
	}

	runID := args[0]
	if strings.EqualFold(runID, "latest") {
		run, err := st.LatestRun()
		if errors.Is(err, store.ErrRunNotFound) {
			return fmt.Errorf("no runs to revert: %w", err)
		}
		if err != nil {
			return err
		}
		runID = run.ID
		fmt.Fprintf(out, "Using latest run: %s\n", runID)
	}

	n, err := st.RevertRun(runID)
	if errors.Is(err, store.ErrRunNotFound) {
		return fmt.Errorf("%w\n\nRun 'leechkit undo --list' to see recorded runs", err)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Reverted run %s: restored %d cards\n", runID, n)
	return nil
}
