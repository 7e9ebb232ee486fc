package app

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/leechkit/internal/config"
	"github.com/blackwell-systems/leechkit/internal/output"
	"github.com/blackwell-systems/leechkit/internal/scanner"
)

var (
	explainOpts scanFlags

	explainCmd = &cobra.Command{
		Use:   "explain <card-id>",
		Short: "Show the trials and test behind one card's verdict",
		Long: `Show how a card was classified.

Every trial is listed with its date, the days elapsed since the previous study
day, the stability and predicted recall probability it was scored with, and
whether it succeeded. The p and t columns give the test evaluated on the trials
up to and including that row, and Crossed marks the rows where p < t.`,
		Example: `  leechkit explain 1735732800123 -c ~/collection.db
  leechkit explain 1735732800123 -c ~/collection.db --incremental-check --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: runExplain,
	}
)

func init() {
	addDetectorFlags(explainCmd, &explainOpts)
}

func runExplain(cmd *cobra.Command, args []string) error {
	cardID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid card ID: %s (must be a number)", args[0])
	}

	cfg, err := loadConfig(cmd, &explainOpts)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	rollover, err := st.Rollover()
	if err != nil {
		return err
	}
	dcfg, err := cfg.DetectorConfig(rollover)
	if err != nil {
		return err
	}
	kinds, err := cfg.KindSet()
	if err != nil {
		return err
	}

	_, ex, err := scanner.New(st).Explain(cmd.Context(), cardID, dcfg, kinds)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cfg.Format != config.FormatTable {
		return output.Encode(out, cfg.Format, output.NewExplanation(cardID, ex))
	}
	fmt.Fprint(out, output.RenderTrialTable(cardID, ex))
	return nil
}
