package app

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/leechkit/internal/config"
	"github.com/blackwell-systems/leechkit/internal/metrics"
	"github.com/blackwell-systems/leechkit/internal/output"
	"github.com/blackwell-systems/leechkit/internal/scanner"
	"github.com/blackwell-systems/leechkit/internal/store"
)

var (
	scanOpts scanFlags

	scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "Check cards for leeches",
		Long: `Check every selected card of the collection and report the leeches.

By default nothing is written. With --write, every leech note gets the tag
given by --tag, and with --flag the leech card also gets flag 1. All changes
made by one scan are recorded as a run that 'leechkit undo' can revert.

Cards with too little history (fewer study days than --skip-reviews plus one)
are never leeches.`,
		Example: `  # Report leeches in all decks
  leechkit scan --collection ~/collection.db

  # Only the Japanese deck, stricter threshold, machine-readable output
  leechkit scan -c ~/collection.db --deck Japanese --leech-threshold 0.01 --format json

  # Tag and flag leeches
  leechkit scan -c ~/collection.db --write --flag`,
		Args: cobra.NoArgs,
		RunE: runScan,
	}
)

func init() {
	addScanFlags(scanCmd, &scanOpts)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, &scanOpts)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	_, err = executeScan(cmd.Context(), cfg, st, metrics.NewManager(), cmd.OutOrStdout())
	return err
}

// executeScan runs one scan and prints it in the configured format.
func executeScan(ctx context.Context, cfg *config.Config, st *store.Store, m *metrics.Manager, out io.Writer) (*output.Report, error) {
	rollover, err := st.Rollover()
	if err != nil {
		return nil, err
	}
	dcfg, err := cfg.DetectorConfig(rollover)
	if err != nil {
		return nil, err
	}
	kinds, err := cfg.KindSet()
	if err != nil {
		return nil, err
	}

	table := cfg.Format == config.FormatTable
	report := &output.Report{Options: scanOptions(cfg, rollover)}

	if table {
		fmt.Fprint(out, output.RenderOptionsTable(report.Options))
		fmt.Fprintln(out)
		fmt.Fprintln(out, output.Bold("Searching for leeches"))
		fmt.Fprintln(out)
	}

	var bar *output.ProgressBar
	opts := scanner.Options{
		Query:    store.CardQuery{Deck: cfg.Deck, Tag: cfg.QueryTag},
		Detector: dcfg,
		Exclude:  kinds,
		Workers:  cfg.Workers,
		Write:    cfg.Write,
		Tag:      cfg.Tag,
		Flag:     cfg.Flag,
		OnStart: func(total int) {
			if table {
				bar = output.NewProgress(total, "Checking cards")
				bar.SetWriter(out)
			}
		},
		OnResult: func(r scanner.CardResult) {
			report.Checked++
			switch {
			case r.Err != nil:
				report.Errors = append(report.Errors, output.CardError{CardID: r.Card.ID, Error: r.Err.Error()})
			case r.IsLeech():
				l := output.NewLeech(r.Card.ID, r.Card.NoteID, r.Card.Deck, r.Result)
				report.Leeches = append(report.Leeches, l)
				if bar != nil {
					bar.Println(output.FormatLeech(l))
				}
			}
			if bar != nil {
				bar.Increment()
			}
		},
	}

	res, err := scanner.New(st, scanner.WithMetrics(m)).Scan(ctx, opts)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return report, err
	}
	if res.Run != nil {
		report.RunID = res.Run.ID
	}

	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			return report, fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	if !table {
		return report, output.Encode(out, cfg.Format, report)
	}

	fmt.Fprintln(out)
	if len(report.Errors) > 0 {
		fmt.Fprint(out, output.RenderErrors(report.Errors))
	}
	fmt.Fprint(out, output.RenderSummary(report))
	return report, nil
}

// scanOptions lists the effective settings shown before a scan.
func scanOptions(cfg *config.Config, rollover int) []output.Option {
	query := "all cards"
	var parts []string
	if cfg.Deck != "" {
		parts = append(parts, "deck:"+cfg.Deck)
	}
	if cfg.QueryTag != "" {
		parts = append(parts, "tag:"+cfg.QueryTag)
	}
	if len(parts) > 0 {
		query = strings.Join(parts, " ")
	}

	return []output.Option{
		{Name: "query", Value: query},
		{Name: "skip_reviews", Value: strconv.Itoa(cfg.Detector.SkipReviews)},
		{Name: "max_reviews", Value: strconv.Itoa(cfg.Detector.MaxReviews)},
		{Name: "leech_threshold", Value: strconv.FormatFloat(cfg.Detector.LeechThreshold, 'g', -1, 64)},
		{Name: "dynamic_threshold", Value: strconv.FormatBool(cfg.Detector.DynamicThreshold)},
		{Name: "incremental_check", Value: strconv.FormatBool(cfg.Detector.IncrementalCheck)},
		{Name: "rollover", Value: strconv.Itoa(rollover)},
		{Name: "timezone", Value: cfg.Timezone},
		{Name: "exclude_kinds", Value: strings.Join(cfg.ExcludeKinds, ",")},
		{Name: "tag", Value: cfg.Tag},
		{Name: "flag", Value: strconv.FormatBool(cfg.Flag)},
		{Name: "write", Value: strconv.FormatBool(cfg.Write)},
	}
}
