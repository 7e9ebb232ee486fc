package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/leechkit/internal/config"
	"github.com/blackwell-systems/leechkit/internal/detector"
	"github.com/blackwell-systems/leechkit/internal/logger"
	"github.com/blackwell-systems/leechkit/internal/store"
)

// scanFlags holds the command-line overrides shared by scan, watch and
// explain. A flag only overrides the config when it was set explicitly.
type scanFlags struct {
	deck         string
	queryTag     string
	tag          string
	flag         bool
	write        bool
	workers      int
	format       string
	metricsFile  string
	timezone     string
	excludeKinds string

	skipReviews      int
	maxReviews       int
	leechThreshold   float64
	dynamicThreshold bool
	incrementalCheck bool
}

// addDetectorFlags registers the classification flags on cmd.
func addDetectorFlags(cmd *cobra.Command, f *scanFlags) {
	fs := cmd.Flags()
	fs.IntVar(&f.skipReviews, "skip-reviews", detector.DefaultSkipReviews, "number of initial study days left out of the test")
	fs.IntVar(&f.maxReviews, "max-reviews", 0, "only test the most recent N study days (0 = all)")
	fs.Float64Var(&f.leechThreshold, "leech-threshold", detector.DefaultLeechThreshold, "significance level below which a card is a leech")
	fs.BoolVar(&f.dynamicThreshold, "dynamic-threshold", false, "shrink the threshold as the number of trials grows")
	fs.BoolVar(&f.incrementalCheck, "incremental-check", false, "flag a card if any prefix of its history crosses the threshold")
	fs.StringVar(&f.timezone, "timezone", "UTC", "IANA time zone used to compute study days")
	fs.StringVar(&f.excludeKinds, "exclude-kinds", "manual", "comma-separated review kinds to ignore (learn, review, relearn, filtered, manual)")
	fs.StringVarP(&f.format, "format", "o", config.FormatTable, "output format: table, json, yaml")
}

// addScanFlags registers the card selection and write flags on cmd, plus
// the classification flags.
func addScanFlags(cmd *cobra.Command, f *scanFlags) {
	addDetectorFlags(cmd, f)

	fs := cmd.Flags()
	fs.StringVar(&f.deck, "deck", "", "only check cards in this deck and its subdecks")
	fs.StringVar(&f.queryTag, "query-tag", "", "only check cards whose note has this tag")
	fs.StringVar(&f.tag, "tag", config.DefaultTag, "tag added to leech notes with --write")
	fs.BoolVar(&f.flag, "flag", false, "also set the leech flag on leech cards with --write")
	fs.BoolVar(&f.write, "write", false, "write tags and flags to the collection")
	fs.IntVar(&f.workers, "workers", 0, "cards classified in parallel (default: number of CPUs)")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after each scan")
}

// apply copies the flags set on the command line into cfg.
func (f *scanFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("deck") {
		cfg.Deck = f.deck
	}
	if fs.Changed("query-tag") {
		cfg.QueryTag = f.queryTag
	}
	if fs.Changed("tag") {
		cfg.Tag = f.tag
	}
	if fs.Changed("flag") {
		cfg.Flag = f.flag
	}
	if fs.Changed("write") {
		cfg.Write = f.write
	}
	if fs.Changed("workers") {
		cfg.Workers = f.workers
	}
	if fs.Changed("format") {
		cfg.Format = f.format
	}
	if fs.Changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	if fs.Changed("timezone") {
		cfg.Timezone = f.timezone
	}
	if fs.Changed("exclude-kinds") {
		cfg.ExcludeKinds = splitKinds(f.excludeKinds)
	}
	if fs.Changed("skip-reviews") {
		cfg.Detector.SkipReviews = f.skipReviews
	}
	if fs.Changed("max-reviews") {
		cfg.Detector.MaxReviews = f.maxReviews
	}
	if fs.Changed("leech-threshold") {
		cfg.Detector.LeechThreshold = f.leechThreshold
	}
	if fs.Changed("dynamic-threshold") {
		cfg.Detector.DynamicThreshold = f.dynamicThreshold
	}
	if fs.Changed("incremental-check") {
		cfg.Detector.IncrementalCheck = f.incrementalCheck
	}
}

func splitKinds(s string) []string {
	var kinds []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			kinds = append(kinds, part)
		}
	}
	return kinds
}

// loadConfig layers the config file, environment and flags, initializes
// the logger and validates the result. f may be nil for commands without
// scan flags.
func loadConfig(cmd *cobra.Command, f *scanFlags) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if RootCmd.PersistentFlags().Changed("collection") {
		cfg.Collection = collectionPath
	}
	if RootCmd.PersistentFlags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if f != nil {
		f.apply(cmd, cfg)
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore opens the configured collection. It never creates one: a
// missing file is an error.
func openStore(cfg *config.Config) (*store.Store, error) {
	if cfg.Collection == "" {
		return nil, errors.New("no collection given: pass --collection or set LEECHKIT_COLLECTION")
	}
	if _, err := os.Stat(cfg.Collection); err != nil {
		return nil, fmt.Errorf("collection not found: %w", err)
	}

	st, err := store.New(cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection: %w", err)
	}
	return st, nil
}
