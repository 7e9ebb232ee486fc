package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/leechkit/internal/metrics"
	"github.com/blackwell-systems/leechkit/internal/watcher"
)

var (
	watchOpts     scanFlags
	watchDebounce time.Duration

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Re-scan the collection whenever it changes",
		Long: `Scan the collection once, then watch it and scan again every time it
changes on disk, until interrupted with Ctrl-C or SIGTERM.

Changes are debounced: a scan starts once the collection has been quiet for
--debounce. Writes made by the scan itself do not trigger another scan.`,
		Example: `  leechkit watch -c ~/collection.db
  leechkit watch -c ~/collection.db --write --metrics-file /var/lib/node_exporter/leechkit.prom`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
)

func init() {
	addScanFlags(watchCmd, &watchOpts)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before a re-scan")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, &watchOpts)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("debounce") {
		cfg.Debounce = watchDebounce
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	m := metrics.NewManager()

	if _, err := executeScan(cmd.Context(), cfg, st, m, out); err != nil {
		return err
	}

	w, err := watcher.New(cfg.Collection, cfg.Debounce, func(ctx context.Context) error {
		fmt.Fprintf(out, "\nCollection changed at %s, scanning again\n\n", time.Now().Format("15:04:05"))
		_, err := executeScan(ctx, cfg, st, m, out)
		return err
	})
	if err != nil {
		return err
	}

	return w.Run(cmd.Context())
}
