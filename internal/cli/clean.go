// clean.go implements the "assessor clean" command for report cleanup.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/berth-dev/assessor/internal/cleanup"
	"github.com/berth-dev/assessor/internal/config"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old saved reports",
	Long: `Remove old report directories from .assessor/reports/.

By default, removes reports older than the configured max_age_days (default 90).
Use --keep (or reports.keep in the config) to keep only the N most recent reports instead.
Use --dry-run to preview what would be removed.`,
	RunE: runClean,
}

var (
	keepFlag   int
	dryRunFlag bool
)

func init() {
	cleanCmd.Flags().IntVar(&keepFlag, "keep", 0, "Keep only the last N reports (0 = use age-based cleanup)")
	cleanCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Preview what would be removed without deleting")
}

func runClean(cmd *cobra.Command, args []string) error {
	dir, err := workDir()
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	out := cmd.OutOrStdout()
	reportsDir := config.StatePath(dir, "reports")

	keep := keepFlag
	if keep <= 0 {
		keep = cfg.Reports.Keep
	}

	var pruned []string
	if keep > 0 {
		pruned, err = cleanup.PruneKeepRecent(reportsDir, keep, dryRunFlag)
	} else {
		pruned, err = cleanup.PruneByAge(reportsDir, cfg.Reports.MaxAgeDays, time.Now(), dryRunFlag)
	}
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	if len(pruned) == 0 {
		fmt.Fprintln(out, "No reports to clean up.")
		return nil
	}

	verb := "Removed"
	if dryRunFlag {
		verb = "Would remove"
	}
	for _, name := range pruned {
		fmt.Fprintf(out, "  %s %s\n", verb, name)
	}
	fmt.Fprintf(out, "%s %d report(s).\n", verb, len(pruned))
	return nil
}
