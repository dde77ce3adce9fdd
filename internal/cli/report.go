// report.go implements the "assessor report" command for saved reports.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/berth-dev/assessor/internal/config"
	"github.com/berth-dev/assessor/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report [timestamp]",
	Short: "Show a saved report",
	Long: `Display the most recent saved report, or the one saved at the given
timestamp. Use --list to see every saved report.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

var listFlag bool

func init() {
	reportCmd.Flags().BoolVar(&listFlag, "list", false, "List saved reports, newest first")
}

func runReport(cmd *cobra.Command, args []string) error {
	dir, err := workDir()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	reportsDir := config.StatePath(dir, "reports")

	names, err := report.ListReports(reportsDir)
	if err != nil {
		return fmt.Errorf("listing reports: %w", err)
	}
	if len(names) == 0 {
		return fmt.Errorf("no saved reports; complete an assessment with: assessor start")
	}

	if listFlag {
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	name := names[0]
	if len(args) == 1 {
		name = args[0]
	}
	saved, err := report.ReadReport(filepath.Join(reportsDir, name))
	if err != nil {
		return err
	}
	fmt.Fprint(out, report.FormatReport(saved, nil))
	return nil
}
