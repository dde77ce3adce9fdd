// history.go implements the "assessor history" command.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past assessments",
	Long:  `List recent assessment sessions from the local history database.`,
	RunE:  runHistory,
}

var limitFlag int

func init() {
	historyCmd.Flags().IntVar(&limitFlag, "limit", 20, "Maximum number of sessions to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	out := cmd.OutOrStdout()

	if e.history == nil {
		return fmt.Errorf("session history is unavailable")
	}
	sessions, err := e.history.ListSessions(limitFlag)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No assessments yet. Start one with: assessor start")
		return nil
	}

	fmt.Fprintf(out, "%-19s  %-13s  %-10s  %7s  %s\n", "UPDATED", "TIER", "STATUS", "ANSWERS", "SESSION")
	for _, s := range sessions {
		fmt.Fprintf(out, "%-19s  %-13s  %-10s  %7d  %s\n",
			s.UpdatedAt.Local().Format(time.DateTime), s.Tier, s.Status, s.Responses, s.RemoteID)
	}
	return nil
}
