// status.go implements the "assessor status" command showing the active session.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/berth-dev/assessor/internal/checkpoint"
	"github.com/berth-dev/assessor/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the assessment in progress",
	Long: `Display the checkpointed assessment, if any: session, tier, mode,
phase, answers so far and when it was last saved.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	out := cmd.OutOrStdout()

	cp, err := e.store.Load()
	if err != nil {
		return fmt.Errorf("reading checkpoint: %w", err)
	}
	if cp == nil {
		fmt.Fprintln(out, "No assessment in progress. Start one with: assessor start")
		return nil
	}

	var baseline, adaptive int
	for _, r := range cp.Responses {
		if r.Phase == model.PhaseBaseline {
			baseline++
		} else {
			adaptive++
		}
	}

	fmt.Fprintln(out, "Assessment in progress")
	fmt.Fprintf(out, "  Session:   %s\n", cp.SessionID)
	fmt.Fprintf(out, "  Tier:      %s\n", cp.Tier)
	fmt.Fprintf(out, "  Mode:      %s\n", cp.Mode)
	fmt.Fprintf(out, "  Phase:     %s\n", cp.Phase)
	if cp.Total > 0 {
		fmt.Fprintf(out, "  Answers:   %d of %d", len(cp.Responses), cp.Total)
	} else {
		fmt.Fprintf(out, "  Answers:   %d", len(cp.Responses))
	}
	if baseline > 0 {
		fmt.Fprintf(out, " (%d baseline, %d adaptive)", baseline, adaptive)
	}
	fmt.Fprintln(out)
	switch {
	case cp.PendingCompletion:
		fmt.Fprintln(out, "  Batch:     all answered, report pending")
	case cp.CurrentIndex >= len(cp.Batch):
		fmt.Fprintf(out, "  Batch:     all %d answered, next set pending\n", len(cp.Batch))
	default:
		fmt.Fprintf(out, "  Batch:     question %d of %d\n", cp.CurrentIndex+1, len(cp.Batch))
	}
	fmt.Fprintf(out, "  Started:   %s\n", cp.StartTime.Local().Format(time.DateTime))

	saved := cp.Timestamp
	if sq, ok := e.store.(*checkpoint.SQLiteStore); ok {
		if p, err := sq.LoadProgress(); err == nil && p != nil {
			saved = p.Timestamp
		}
	}
	fmt.Fprintf(out, "  Saved:     %s\n", saved.Local().Format(time.DateTime))

	if events, err := e.logger.SessionEvents(cp.SessionID); err == nil && len(events) > 0 {
		last := events[len(events)-1]
		fmt.Fprintf(out, "  Last event: %s at %s\n", last.Event, last.Time.Local().Format(time.DateTime))
	}
	return nil
}
