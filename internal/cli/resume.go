// resume.go implements the "assessor resume" command for interrupted sessions.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume an interrupted assessment",
	Long: `Resume the assessment saved in the checkpoint. The current batch,
your answers and the last confidence snapshot are restored without
contacting the scoring service; the next request is made when the
current batch is finished.`,
	RunE: runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	cp, err := e.store.Load()
	if err != nil {
		// Checkpoint corrupted: warn user and start a fresh session.
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to load checkpoint (starting a new assessment): %v\n", err)
		if clearErr := e.store.Clear(); clearErr != nil {
			return fmt.Errorf("clearing checkpoint: %w", clearErr)
		}
		req, reqErr := startRequest(e)
		if reqErr != nil {
			return reqErr
		}
		return runSession(cmd, e, sessionOptions{request: req})
	}
	if cp == nil {
		return fmt.Errorf("no assessment to resume; start one with: assessor start")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Resuming session %s (%d answers so far)\n", cp.SessionID, len(cp.Responses))
	req, err := startRequest(e)
	if err != nil {
		return err
	}
	return runSession(cmd, e, sessionOptions{request: req, resume: true})
}
