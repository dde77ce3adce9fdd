// abandon.go implements the "assessor abandon" command.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/berth-dev/assessor/internal/assessment"
	"github.com/berth-dev/assessor/internal/ui"
)

var abandonCmd = &cobra.Command{
	Use:   "abandon",
	Short: "Discard the assessment in progress",
	Long: `Delete the checkpoint of the assessment in progress and mark the
session as abandoned in the local history. Answers already sent to the
scoring service are not retracted.`,
	RunE: runAbandon,
}

var yesFlag bool

func init() {
	abandonCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "Do not ask for confirmation")
}

func runAbandon(cmd *cobra.Command, args []string) error {
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
		fmt.Fprintln(out, "No assessment in progress.")
		return nil
	}

	if !yesFlag {
		fmt.Fprintf(out, "Abandon session %s with %d answers? [y/N]: ", cp.SessionID, len(cp.Responses))
		reader := bufio.NewReader(cmd.InOrStdin())
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	m := e.newMachine(ui.NewLinePresenter(io.Discard), cmd.ErrOrStderr())
	if err := m.Abandon(); err != nil {
		if errors.Is(err, assessment.ErrNoSession) {
			fmt.Fprintln(out, "No assessment in progress.")
			return nil
		}
		return err
	}
	fmt.Fprintf(out, "Abandoned session %s.\n", cp.SessionID)
	return nil
}
