package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/berth-dev/assessor/internal/assessment"
	"github.com/berth-dev/assessor/internal/report"
	"github.com/berth-dev/assessor/internal/tui"
	"github.com/berth-dev/assessor/internal/tui/app"
	"github.com/berth-dev/assessor/internal/ui"
)

type sessionOptions struct {
	request assessment.StartRequest
	resume  bool
}

// runSession drives one session with the full-screen UI when stdout is a
// terminal, and with the line presenter otherwise.
func runSession(cmd *cobra.Command, e *env, opts sessionOptions) error {
	if plainFlag || !tui.IsTTY() {
		pres := ui.NewLinePresenter(cmd.OutOrStdout())
		m := e.newMachine(pres, cmd.ErrOrStderr())
		err := ui.Run(cmd.Context(), m, cmd.InOrStdin(), pres, ui.Options{
			Request: opts.request,
			Resume:  opts.resume,
		})
		return finishSession(cmd, e, err)
	}

	pres := tui.NewPresenter()
	m := e.newMachine(pres, pres.Warnings())
	a := app.New(app.Options{
		Machine:     m,
		Reports:     e.reports,
		Request:     opts.request,
		Resume:      opts.resume,
		AutoAdvance: e.cfg.AutoAdvance(),
		Context:     cmd.Context(),
	})
	final, err := tui.Run(a, pres)
	if err != nil {
		return fmt.Errorf("running UI: %w", err)
	}

	done, ok := final.(*app.App)
	switch {
	case !ok:
		return finishSession(cmd, e, ui.ErrQuit)
	case done.Completed():
		return finishSession(cmd, e, nil)
	case done.Err() != nil && assessment.IsFatal(done.Err()):
		return done.Err()
	case done.Err() != nil:
		fmt.Fprintf(cmd.ErrOrStderr(), "Last error: %v\n", done.Err())
	}
	return finishSession(cmd, e, ui.ErrQuit)
}

func finishSession(cmd *cobra.Command, e *env, err error) error {
	out := cmd.OutOrStdout()
	switch {
	case errors.Is(err, ui.ErrQuit):
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Progress saved. Run 'assessor resume' to continue.")
		return nil
	case err != nil:
		return err
	}

	if saved := e.reports.Last(); saved != nil {
		fmt.Fprintln(out)
		fmt.Fprint(out, report.FormatReport(saved, e.tracker.CurrentOrLast()))
	}
	return nil
}
