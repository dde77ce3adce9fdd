package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/berth-dev/assessor/internal/assessment"
	"github.com/berth-dev/assessor/internal/checkpoint"
	"github.com/berth-dev/assessor/internal/config"
	"github.com/berth-dev/assessor/internal/log"
	"github.com/berth-dev/assessor/internal/notify"
	"github.com/berth-dev/assessor/internal/protocol"
	"github.com/berth-dev/assessor/internal/report"
	"github.com/berth-dev/assessor/internal/session"
	"github.com/berth-dev/assessor/internal/tracker"
)

// env is everything a command needs, opened from the working directory.
type env struct {
	dir     string
	cfg     *config.Config
	logger  *log.Logger
	store   checkpoint.Store
	history *session.Store // nil when the history database cannot be opened
	client  *protocol.Client
	reports *report.Deliverer
	tracker *tracker.Tracker
	closers []func() error
}

func workDir() (string, error) {
	if dirFlag != "" {
		return dirFlag, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return dir, nil
}

// openEnv loads the config and opens the state stores.
func openEnv(cmd *cobra.Command) (*env, error) {
	dir, err := workDir()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := log.NewLogger(config.StatePath(dir, ""))
	if err != nil {
		return nil, err
	}

	e := &env{dir: dir, cfg: cfg, logger: logger, tracker: tracker.New()}

	switch cfg.Persistence.Backend {
	case config.BackendSQLite:
		sq, err := checkpoint.NewSQLiteStore(cfg.CheckpointPath(dir))
		if err != nil {
			return nil, fmt.Errorf("opening checkpoint store: %w", err)
		}
		e.store = sq
		e.closers = append(e.closers, sq.Close)
	default:
		e.store = checkpoint.NewFileStore(cfg.CheckpointPath(dir))
	}

	if hs, err := session.NewStore(config.StatePath(dir, "history.db")); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: session history unavailable: %v\n", err)
	} else {
		e.history = hs
		e.closers = append(e.closers, hs.Close)
	}

	e.client = protocol.NewClient(cfg.API.BaseURL,
		protocol.WithTimeout(cfg.Timeout()),
		protocol.WithEndpoints(cfg.Endpoints()),
	)
	e.reports = report.NewDeliverer(e.client, config.StatePath(dir, "reports"), logger)

	if verbose {
		out := cmd.ErrOrStderr()
		fmt.Fprintf(out, "Scoring service: %s\n", cfg.API.BaseURL)
		fmt.Fprintf(out, "Checkpoint:      %s (%s)\n", cfg.CheckpointPath(dir), cfg.Persistence.Backend)
		fmt.Fprintf(out, "Event log:       %s\n", config.StatePath(dir, "log.jsonl"))
	}

	return e, nil
}

// Close releases the stores.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i]()
	}
}

// newMachine wires a state machine to presenter.
func (e *env) newMachine(pres assessment.Presenter, warnings io.Writer) *assessment.Machine {
	dispatcher := notify.New(pres, notify.Options{
		StageDwell:     e.cfg.StageDwell(),
		ToastBurst:     e.cfg.Notifications.ToastBurst,
		ToastPerSecond: e.cfg.Notifications.ToastPerSecond,
		DedupeWindow:   e.cfg.DedupeWindow(),
	})

	deps := assessment.Deps{
		Backend:    e.client,
		Store:      e.store,
		Presenter:  pres,
		Tracker:    e.tracker,
		Dispatcher: dispatcher,
		Reports:    e.reports,
		Logger:     e.logger,
		Warnings:   warnings,
	}
	if e.history != nil {
		deps.History = session.NewRecorder(e.history)
	}
	return assessment.New(deps)
}
