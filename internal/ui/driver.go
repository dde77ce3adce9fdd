package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/berth-dev/assessor/internal/assessment"
)

// ErrQuit is returned when the user quits or input ends before the
// session completes. The checkpoint is kept.
var ErrQuit = errors.New("assessment interrupted")

// Machine is the part of *assessment.Machine the driver uses.
type Machine interface {
	Start(ctx context.Context, req assessment.StartRequest) error
	Resume(ctx context.Context) (bool, error)
	RecordAnswer(optionIndex int, elapsed time.Duration) error
	Advance(ctx context.Context) (assessment.Outcome, error)
	Retreat() error
	AtBoundary() bool
}

// Options configure Run.
type Options struct {
	Request assessment.StartRequest
	Resume  bool // resume from the checkpoint when one exists
}

// Run drives a session from line input: a number answers, "b" goes back,
// "q" quits, and an empty line retries a failed request. It returns nil
// when the session completes. A session resumed at a batch boundary
// fetches its next batch before reading any input.
func Run(ctx context.Context, m Machine, in io.Reader, p *LinePresenter, opts Options) error {
	if err := start(ctx, m, opts); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	retryAdvance := false
	advanceNow := m.AtBoundary()

	for {
		if !advanceNow {
			if retryAdvance {
				p.Printf("Press Enter to retry or q to quit.")
			}
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("reading input: %w", err)
				}
				return ErrQuit
			}
			line := strings.ToLower(strings.TrimSpace(scanner.Text()))

			switch {
			case line == "q" || line == "quit":
				return ErrQuit

			case retryAdvance:
				if line != "" && line != "r" {
					continue
				}

			case line == "b" || line == "back":
				if err := m.Retreat(); err != nil {
					if errors.Is(err, assessment.ErrCannotRetreat) {
						p.Printf("Already at the first question of this set.")
					} else {
						p.Printf("Cannot go back: %v", err)
					}
				}
				continue

			default:
				if !answer(m, p, line) {
					continue
				}
			}
		}
		advanceNow = false

		outcome, err := m.Advance(ctx)
		if err != nil {
			if assessment.IsFatal(err) {
				return err
			}
			p.Printf("Request failed: %v", err)
			retryAdvance = true
			continue
		}
		retryAdvance = false
		if outcome == assessment.OutcomeCompleted {
			return nil
		}
	}
}

func start(ctx context.Context, m Machine, opts Options) error {
	if opts.Resume {
		ok, err := m.Resume(ctx)
		if err != nil || ok {
			return err
		}
	}
	return m.Start(ctx, opts.Request)
}

// answer records a numbered choice and reports whether it was accepted.
func answer(m Machine, p *LinePresenter, line string) bool {
	v, ok := p.Current()
	if !ok {
		return false
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(v.Question.Options) {
		p.Printf("Choose a number between 1 and %d, b to go back, or q to quit.", len(v.Question.Options))
		return false
	}
	if err := m.RecordAnswer(n-1, 0); err != nil {
		p.Printf("Answer not recorded: %v", err)
		return false
	}
	return true
}
