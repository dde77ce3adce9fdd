// Package report hands a finished assessment to the scoring service's
// report endpoint and keeps the payload and the returned report on disk.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/berth-dev/assessor/internal/log"
	"github.com/berth-dev/assessor/internal/model"
	"github.com/berth-dev/assessor/internal/protocol"
)

// TimestampLayout names report directories; cleanup parses it back.
const TimestampLayout = "20060102-150405"

// File names inside a report directory.
const (
	PayloadFile = "payload.json"
	ReportFile  = "report.json"
)

// Requester is satisfied by *protocol.Client.
type Requester interface {
	RequestReport(ctx context.Context, req protocol.ReportRequest) (json.RawMessage, error)
}

// EventLogger is satisfied by *log.Logger.
type EventLogger interface {
	Append(event log.LogEvent) error
}

// Saved is a delivered report as written to disk.
type Saved struct {
	Dir     string
	Payload model.Payload
	Report  json.RawMessage
}

// Deliverer implements the state machine's report sink.
type Deliverer struct {
	client Requester
	dir    string
	logger EventLogger

	mu   sync.Mutex
	last *Saved
}

// NewDeliverer creates a Deliverer that writes under reportsDir.
func NewDeliverer(client Requester, reportsDir string, logger EventLogger) *Deliverer {
	if logger == nil {
		logger = log.Discard{}
	}
	return &Deliverer{client: client, dir: reportsDir, logger: logger}
}

// Deliver requests the report for p and saves both to a new timestamped
// directory. Nothing is written when the request fails.
func (d *Deliverer) Deliver(ctx context.Context, p model.Payload) error {
	raw, err := d.client.RequestReport(ctx, protocol.ReportRequest{
		SessionID: p.Metadata.SessionID,
		Payload:   p,
	})
	if err != nil {
		return fmt.Errorf("request report: %w", err)
	}

	completed := p.Metadata.CompletedAt
	if completed.IsZero() {
		completed = time.Now().UTC()
	}
	dir := filepath.Join(d.dir, completed.Format(TimestampLayout))
	if err := WriteReport(dir, p, raw); err != nil {
		return err
	}

	d.mu.Lock()
	d.last = &Saved{Dir: dir, Payload: p, Report: raw}
	d.mu.Unlock()

	if err := d.logger.Append(log.LogEvent{
		Event:     log.EventReportSaved,
		SessionID: p.Metadata.SessionID,
		Path:      dir,
		Responses: len(p.Responses),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to log report_saved: %v\n", err)
	}
	return nil
}

// Last returns the most recently delivered report, or nil.
func (d *Deliverer) Last() *Saved {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// WriteReport writes payload.json and report.json into dir, creating it
// if needed.
func WriteReport(dir string, p model.Payload, raw json.RawMessage) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	payload, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, PayloadFile), payload, 0644); err != nil {
		return fmt.Errorf("writing payload file: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return fmt.Errorf("report is not valid JSON: %w", err)
	}
	pretty.WriteByte('\n')
	if err := os.WriteFile(filepath.Join(dir, ReportFile), pretty.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing report file: %w", err)
	}
	return nil
}

// ReadReport loads a report directory written by WriteReport.
func ReadReport(dir string) (*Saved, error) {
	data, err := os.ReadFile(filepath.Join(dir, PayloadFile))
	if err != nil {
		return nil, fmt.Errorf("reading payload file: %w", err)
	}
	var p model.Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse payload file: %w", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, ReportFile))
	if err != nil {
		return nil, fmt.Errorf("reading report file: %w", err)
	}
	return &Saved{Dir: dir, Payload: p, Report: raw}, nil
}

// ListReports returns the report directory names under reportsDir, newest
// first. Directories that are not timestamp-named are skipped.
func ListReports(reportsDir string) ([]string, error) {
	entries, err := os.ReadDir(reportsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading reports directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(TimestampLayout, e.Name()); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// FormatReport produces a terminal-friendly summary of a saved report.
// conf may be nil.
func FormatReport(s *Saved, conf model.Confidence) string {
	var b strings.Builder
	p := s.Payload

	b.WriteString("========================================\n")
	b.WriteString("  Assessment Complete\n")
	b.WriteString("========================================\n")
	b.WriteString("\n")

	if headline := headline(s.Report); headline != "" {
		fmt.Fprintf(&b, "%s\n\n", headline)
	}

	if p.Metadata.SessionID != "" {
		fmt.Fprintf(&b, "Session:     %s\n", p.Metadata.SessionID)
	}
	fmt.Fprintf(&b, "Tier:        %s\n", p.Tier)

	var baseline, adaptive int
	for _, r := range p.Responses {
		if r.Phase == model.PhaseBaseline {
			baseline++
		} else {
			adaptive++
		}
	}
	fmt.Fprintf(&b, "Answers:     %d total\n", len(p.Responses))
	if baseline > 0 {
		fmt.Fprintf(&b, "  Baseline:  %d\n", baseline)
		fmt.Fprintf(&b, "  Adaptive:  %d\n", adaptive)
	}
	if p.Duration > 0 {
		fmt.Fprintf(&b, "Duration:    %s\n", formatDuration(time.Duration(p.Duration)*time.Second))
	}
	b.WriteString("\n")

	if !conf.Empty() {
		b.WriteString("Confidence:\n")
		for _, trait := range conf.Traits() {
			tc := conf[trait]
			fmt.Fprintf(&b, "  %-18s %3.0f%%  %s\n", trait, tc.Confidence, tc.Level)
		}
		b.WriteString("\n")
	}

	if s.Dir != "" {
		fmt.Fprintf(&b, "Saved to:    %s\n", s.Dir)
	}
	b.WriteString("========================================\n")

	return b.String()
}

// headline picks a one-line description out of an opaque report object.
func headline(raw json.RawMessage) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}
	for _, key := range []string{"headline", "title", "summary"} {
		var s string
		if err := json.Unmarshal(fields[key], &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// formatDuration produces a human-readable duration string such as "5m 32s"
// or "1h 12m 5s". Sub-second durations are shown as "< 1s".
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "< 1s"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
