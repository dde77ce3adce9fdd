package report

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/berth-dev/assessor/internal/log"
	"github.com/berth-dev/assessor/internal/model"
	"github.com/berth-dev/assessor/internal/protocol"
)

type stubRequester struct {
	got   []protocol.ReportRequest
	reply json.RawMessage
	err   error
}

func (s *stubRequester) RequestReport(ctx context.Context, req protocol.ReportRequest) (json.RawMessage, error) {
	s.got = append(s.got, req)
	return s.reply, s.err
}

func testPayload() model.Payload {
	completed := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return model.Payload{
		Responses: []model.Response{
			{QuestionID: "b1", Answer: "4", Score: 4, Phase: model.PhaseBaseline, Sent: true},
			{QuestionID: "a1", Answer: "2", Score: 2, Phase: model.PhaseAdaptive, Sent: true},
		},
		Tier:     model.TierStandard,
		Duration: 332,
		Metadata: model.Metadata{
			CompletedAt:      completed,
			TotalQuestions:   2,
			SessionID:        "sess-1",
			Tier:             model.TierStandard,
			CompletionTimeMs: 332000,
		},
	}
}

func TestDeliverWritesReport(t *testing.T) {
	reportsDir := filepath.Join(t.TempDir(), "reports")
	stateDir := t.TempDir()
	logger, err := log.NewLogger(stateDir)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	req := &stubRequester{reply: json.RawMessage(`{"title":"The Explorer","traits":{"openness":88}}`)}
	d := NewDeliverer(req, reportsDir, logger)

	if err := d.Deliver(context.Background(), testPayload()); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if len(req.got) != 1 || req.got[0].SessionID != "sess-1" {
		t.Fatalf("requests = %+v", req.got)
	}
	dir := filepath.Join(reportsDir, "20260301-093000")
	if last := d.Last(); last == nil || last.Dir != dir {
		t.Fatalf("Last = %+v, want dir %s", last, dir)
	}

	saved, err := ReadReport(dir)
	if err != nil {
		t.Fatalf("ReadReport: %v", err)
	}
	if len(saved.Payload.Responses) != 2 || saved.Payload.Metadata.SessionID != "sess-1" {
		t.Errorf("payload = %+v", saved.Payload)
	}
	if headline(saved.Report) != "The Explorer" {
		t.Errorf("report not saved intact: %s", saved.Report)
	}

	events, err := logger.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != 1 || events[0].Event != log.EventReportSaved || events[0].Path != dir {
		t.Errorf("events = %+v", events)
	}
}

func TestDeliverFailureWritesNothing(t *testing.T) {
	reportsDir := filepath.Join(t.TempDir(), "reports")
	req := &stubRequester{err: &protocol.Error{Op: protocol.OpReport, Status: 502}}
	d := NewDeliverer(req, reportsDir, nil)

	err := d.Deliver(context.Background(), testPayload())
	if !errors.Is(err, protocol.ErrRequestFailed) {
		t.Fatalf("Deliver = %v, want a wrapped request failure", err)
	}
	if _, statErr := os.Stat(reportsDir); !os.IsNotExist(statErr) {
		t.Error("no report directory should be created on failure")
	}
	if d.Last() != nil {
		t.Error("Last should stay nil")
	}
}

func TestListReportsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"20260101-080000", "20260301-093000", "not-a-report", "20260201-120000"} {
		if err := os.MkdirAll(filepath.Join(dir, name), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	names, err := ListReports(dir)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	want := []string{"20260301-093000", "20260201-120000", "20260101-080000"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("ListReports = %v, want %v", names, want)
	}

	missing, err := ListReports(filepath.Join(dir, "nope"))
	if err != nil || missing != nil {
		t.Errorf("missing dir = %v, %v", missing, err)
	}
}

func TestFormatReport(t *testing.T) {
	s := &Saved{
		Dir:     ".assessor/reports/20260301-093000",
		Payload: testPayload(),
		Report:  json.RawMessage(`{"summary":"Curious and steady."}`),
	}
	conf := model.Confidence{
		"openness":    {Confidence: 82, Level: model.LevelHigh},
		"neuroticism": {Confidence: 41, Level: model.LevelLow},
	}

	out := FormatReport(s, conf)
	for _, want := range []string{
		"Assessment Complete",
		"Curious and steady.",
		"Session:     sess-1",
		"Answers:     2 total",
		"Baseline:  1",
		"Duration:    5m 32s",
		"openness",
		"82%",
		"Saved to:    .assessor/reports/20260301-093000",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatReport output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "neuroticism") > strings.Index(out, "openness") {
		t.Error("traits should be listed in sorted order")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "< 1s"},
		{42 * time.Second, "42s"},
		{5*time.Minute + 32*time.Second, "5m 32s"},
		{time.Hour + 12*time.Minute + 5*time.Second, "1h 12m 5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
