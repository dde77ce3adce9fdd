package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/berth-dev/assessor/internal/checkpoint"
	"github.com/berth-dev/assessor/internal/config"
	"github.com/berth-dev/assessor/internal/model"
	"github.com/berth-dev/assessor/internal/report"
	"github.com/berth-dev/assessor/internal/testutil"
)

// execute runs the root command with fresh flag values.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	verbose, plainFlag, dirFlag, apiURL = false, false, "", ""
	tierFlag, concernFlags, demographicFlags, intelligentFlag = "", nil, map[string]string{}, false
	yesFlag, limitFlag, listFlag = false, 20, false
	keepFlag, dryRunFlag, guidedFlag, forceFlag = 0, false, false, false

	var out, errOut bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	err := rootCmd.Execute()
	return out.String() + errOut.String(), err
}

func mustContain(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func workdir(t *testing.T, svc *testutil.FakeService, extra string) string {
	t.Helper()
	files := testutil.ConfigFor(svc.URL)
	files[".assessor/config.yaml"] += extra
	return testutil.TempWorkdir(t, files)
}

func TestInitWritesConfig(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "", "init", "--dir", dir, "--api-url", "https://scoring.example.com")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	mustContain(t, out, "Assessor initialized", "https://scoring.example.com")

	cfg, err := config.ReadConfig(dir)
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if cfg.API.BaseURL != "https://scoring.example.com" {
		t.Errorf("BaseURL: got %q", cfg.API.BaseURL)
	}
	gitignore, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		t.Fatalf("reading .gitignore: %v", err)
	}
	mustContain(t, string(gitignore), ".assessor/checkpoint.json", ".assessor/reports/")

	out, err = execute(t, "n\n", "init", "--dir", dir)
	if err != nil {
		t.Fatalf("second init: %v", err)
	}
	mustContain(t, out, "already exists", "Aborted.")
}

func TestInitGuided(t *testing.T) {
	dir := t.TempDir()
	stdin := "http://localhost:4000\ncomprehensive\nsqlite\nstress, sleep\n"
	if _, err := execute(t, stdin, "init", "--dir", dir, "--guided"); err != nil {
		t.Fatalf("init --guided: %v", err)
	}
	cfg, err := config.ReadConfig(dir)
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:4000" || cfg.Assessment.Tier != "comprehensive" || cfg.Persistence.Backend != config.BackendSQLite {
		t.Errorf("config: %+v", cfg)
	}
	if len(cfg.Assessment.Concerns) != 2 || cfg.Assessment.Concerns[1] != "sleep" {
		t.Errorf("concerns: %v", cfg.Assessment.Concerns)
	}
}

func TestStartCompletesSession(t *testing.T) {
	svc := testutil.NewFakeService(t, testutil.ServiceOptions{Total: 4})
	dir := workdir(t, svc, "")

	out, err := execute(t, "3\n3\n3\n3\n", "start", "--plain", "--dir", dir, "--concern", "stress")
	if err != nil {
		t.Fatalf("start: %v\n%s", err, out)
	}
	mustContain(t, out, "Statement q1", "Statement q4", "Assessment Complete", "Fake Report")

	body := string(svc.Bodies("start")[0])
	mustContain(t, body, `"stress"`)

	out, err = execute(t, "", "status", "--dir", dir)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	mustContain(t, out, "No assessment in progress")

	out, err = execute(t, "", "history", "--dir", dir)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	mustContain(t, out, "fake-session", "complete")

	out, err = execute(t, "", "report", "--dir", dir)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	mustContain(t, out, "Fake Report", "Answers:     4 total")

	out, err = execute(t, "", "report", "--list", "--dir", dir)
	if err != nil {
		t.Fatalf("report --list: %v", err)
	}
	if lines := strings.Fields(out); len(lines) != 1 {
		t.Errorf("report --list: got %v", lines)
	}
}

func TestQuitThenResume(t *testing.T) {
	for _, backend := range []string{config.BackendFile, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			svc := testutil.NewFakeService(t, testutil.ServiceOptions{Total: 6})
			dir := workdir(t, svc, "persistence:\n  backend: "+backend+"\n")

			out, err := execute(t, "3\nq\n", "start", "--plain", "--dir", dir)
			if err != nil {
				t.Fatalf("start: %v", err)
			}
			mustContain(t, out, "Progress saved")

			out, err = execute(t, "", "status", "--dir", dir)
			if err != nil {
				t.Fatalf("status: %v", err)
			}
			mustContain(t, out, "fake-session", "Answers:   1 of 6", "Batch:     question 2 of 3")

			if _, err := execute(t, "", "start", "--plain", "--dir", dir); err == nil || !strings.Contains(err.Error(), "already in progress") {
				t.Errorf("second start: got %v", err)
			}

			out, err = execute(t, "2\n2\n2\n2\n2\n", "resume", "--plain", "--dir", dir)
			if err != nil {
				t.Fatalf("resume: %v\n%s", err, out)
			}
			mustContain(t, out, "Resuming session fake-session (1 answers so far)", "Statement q2", "Assessment Complete")
			if got := svc.Calls("start"); got != 1 {
				t.Errorf("start calls = %d, want 1", got)
			}
		})
	}
}

func TestResumeAtBatchBoundary(t *testing.T) {
	svc := testutil.NewFakeService(t, testutil.ServiceOptions{Total: 6})
	dir := workdir(t, svc, "")

	// A checkpoint written after the last answer of a batch whose
	// follow-up request never succeeded.
	cp := &checkpoint.Checkpoint{
		SessionID:    "fake-session",
		Tier:         model.TierStandard,
		Mode:         model.ModeMultiStage,
		Phase:        model.PhaseAdaptive,
		Stage:        "1",
		StartTime:    time.Now().Add(-time.Minute),
		CurrentIndex: 3,
		Total:        6,
		Batch:        []model.Question{{ID: "q1"}, {ID: "q2"}, {ID: "q3"}},
	}
	for _, id := range []string{"q1", "q2", "q3"} {
		cp.Responses = append(cp.Responses, model.Response{QuestionID: id, Answer: "3", Score: 3, Phase: model.PhaseAdaptive})
	}
	cfg := config.DefaultConfig()
	if err := checkpoint.NewFileStore(cfg.CheckpointPath(dir)).Save(cp); err != nil {
		t.Fatalf("saving checkpoint: %v", err)
	}

	out, err := execute(t, "", "status", "--dir", dir)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	mustContain(t, out, "Answers:   3 of 6", "all 3 answered, next set pending")

	out, err = execute(t, "2\n2\n2\n", "resume", "--plain", "--dir", dir)
	if err != nil {
		t.Fatalf("resume: %v\n%s", err, out)
	}
	mustContain(t, out, "Picking up where you left off", "Assessment Complete")
	if got := svc.Calls("next"); got != 1 {
		t.Errorf("next calls = %d, want 1", got)
	}
	if got := svc.Calls("report"); got != 1 {
		t.Errorf("report calls = %d, want 1", got)
	}
}

func TestResumeWithoutCheckpoint(t *testing.T) {
	svc := testutil.NewFakeService(t, testutil.ServiceOptions{})
	dir := workdir(t, svc, "")
	if _, err := execute(t, "", "resume", "--plain", "--dir", dir); err == nil || !strings.Contains(err.Error(), "no assessment to resume") {
		t.Errorf("got %v", err)
	}
}

func TestAbandon(t *testing.T) {
	svc := testutil.NewFakeService(t, testutil.ServiceOptions{})
	dir := workdir(t, svc, "")

	if _, err := execute(t, "1\nq\n", "start", "--plain", "--dir", dir); err != nil {
		t.Fatalf("start: %v", err)
	}

	out, err := execute(t, "n\n", "abandon", "--dir", dir)
	if err != nil {
		t.Fatalf("abandon: %v", err)
	}
	mustContain(t, out, "Aborted.")

	out, err = execute(t, "y\n", "abandon", "--dir", dir)
	if err != nil {
		t.Fatalf("abandon: %v", err)
	}
	mustContain(t, out, "Abandoned session fake-session")

	out, _ = execute(t, "", "status", "--dir", dir)
	mustContain(t, out, "No assessment in progress")

	out, _ = execute(t, "", "history", "--dir", dir)
	mustContain(t, out, "abandoned")

	out, _ = execute(t, "", "abandon", "--yes", "--dir", dir)
	mustContain(t, out, "No assessment in progress")
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	reportsDir := config.StatePath(dir, "reports")
	now := time.Now()
	for _, age := range []time.Duration{0, 24 * time.Hour, 200 * 24 * time.Hour} {
		name := now.Add(-age).Format(report.TimestampLayout)
		if err := os.MkdirAll(filepath.Join(reportsDir, name), 0755); err != nil {
			t.Fatal(err)
		}
	}

	out, err := execute(t, "", "clean", "--dir", dir, "--dry-run")
	if err != nil {
		t.Fatalf("clean --dry-run: %v", err)
	}
	mustContain(t, out, "Would remove 1 report(s).")

	out, err = execute(t, "", "clean", "--dir", dir, "--keep", "1")
	if err != nil {
		t.Fatalf("clean --keep: %v", err)
	}
	mustContain(t, out, "Removed 2 report(s).")

	names, _ := report.ListReports(reportsDir)
	if len(names) != 1 {
		t.Errorf("remaining reports: %v", names)
	}
}

func TestInvalidAPIURL(t *testing.T) {
	dir := t.TempDir()
	if _, err := execute(t, "", "status", "--dir", dir, "--api-url", "not a url"); err == nil {
		t.Error("invalid --api-url should fail")
	}
}
