package cleanup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/berth-dev/assessor/internal/report"
)

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

// createMockReport creates a report directory named after ts with a payload file in it.
func createMockReport(t *testing.T, reportsDir string, ts time.Time) string {
	t.Helper()
	name := ts.UTC().Format(report.TimestampLayout)
	path := filepath.Join(reportsDir, name)
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatalf("creating mock report %s: %v", name, err)
	}
	if err := os.WriteFile(filepath.Join(path, report.PayloadFile), []byte("{}"), 0644); err != nil {
		t.Fatalf("writing mock payload: %v", err)
	}
	return name
}

func TestPruneByAge(t *testing.T) {
	tests := []struct {
		name      string
		dryRun    bool
		wantGone  bool
		wantCount int
	}{
		{name: "removes old reports", dryRun: false, wantGone: true, wantCount: 1},
		{name: "dry run keeps everything", dryRun: true, wantGone: false, wantCount: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			old := createMockReport(t, dir, testNow.AddDate(0, 0, -60))
			recent := createMockReport(t, dir, testNow.AddDate(0, 0, -5))

			pruned, err := PruneByAge(dir, 30, testNow, tt.dryRun)
			if err != nil {
				t.Fatalf("PruneByAge failed: %v", err)
			}
			if len(pruned) != tt.wantCount || pruned[0] != old {
				t.Errorf("pruned = %v, want [%s]", pruned, old)
			}

			_, statErr := os.Stat(filepath.Join(dir, old))
			if gone := os.IsNotExist(statErr); gone != tt.wantGone {
				t.Errorf("old report gone = %v, want %v", gone, tt.wantGone)
			}
			if _, err := os.Stat(filepath.Join(dir, recent)); err != nil {
				t.Errorf("recent report should survive: %v", err)
			}
		})
	}
}

func TestPruneByAgeSkipsForeignDirs(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "keep-me"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "20200101-000000"), []byte("file, not dir"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	pruned, err := PruneByAge(dir, 1, testNow, false)
	if err != nil {
		t.Fatalf("PruneByAge failed: %v", err)
	}
	if len(pruned) != 0 {
		t.Errorf("pruned = %v, want none", pruned)
	}
}

func TestPruneMissingDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "reports")
	if pruned, err := PruneByAge(missing, 30, testNow, false); err != nil || len(pruned) != 0 {
		t.Errorf("PruneByAge(missing) = %v, %v", pruned, err)
	}
	if pruned, err := PruneKeepRecent(missing, 5, false); err != nil || len(pruned) != 0 {
		t.Errorf("PruneKeepRecent(missing) = %v, %v", pruned, err)
	}
}

func TestPruneKeepRecent(t *testing.T) {
	dir := t.TempDir()
	d1 := createMockReport(t, dir, testNow.AddDate(0, 0, -4))
	d2 := createMockReport(t, dir, testNow.AddDate(0, 0, -3))
	createMockReport(t, dir, testNow.AddDate(0, 0, -2))
	createMockReport(t, dir, testNow.AddDate(0, 0, -1))

	pruned, err := PruneKeepRecent(dir, 2, true)
	if err != nil {
		t.Fatalf("PruneKeepRecent dry-run failed: %v", err)
	}
	if len(pruned) != 2 {
		t.Fatalf("dry run pruned %v, want 2", pruned)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 4 {
		t.Errorf("dry run removed directories: %d left", len(entries))
	}

	pruned, err = PruneKeepRecent(dir, 2, false)
	if err != nil {
		t.Fatalf("PruneKeepRecent failed: %v", err)
	}
	if len(pruned) != 2 || pruned[0] != d1 || pruned[1] != d2 {
		t.Errorf("pruned = %v, want [%s %s]", pruned, d1, d2)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 2 {
		t.Errorf("remaining = %d, want 2", len(entries))
	}

	if pruned, _ := PruneKeepRecent(dir, 5, false); len(pruned) != 0 {
		t.Errorf("keeping more than exist pruned %v", pruned)
	}
}
