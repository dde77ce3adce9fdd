// Package cleanup prunes saved report directories.
package cleanup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/berth-dev/assessor/internal/report"
)

// savedReport is one timestamp-named directory under the reports dir.
type savedReport struct {
	name        string
	completedAt time.Time
}

// scan lists report directories oldest first. A missing reports directory
// yields no entries.
func scan(reportsDir string) ([]savedReport, error) {
	entries, err := os.ReadDir(reportsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading reports directory: %w", err)
	}

	var out []savedReport
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		t, parseErr := time.Parse(report.TimestampLayout, entry.Name())
		if parseErr != nil {
			continue
		}
		out = append(out, savedReport{name: entry.Name(), completedAt: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].completedAt.Before(out[j].completedAt) })
	return out, nil
}

func remove(reportsDir string, victims []savedReport, dryRun bool) ([]string, error) {
	var pruned []string
	for _, v := range victims {
		if !dryRun {
			if err := os.RemoveAll(filepath.Join(reportsDir, v.name)); err != nil {
				return pruned, fmt.Errorf("removing %s: %w", v.name, err)
			}
		}
		pruned = append(pruned, v.name)
	}
	return pruned, nil
}

// PruneByAge removes reports completed more than maxAgeDays before now.
// With dryRun nothing is deleted; the names that would go are returned.
func PruneByAge(reportsDir string, maxAgeDays int, now time.Time, dryRun bool) ([]string, error) {
	reports, err := scan(reportsDir)
	if err != nil {
		return nil, err
	}

	cutoff := now.UTC().AddDate(0, 0, -maxAgeDays)
	var victims []savedReport
	for _, r := range reports {
		if r.completedAt.Before(cutoff) {
			victims = append(victims, r)
		}
	}
	return remove(reportsDir, victims, dryRun)
}

// PruneKeepRecent removes every report except the newest keep.
func PruneKeepRecent(reportsDir string, keep int, dryRun bool) ([]string, error) {
	reports, err := scan(reportsDir)
	if err != nil {
		return nil, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(reports) <= keep {
		return nil, nil
	}
	return remove(reportsDir, reports[:len(reports)-keep], dryRun)
}
