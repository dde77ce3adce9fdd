// Package testutil provides test helpers for assessor tests: temporary
// working directories and a scripted scoring service.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TempWorkdir creates a temporary directory with the given files and returns its path.
// Files is a map of relative path -> content. Directories are created as needed.
// The directory is automatically cleaned up when the test finishes.
func TempWorkdir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	for relPath, content := range files {
		absPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", relPath, err)
		}
		if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", relPath, err)
		}
	}

	return dir
}

// ConfigFor returns a minimal .assessor/config.yaml pointing at baseURL.
func ConfigFor(baseURL string) map[string]string {
	return map[string]string{
		".assessor/config.yaml": "version: 1\napi:\n  base_url: " + baseURL + "\nassessment:\n  stage_dwell_ms: -1\n",
	}
}
