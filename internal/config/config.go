// Package config handles reading and writing .assessor/config.yaml.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/berth-dev/assessor/internal/model"
	"github.com/berth-dev/assessor/internal/protocol"
)

// Config is the top-level structure for .assessor/config.yaml.
type Config struct {
	Version       int                 `yaml:"version"`
	API           APIConfig           `yaml:"api"`
	Assessment    AssessmentConfig    `yaml:"assessment"`
	Persistence   PersistenceConfig   `yaml:"persistence"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Reports       ReportsConfig       `yaml:"reports"`
}

// APIConfig locates the scoring service.
type APIConfig struct {
	BaseURL        string          `yaml:"base_url"`
	TimeoutSeconds int             `yaml:"timeout_seconds"`
	Endpoints      EndpointsConfig `yaml:"endpoints"`
}

// EndpointsConfig overrides individual operation paths. Empty fields keep
// the service defaults.
type EndpointsConfig struct {
	Initiate string `yaml:"initiate,omitempty"`
	Baseline string `yaml:"baseline,omitempty"`
	Next     string `yaml:"next,omitempty"`
	Report   string `yaml:"report,omitempty"`
}

// AssessmentConfig holds the defaults for new sessions.
type AssessmentConfig struct {
	Tier                      string            `yaml:"tier"`
	Concerns                  []string          `yaml:"concerns,omitempty"`
	Demographics              map[string]string `yaml:"demographics,omitempty"`
	PreferIntelligentSelector bool              `yaml:"prefer_intelligent_selector"`
	AutoAdvanceMs             int               `yaml:"auto_advance_ms"`
	StageDwellMs              int               `yaml:"stage_dwell_ms"`
}

// PersistenceConfig selects where the active checkpoint lives.
type PersistenceConfig struct {
	Backend string `yaml:"backend"` // "file" | "sqlite"
	Path    string `yaml:"path,omitempty"`
}

// NotificationsConfig tunes toast throttling.
type NotificationsConfig struct {
	ToastBurst     int     `yaml:"toast_burst"`
	ToastPerSecond float64 `yaml:"toast_per_second"`
	DedupeWindowMs int     `yaml:"dedupe_window_ms"`
}

// ReportsConfig controls retention of saved reports.
type ReportsConfig struct {
	MaxAgeDays int `yaml:"max_age_days"`
	Keep       int `yaml:"keep"`
}

// Persistence backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// StateDir is the per-directory state folder.
const StateDir = ".assessor"

const configFile = "config.yaml"

// ReadConfig reads .assessor/config.yaml from the given directory.
// dir is the working directory (not .assessor/ itself).
// Returns an error if the file is not found or YAML is malformed.
func ReadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, StateDir, configFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

// Load reads the config if present and fills every unset field from
// DefaultConfig. A missing file is not an error.
func Load(dir string) (*Config, error) {
	cfg, err := ReadConfig(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// WriteConfig writes cfg to .assessor/config.yaml in the given directory.
// Creates the .assessor/ directory if it does not exist.
func WriteConfig(dir string, cfg *Config) error {
	dirPath := filepath.Join(dir, StateDir)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	path := filepath.Join(dirPath, configFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		API: APIConfig{
			BaseURL:        "http://localhost:3000",
			TimeoutSeconds: 30,
		},
		Assessment: AssessmentConfig{
			Tier:          string(model.TierStandard),
			AutoAdvanceMs: 350,
			StageDwellMs:  2500,
		},
		Persistence: PersistenceConfig{
			Backend: BackendFile,
		},
		Notifications: NotificationsConfig{
			ToastBurst:     3,
			ToastPerSecond: 0.5,
			DedupeWindowMs: 10000,
		},
		Reports: ReportsConfig{
			MaxAgeDays: 90,
		},
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Version == 0 {
		c.Version = d.Version
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = d.API.TimeoutSeconds
	}
	if c.Assessment.Tier == "" {
		c.Assessment.Tier = d.Assessment.Tier
	}
	if c.Assessment.AutoAdvanceMs <= 0 {
		c.Assessment.AutoAdvanceMs = d.Assessment.AutoAdvanceMs
	}
	if c.Assessment.StageDwellMs == 0 {
		c.Assessment.StageDwellMs = d.Assessment.StageDwellMs
	}
	if c.Persistence.Backend == "" {
		c.Persistence.Backend = d.Persistence.Backend
	}
	if c.Notifications.ToastBurst <= 0 {
		c.Notifications.ToastBurst = d.Notifications.ToastBurst
	}
	if c.Notifications.ToastPerSecond <= 0 {
		c.Notifications.ToastPerSecond = d.Notifications.ToastPerSecond
	}
	if c.Notifications.DedupeWindowMs <= 0 {
		c.Notifications.DedupeWindowMs = d.Notifications.DedupeWindowMs
	}
	if c.Reports.MaxAgeDays <= 0 {
		c.Reports.MaxAgeDays = d.Reports.MaxAgeDays
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL)
	}
	if _, err := model.ParseTier(c.Assessment.Tier); err != nil {
		return fmt.Errorf("assessment.tier: %w", err)
	}
	switch c.Persistence.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("persistence.backend %q: want %s or %s", c.Persistence.Backend, BackendFile, BackendSQLite)
	}
	return nil
}

// Timeout is the per-request timeout for the scoring service.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// AutoAdvance is the pause between answering and moving on.
func (c *Config) AutoAdvance() time.Duration {
	return time.Duration(c.Assessment.AutoAdvanceMs) * time.Millisecond
}

// StageDwell is how long a stage overlay holds the session. Negative
// values disable the wait.
func (c *Config) StageDwell() time.Duration {
	if c.Assessment.StageDwellMs < 0 {
		return -1
	}
	return time.Duration(c.Assessment.StageDwellMs) * time.Millisecond
}

// DedupeWindow is the window in which identical toasts are dropped.
func (c *Config) DedupeWindow() time.Duration {
	return time.Duration(c.Notifications.DedupeWindowMs) * time.Millisecond
}

// Endpoints merges configured overrides over the service defaults.
func (c *Config) Endpoints() protocol.Endpoints {
	e := protocol.DefaultEndpoints()
	if c.API.Endpoints.Initiate != "" {
		e.Initiate = c.API.Endpoints.Initiate
	}
	if c.API.Endpoints.Baseline != "" {
		e.Baseline = c.API.Endpoints.Baseline
	}
	if c.API.Endpoints.Next != "" {
		e.Next = c.API.Endpoints.Next
	}
	if c.API.Endpoints.Report != "" {
		e.Report = c.API.Endpoints.Report
	}
	return e
}

// StatePath resolves name inside the state directory of dir.
func StatePath(dir, name string) string {
	return filepath.Join(dir, StateDir, name)
}

// CheckpointPath is where the active checkpoint is stored for the
// configured backend.
func (c *Config) CheckpointPath(dir string) string {
	if c.Persistence.Path != "" {
		if filepath.IsAbs(c.Persistence.Path) {
			return c.Persistence.Path
		}
		return StatePath(dir, c.Persistence.Path)
	}
	if c.Persistence.Backend == BackendSQLite {
		return StatePath(dir, "assessor.db")
	}
	return StatePath(dir, "")
}
