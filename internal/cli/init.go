// init.go implements the "assessor init" command with optional --guided flag.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/berth-dev/assessor/internal/config"
	"github.com/berth-dev/assessor/internal/model"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize assessor in the current directory",
	Long: `Create the .assessor/ directory with a default configuration and
add its runtime files to .gitignore.`,
	RunE: runInit,
}

var (
	guidedFlag bool
	forceFlag  bool
)

func init() {
	initCmd.Flags().BoolVar(&guidedFlag, "guided", false, "Interactive prompts for configuration overrides")
	initCmd.Flags().BoolVar(&forceFlag, "force", false, "Overwrite an existing configuration without asking")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := workDir()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	reader := bufio.NewReader(cmd.InOrStdin())

	// Check for existing config.
	configPath := config.StatePath(dir, "config.yaml")
	if _, statErr := os.Stat(configPath); statErr == nil && !forceFlag {
		fmt.Fprintln(out, "Warning: .assessor/config.yaml already exists.")
		fmt.Fprint(out, "Overwrite? [y/N]: ")
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if err := os.MkdirAll(config.StatePath(dir, "reports"), 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	cfg := config.DefaultConfig()
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if guidedFlag {
		guidedOverrides(cfg, reader, out)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := config.WriteConfig(dir, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Ensure .gitignore exists with the runtime entries.
	if err := ensureGitignore(dir); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to set up .gitignore: %v\n", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Assessor initialized")
	fmt.Fprintf(out, "  Scoring service: %s\n", cfg.API.BaseURL)
	fmt.Fprintf(out, "  Tier:            %s\n", cfg.Assessment.Tier)
	fmt.Fprintf(out, "  Checkpoints:     %s\n", cfg.Persistence.Backend)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration written to .assessor/config.yaml")
	fmt.Fprintln(out, "Ready to run: assessor start")
	return nil
}

// guidedOverrides prompts the user for optional configuration overrides.
// Invalid answers keep the default.
func guidedOverrides(cfg *config.Config, reader *bufio.Reader, out io.Writer) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "--- Guided Configuration ---")

	if v := prompt(reader, out, "Scoring service URL", cfg.API.BaseURL); v != "" {
		cfg.API.BaseURL = v
	}

	if v := prompt(reader, out, "Tier (standard/comprehensive)", cfg.Assessment.Tier); v != "" {
		if tier, err := model.ParseTier(v); err == nil {
			cfg.Assessment.Tier = string(tier)
		} else {
			fmt.Fprintf(out, "  %v; keeping %s\n", err, cfg.Assessment.Tier)
		}
	}

	if v := prompt(reader, out, "Checkpoint backend (file/sqlite)", cfg.Persistence.Backend); v != "" {
		switch v {
		case config.BackendFile, config.BackendSQLite:
			cfg.Persistence.Backend = v
		default:
			fmt.Fprintf(out, "  unknown backend %q; keeping %s\n", v, cfg.Persistence.Backend)
		}
	}

	if v := prompt(reader, out, "Areas of concern, comma separated", strings.Join(cfg.Assessment.Concerns, ",")); v != "" {
		var concerns []string
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				concerns = append(concerns, c)
			}
		}
		cfg.Assessment.Concerns = concerns
	}

	fmt.Fprintln(out, "--- End Guided Configuration ---")
	fmt.Fprintln(out)
}

func prompt(reader *bufio.Reader, out io.Writer, label, current string) string {
	if current == "" {
		current = "none"
	}
	fmt.Fprintf(out, "%s [%s]: ", label, current)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}

// ensureGitignore creates or appends to .gitignore with the runtime files
// that should never be committed. It reads the existing file and only adds
// entries that aren't already present.
func ensureGitignore(dir string) error {
	gitignorePath := filepath.Join(dir, ".gitignore")

	// config.yaml IS committed; everything else under .assessor/ is per-user state.
	requiredEntries := []string{
		".assessor/log.jsonl",
		".assessor/checkpoint.json",
		".assessor/*.db",
		".assessor/reports/",
	}

	// Read existing content.
	existing := ""
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existing = string(data)
	}

	// Find entries that are missing.
	var missing []string
	for _, entry := range requiredEntries {
		if !strings.Contains(existing, entry) {
			missing = append(missing, entry)
		}
	}

	if len(missing) == 0 {
		return nil
	}

	// Build the content to append.
	var toAppend strings.Builder
	if existing != "" && !strings.HasSuffix(existing, "\n") {
		toAppend.WriteString("\n")
	}
	if existing != "" {
		toAppend.WriteString("\n# Added by assessor init\n")
	}
	for _, entry := range missing {
		toAppend.WriteString(entry + "\n")
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening .gitignore: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(toAppend.String()); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	return nil
}
