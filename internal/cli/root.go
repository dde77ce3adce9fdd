// Package cli defines Cobra command definitions for the assessor CLI.
// This file contains the root command, global flags, and help output.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose   bool
	plainFlag bool
	dirFlag   string
	apiURL    string
	version   = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "assessor",
	Short: "Adaptive personality assessment in your terminal",
	Long: `Assessor runs an adaptive personality assessment against a scoring
service. Questions arrive in batches chosen from your earlier answers;
progress is checkpointed after every answer so an interrupted session
can be resumed.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// Verbose returns true if --verbose flag is set.
func Verbose() bool {
	return verbose
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Print configuration and log locations")
	rootCmd.PersistentFlags().BoolVar(&plainFlag, "plain", false, "Use line-oriented output instead of the full-screen UI")
	rootCmd.PersistentFlags().StringVar(&dirFlag, "dir", "", "Working directory holding .assessor/ (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Override api.base_url from the config")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(abandonCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(cleanCmd)
}
