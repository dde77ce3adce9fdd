// start.go implements the "assessor start" command.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/berth-dev/assessor/internal/assessment"
	"github.com/berth-dev/assessor/internal/model"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new assessment",
	Long: `Start a new assessment session. Tier, concerns and demographics
default to the values in .assessor/config.yaml.

Refuses to start while another assessment is in progress; resume it
with 'assessor resume' or discard it with 'assessor abandon'.`,
	RunE: runStart,
}

var (
	tierFlag         string
	concernFlags     []string
	demographicFlags map[string]string
	intelligentFlag  bool
)

func init() {
	startCmd.Flags().StringVar(&tierFlag, "tier", "", "Assessment tier: standard or comprehensive")
	startCmd.Flags().StringArrayVar(&concernFlags, "concern", nil, "Area of concern to focus on (repeatable)")
	startCmd.Flags().StringToStringVar(&demographicFlags, "demographic", nil, "Demographic hint as key=value (repeatable)")
	startCmd.Flags().BoolVar(&intelligentFlag, "intelligent", false, "Ask the service for one adaptively chosen question at a time")
}

func runStart(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	cp, err := e.store.Load()
	if err != nil {
		// Unreadable checkpoint: warn and start fresh.
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: discarding unreadable checkpoint: %v\n", err)
		if clearErr := e.store.Clear(); clearErr != nil {
			return fmt.Errorf("clearing checkpoint: %w", clearErr)
		}
	} else if cp != nil {
		return fmt.Errorf("an assessment is already in progress (session %s, %d answers); run 'assessor resume' or 'assessor abandon'",
			cp.SessionID, len(cp.Responses))
	}

	req, err := startRequest(e)
	if err != nil {
		return err
	}
	return runSession(cmd, e, sessionOptions{request: req})
}

// startRequest merges command-line flags over the configured defaults.
func startRequest(e *env) (assessment.StartRequest, error) {
	a := e.cfg.Assessment

	tierName := a.Tier
	if tierFlag != "" {
		tierName = tierFlag
	}
	tier, err := model.ParseTier(tierName)
	if err != nil {
		return assessment.StartRequest{}, err
	}

	req := assessment.StartRequest{
		Tier:                      tier,
		Concerns:                  a.Concerns,
		Demographics:              a.Demographics,
		PreferIntelligentSelector: a.PreferIntelligentSelector || intelligentFlag,
	}
	if len(concernFlags) > 0 {
		req.Concerns = concernFlags
	}
	if len(demographicFlags) > 0 {
		merged := make(map[string]string, len(a.Demographics)+len(demographicFlags))
		for k, v := range a.Demographics {
			merged[k] = v
		}
		for k, v := range demographicFlags {
			merged[k] = v
		}
		req.Demographics = merged
	}
	return req, nil
}
