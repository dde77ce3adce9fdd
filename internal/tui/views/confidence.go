package views

import (
	"fmt"
	"strings"

	"github.com/berth-dev/assessor/internal/model"
	"github.com/berth-dev/assessor/internal/notify"
	"github.com/berth-dev/assessor/internal/tui"
)

const confidenceBarWidth = 12

// RenderConfidence draws one line per trait: a bar, the percentage and
// the level. An empty snapshot renders a placeholder.
func RenderConfidence(c model.Confidence, width int) string {
	var b strings.Builder
	b.WriteString(tui.TitleStyle.Render("Confidence"))
	b.WriteString("\n")

	if c.Empty() {
		b.WriteString(tui.DimStyle.Render("Answer a few questions to see your profile take shape."))
		return tui.PanelStyle.Width(panelWidth(width)).Render(b.String())
	}

	nameWidth := 0
	for _, trait := range c.Traits() {
		if n := len(notify.DisplayName(trait)); n > nameWidth {
			nameWidth = n
		}
	}

	for _, trait := range c.Traits() {
		tc := c[trait]
		level := string(tc.Level)
		if level == "" {
			level = string(model.LevelInsufficient)
		}
		fmt.Fprintf(&b, "%-*s %s %3.0f%% %s\n",
			nameWidth, notify.DisplayName(trait),
			bar(tc.Confidence, confidenceBarWidth),
			tc.Confidence,
			tui.LevelStyle(level).Render(level))
	}
	return tui.PanelStyle.Width(panelWidth(width)).Render(strings.TrimRight(b.String(), "\n"))
}

// bar renders pct (0-100) as a fixed-width block bar.
func bar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return tui.ProgressFullStyle.Render(strings.Repeat("█", filled)) +
		tui.ProgressEmptyStyle.Render(strings.Repeat("░", width-filled))
}

func panelWidth(width int) int {
	if width-4 < maxQuestionWidth {
		return width - 4
	}
	return maxQuestionWidth
}
