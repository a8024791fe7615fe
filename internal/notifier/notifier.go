package notifier

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/researchartifacts/aestats/internal/printer"
	"github.com/researchartifacts/aestats/internal/utils"
)

const (
	borderColor = "\033[38;5;39m"
	resetColor  = "\033[0m"
	padding     = 2
)

// Outcome classifies a finished run for the closing banner.
type Outcome int

const (
	RunSucceeded Outcome = iota
	RunWarnings
	RunFailed
)

// DisplayRunSummary prints the end-of-run banner: the overall outcome
// plus the headline numbers of the dataset that was written.
func DisplayRunSummary(outcome Outcome, conferences, artifacts, warnings int) {
	p := printer.NewColorPrinter()

	var title string
	switch outcome {
	case RunFailed:
		title = p.Error("Run failed")
	case RunWarnings:
		title = p.Warning(fmt.Sprintf("Run completed with %d warnings", warnings))
	default:
		title = p.Success("Run completed")
	}

	lines := []string{
		title,
		fmt.Sprintf("%s %s", p.Info("Conferences parsed:"), p.Success(strconv.Itoa(conferences))),
		fmt.Sprintf("%s %s", p.Info("Artifacts collected:"), p.Success(strconv.Itoa(artifacts))),
	}

	DisplayBanner(lines)
}

// DisplayBanner renders lines centered inside a rounded box.
func DisplayBanner(lines []string) {
	maxWidth := utils.GetMaxWidth(lines) + padding*2
	topBottomBorder := borderColor + "╭" + strings.Repeat("─", maxWidth) + "╮" + resetColor
	sideBorder := borderColor + "│" + resetColor

	fmt.Println(topBottomBorder)
	for _, line := range lines {
		width := len(utils.StripANSI(line))
		paddingLeft := (maxWidth - width) / 2
		paddingRight := maxWidth - width - paddingLeft
		fmt.Printf("%s%s%s%s%s\n", sideBorder, strings.Repeat(" ", paddingLeft), line, strings.Repeat(" ", paddingRight), sideBorder)
	}
	fmt.Println(borderColor + "╰" + strings.Repeat("─", maxWidth) + "╯" + resetColor)
}
