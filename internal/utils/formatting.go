package utils

import (
	"fmt"
	"regexp"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripANSI removes ANSI color escape sequences from s.
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// GetMaxWidth returns the widest visible line length among lines.
func GetMaxWidth(lines []string) int {
	max := 0
	for _, line := range lines {
		if l := len([]rune(StripANSI(line))); l > max {
			max = l
		}
	}
	return max
}

// HumanSize renders a byte count with a binary unit suffix.
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
