package display

import (
	"fmt"
	"strings"

	"parser-agent/internal/metrics"
)

func FormatRunMetrics(rm *metrics.RunMetrics) string {
	if rm == nil {
		return "No metrics available."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run %s (%s) metrics:\n", rm.RunID, rm.Target))
	sb.WriteString(fmt.Sprintf("- Total: %d ms  (success=%v, cycles=%d)\n", rm.DurationMs, rm.Succeeded, len(rm.Cycles)))
	for _, c := range rm.Cycles {
		status := "fail"
		if c.Passed {
			status = "pass"
		}
		sb.WriteString(fmt.Sprintf("  Attempt %d: %d ms  [%s]\n", c.Attempt, c.DurationMs, status))
		for _, s := range c.Steps {
			line := fmt.Sprintf("    - %-15s %6d ms", s.Node, s.DurationMs)
			if s.Err != "" {
				line += "  err: " + formatValueForDisplay(s.Err, 120)
			}
			sb.WriteString(line + "\n")
		}
	}
	return sb.String()
}
