package utils

import (
	"regexp"
	"sort"
	"strings"
)

// Calls a parser has no business making. Keys are reported names.
var riskyCalls = map[string]*regexp.Regexp{
	"os.system":       regexp.MustCompile(`\bos\.system\s*\(`),
	"os.remove":       regexp.MustCompile(`\bos\.(remove|unlink|rmdir)\s*\(`),
	"shutil.rmtree":   regexp.MustCompile(`\bshutil\.rmtree\s*\(`),
	"subprocess":      regexp.MustCompile(`\bsubprocess\b`),
	"eval/exec":       regexp.MustCompile(`(^|[^.\w])(eval|exec)\s*\(`),
	"socket":          regexp.MustCompile(`\bimport\s+socket\b|\bsocket\.socket\s*\(`),
	"network request": regexp.MustCompile(`\b(requests|urllib\.request|http\.client)\b`),
}

// RiskyCalls lists the risky calls found in code, sorted. Comment lines are
// skipped.
func RiskyCalls(code string) []string {
	var kept []string
	for _, line := range strings.Split(code, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		kept = append(kept, line)
	}
	body := strings.Join(kept, "\n")

	var found []string
	for name, re := range riskyCalls {
		if re.MatchString(body) {
			found = append(found, name)
		}
	}
	sort.Strings(found)
	return found
}
