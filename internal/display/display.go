package display

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"parser-agent/internal/supervisor"
)

const maxFieldLength = 400

// FormatEvent renders one transition for the terminal. Long fields are
// truncated; use FormatEventFull for the log file.
func FormatEvent(e supervisor.Event) string {
	return formatEventInternal(e, maxFieldLength)
}

func FormatEventFull(e supervisor.Event) string {
	return formatEventInternal(e, -1)
}

func formatEventInternal(e supervisor.Event, limit int) string {
	s := e.Session
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("---%s--- %s -> %s\n", strings.ToUpper(e.Node), e.From, e.Next))
	sb.WriteString(fmt.Sprintf("  target_bank:    %s\n", s.Target))
	sb.WriteString(fmt.Sprintf("  pdf_path:       %s\n", s.PDFPath))
	sb.WriteString(fmt.Sprintf("  csv_path:       %s\n", s.CSVPath))
	sb.WriteString(fmt.Sprintf("  plan:           %s\n", formatValueForDisplay(s.Plan, limit)))
	sb.WriteString(fmt.Sprintf("  generated_code: %s\n", formatValueForDisplay(s.GeneratedCode, limit)))
	sb.WriteString(fmt.Sprintf("  test_result:    %s\n", formatValueForDisplay(s.TestResult, limit)))
	sb.WriteString(fmt.Sprintf("  attempts_left:  %d\n", s.AttemptsLeft))
	sb.WriteString("--------------------------------------------------")
	return sb.String()
}

type jsonEvent struct {
	RunID        string `json:"run_id"`
	Target       string `json:"target_bank"`
	PDFPath      string `json:"pdf_path"`
	CSVPath      string `json:"csv_path"`
	Plan         string `json:"plan"`
	Code         string `json:"generated_code"`
	TestResult   string `json:"test_result"`
	AttemptsLeft int    `json:"attempts_left"`
}

// FormatEventJSON renders {"<node>": {...session...}, "next_state": "..."} on
// a single line.
func FormatEventJSON(e supervisor.Event) (string, error) {
	s := e.Session
	out := map[string]any{
		e.Node: jsonEvent{
			RunID:        s.RunID,
			Target:       s.Target,
			PDFPath:      s.PDFPath,
			CSVPath:      s.CSVPath,
			Plan:         s.Plan,
			Code:         s.GeneratedCode,
			TestResult:   s.TestResult,
			AttemptsLeft: s.AttemptsLeft,
		},
		"next_state": e.Next,
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}
	return string(b), nil
}

// Limit a field's stdout length (limit < 0 means no limit)
func formatValueForDisplay(value string, limit int) string {
	s := strings.ReplaceAll(value, "\n", "\\n")
	if limit >= 0 && len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "..."
	}
	return s
}
