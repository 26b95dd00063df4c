package generator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"parser-agent/internal/logger"
	"parser-agent/internal/session"
)

type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Generator struct {
	llm Completer
}

func New(llm Completer) *Generator {
	return &Generator{llm: llm}
}

// Run turns the current plan into candidate source and stores it in
// s.GeneratedCode.
func (g *Generator) Run(ctx context.Context, s *session.Session) error {
	raw, err := g.llm.Complete(ctx, buildCodePrompt(s.Plan))
	if err != nil {
		return fmt.Errorf("failed to generate code from LLM: %w", err)
	}
	s.GeneratedCode = StripCodeFences(raw)
	logger.Log.Infow("candidate generated",
		"run_id", s.RunID,
		"attempt", s.Attempt(),
		"raw_chars", len(raw),
		"code_chars", len(s.GeneratedCode))
	return nil
}

func buildCodePrompt(plan string) string {
	var sb strings.Builder
	sb.WriteString("Based on the following plan, write the full Python code for the parser.\n")
	sb.WriteString("Plan:\n")
	sb.WriteString(plan)
	sb.WriteString("\n\n")
	sb.WriteString("The code must be a single Python script. It must define a function `parse(pdf_path)` that takes a file path and returns a pandas DataFrame.\n")
	sb.WriteString("Use libraries like pandas and pdfplumber. Do not include any example usage, just the function and necessary imports.\n")
	sb.WriteString("Do not run anything at import time.\n")
	return sb.String()
}

var fenceRe = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\r?\n(.*?)```")

// StripCodeFences returns the body of the first fenced block in text, or the
// trimmed text itself when it has no complete fence.
func StripCodeFences(text string) string {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]) + "\n"
	}
	out := strings.TrimSpace(text)
	// Unterminated fence: drop the stray markers.
	if strings.HasPrefix(out, "```") {
		if nl := strings.IndexByte(out, '\n'); nl >= 0 {
			out = out[nl+1:]
		} else {
			out = ""
		}
	}
	out = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(out), "```"))
	if out == "" {
		return ""
	}
	return out + "\n"
}
