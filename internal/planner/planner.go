package planner

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"parser-agent/internal/logger"
	"parser-agent/internal/session"
)

const maxSampleRows = 5

// PDFLibrary is the extraction library the plan prompt steers towards. It
// must be importable by the test interpreter.
const PDFLibrary = "pdfplumber"

type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Planner struct {
	llm Completer
}

func New(llm Completer) *Planner {
	return &Planner{llm: llm}
}

// Run overwrites s.Plan with a revised plan. LLM failures are returned as is.
func (p *Planner) Run(ctx context.Context, s *session.Session) error {
	prompt := buildPlanPrompt(s, referencePreview(s.CSVPath))

	plan, err := p.llm.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("failed to generate plan from LLM: %w", err)
	}
	s.Plan = strings.TrimSpace(plan)
	logger.Log.Infow("plan revised", "run_id", s.RunID, "attempt", s.Attempt(), "plan_chars", len(s.Plan))
	return nil
}

func buildPlanPrompt(s *session.Session, preview string) string {
	var sb strings.Builder

	sb.WriteString("You are an expert Python programmer. Your goal is to create a plan to write a Python script that parses a bank statement PDF.\n")
	sb.WriteString(fmt.Sprintf("The target bank is '%s'.\n", s.Target))
	sb.WriteString("The script must have a function `parse(pdf_path)` that returns a pandas DataFrame.\n")
	sb.WriteString(fmt.Sprintf("The output DataFrame must match the structure of this CSV: '%s'.\n\n", s.CSVPath))

	if preview != "" {
		sb.WriteString("REFERENCE CSV (header and first rows):\n")
		sb.WriteString(preview)
		sb.WriteString("\n")
	}

	sb.WriteString("STRATEGY THAT USUALLY WORKS:\n")
	sb.WriteString(fmt.Sprintf("1. Use the '%s' library to open the PDF.\n", PDFLibrary))
	sb.WriteString("2. Use 'extract_tables()' on each page to find the transaction table.\n")
	sb.WriteString("3. Convert the table rows into a pandas DataFrame, using the header row for column names.\n")
	sb.WriteString("4. Rename, drop and reorder columns so they are exactly the reference CSV's columns, in the same order.\n")
	sb.WriteString("5. Give every column the dtype pandas infers when reading the reference CSV (numbers numeric, empty amounts handled the same way).\n")
	sb.WriteString("6. The comparison is DataFrame.equals: column names, order, dtypes and every value must match.\n\n")

	switch {
	case s.TestResult == session.NoTestYet:
		sb.WriteString("This is the first attempt; no test has run yet.\n")
	default:
		sb.WriteString(fmt.Sprintf("Here was the result from the last attempt (attempt %d of %d):\n", s.Attempt()-1, s.Budget))
		sb.WriteString(s.TestResult)
		sb.WriteString("\n")
	}
	sb.WriteString("\nBased on this, create a short, step-by-step plan to write a better parser.\n")

	return sb.String()
}

// referencePreview renders the reference header and a few rows, or "" when
// the file cannot be read. The reference is only a hint here.
func referencePreview(path string) string {
	f, err := os.Open(path)
	if err != nil {
		logger.Log.Debugw("reference preview unavailable", "path", path, "error", err)
		return ""
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var sb strings.Builder
	for i := 0; i <= maxSampleRows; i++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Log.Debugw("reference preview truncated", "path", path, "error", err)
			break
		}
		sb.WriteString(strings.Join(rec, ","))
		sb.WriteString("\n")
	}
	return sb.String()
}
