package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	SuccessMarker = "success"
	NoTestYet     = "No test run yet."
	DefaultBudget = 3

	DocumentExt  = ".pdf"
	ReferenceExt = ".csv"
	SourceExt    = ".py"
)

var ErrInvalidTarget = errors.New("invalid target")

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Session is the record threaded through planner, generator and verifier.
// It is owned by exactly one component at a time.
type Session struct {
	RunID         string `json:"run_id"`
	Target        string `json:"target_bank"`
	PDFPath       string `json:"pdf_path"`
	CSVPath       string `json:"csv_path"`
	ParserPath    string `json:"parser_path"`
	Plan          string `json:"plan"`
	GeneratedCode string `json:"generated_code"`
	TestResult    string `json:"test_result"`
	AttemptsLeft  int    `json:"attempts_left"`
	Budget        int    `json:"budget"`
}

type Layout struct {
	DataDir    string
	ParsersDir string
}

func DefaultLayout() Layout {
	return Layout{DataDir: "data", ParsersDir: "custom_parsers"}
}

func ValidateTarget(target string) error {
	t := strings.TrimSpace(target)
	if t == "" {
		return fmt.Errorf("%w: empty", ErrInvalidTarget)
	}
	if t != target {
		return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidTarget, target)
	}
	if t == "." || t == ".." || strings.ContainsAny(t, `/\`) || strings.ContainsRune(t, 0) {
		return fmt.Errorf("%w: %q must not contain path elements", ErrInvalidTarget, target)
	}
	return nil
}

// New builds the initial record for target with the full attempt budget.
func New(runID, target string, budget int, layout Layout) (*Session, error) {
	if err := ValidateTarget(target); err != nil {
		return nil, err
	}
	if budget < 1 {
		return nil, fmt.Errorf("attempt budget must be at least 1, got %d", budget)
	}
	base := target + "_sample"
	return &Session{
		RunID:        runID,
		Target:       target,
		PDFPath:      filepath.Join(layout.DataDir, target, base+DocumentExt),
		CSVPath:      filepath.Join(layout.DataDir, target, base+ReferenceExt),
		ParserPath:   filepath.Join(layout.ParsersDir, target+"_parser"+SourceExt),
		TestResult:   NoTestYet,
		AttemptsLeft: budget,
		Budget:       budget,
	}, nil
}

func (s *Session) Passed() bool {
	return s.TestResult == SuccessMarker
}

// Attempt is the 1-based number of the cycle currently in progress.
func (s *Session) Attempt() int {
	return s.Budget - s.AttemptsLeft + 1
}

// ModuleName is a per-attempt import name for the candidate so a fresh
// interpreter never resolves a cached module from an earlier cycle.
func (s *Session) ModuleName() string {
	name := nonIdent.ReplaceAllString(s.Target, "_")
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "t_" + name
	}
	return fmt.Sprintf("%s_parser_attempt%d", name, s.Attempt())
}

func (s *Session) Snapshot() Session {
	return *s
}
