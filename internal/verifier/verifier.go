package verifier

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"parser-agent/internal/logger"
	"parser-agent/internal/session"
	"parser-agent/internal/utils"
	"parser-agent/internal/workspace"
)

var ErrLaunch = errors.New("could not launch test driver")

const (
	DeclinedResult = "Execution declined by operator."
	timeoutPrefix  = "Timeout: candidate parser did not finish within "
)

type Config struct {
	Python     string
	RunnerPath string
	Timeout    time.Duration
}

// Approver gates execution of a candidate. Returning false records a failed
// attempt without running anything.
type Approver interface {
	Approve(ctx context.Context, s *session.Session) (bool, error)
}

type Verifier struct {
	cfg      Config
	runner   Runner
	approver Approver
}

func New(cfg Config, runner Runner, approver Approver) *Verifier {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Verifier{cfg: cfg, runner: runner, approver: approver}
}

// Run persists the candidate, executes the test driver against the reference
// pair and records the outcome. Exactly one attempt is consumed unless an
// error is returned; errors mean the run cannot continue.
func (v *Verifier) Run(ctx context.Context, s *session.Session) error {
	if err := workspace.WriteFile(s.ParserPath, s.GeneratedCode); err != nil {
		return fmt.Errorf("persist candidate: %w", err)
	}

	driver, err := v.driverFor(s)
	if err != nil {
		return err
	}
	if err := workspace.WriteFile(v.cfg.RunnerPath, driver); err != nil {
		return fmt.Errorf("persist test driver: %w", err)
	}

	if risky := utils.RiskyCalls(s.GeneratedCode); len(risky) > 0 {
		logger.Log.Warnw("candidate makes risky calls", "run_id", s.RunID, "attempt", s.Attempt(), "calls", risky)
	}

	if v.approver != nil {
		ok, err := v.approver.Approve(ctx, s)
		if err != nil {
			return fmt.Errorf("operator approval: %w", err)
		}
		if !ok {
			logger.Log.Infow("candidate execution declined", "run_id", s.RunID, "attempt", s.Attempt())
			v.record(s, DeclinedResult)
			return nil
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
	defer cancel()

	res, err := v.runner.Run(runCtx, Command{
		Name: v.cfg.Python,
		Args: []string{v.cfg.RunnerPath},
		Env:  ChildEnv(),
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLaunch, v.cfg.Python, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	logger.Log.Infow("test driver finished",
		"run_id", s.RunID,
		"attempt", s.Attempt(),
		"exit_code", res.ExitCode,
		"timed_out", res.TimedOut,
		"duration_ms", res.Duration.Milliseconds())

	v.record(s, v.classify(res))
	return nil
}

func (v *Verifier) record(s *session.Session, outcome string) {
	s.TestResult = outcome
	s.AttemptsLeft--
}

func (v *Verifier) classify(res Result) string {
	if res.TimedOut {
		return timeoutPrefix + v.cfg.Timeout.String() + "\n" + res.Stdout + res.Stderr
	}
	if strings.Contains(res.Stdout, session.SuccessMarker) {
		return session.SuccessMarker
	}
	diag := res.Stdout + res.Stderr
	if strings.TrimSpace(diag) == "" {
		return fmt.Sprintf("Test driver produced no output (exit code %d).", res.ExitCode)
	}
	return diag
}

func (v *Verifier) driverFor(s *session.Session) (string, error) {
	parser, err := filepath.Abs(s.ParserPath)
	if err != nil {
		return "", err
	}
	csv, err := filepath.Abs(s.CSVPath)
	if err != nil {
		return "", err
	}
	pdf, err := filepath.Abs(s.PDFPath)
	if err != nil {
		return "", err
	}
	return renderDriver(driverParams{
		ModuleName:    s.ModuleName(),
		ParserPath:    parser,
		ReferencePath: csv,
		DocumentPath:  pdf,
	})
}
