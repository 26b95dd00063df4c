package verifier

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"
)

type Command struct {
	Name string
	Args []string
	Env  []string
}

type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// Runner executes a child process. The error return is reserved for failures
// to start it; a child that exits non-zero or is killed on deadline is a
// normal Result.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// waitDelay bounds how long we keep reading pipes after the child is killed,
// in case it left grandchildren holding them open.
const waitDelay = 2 * time.Second

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Env = c.Env
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, err
	}
	err := cmd.Wait()

	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		return res, nil
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) && !errors.Is(err, exec.ErrWaitDelay) {
		return res, err
	}
	return res, nil
}

var passEnv = []string{
	"PATH", "HOME", "USERPROFILE", "SYSTEMROOT", "TMPDIR", "TEMP", "TMP",
	"LANG", "LC_ALL", "VIRTUAL_ENV", "CONDA_PREFIX", "PYTHONPATH",
}

// ChildEnv is a reduced environment: API keys and other secrets of the agent
// process are not visible to generated code.
func ChildEnv() []string {
	env := make([]string, 0, len(passEnv)+2)
	for _, k := range passEnv {
		if v, ok := os.LookupEnv(k); ok {
			env = append(env, k+"="+v)
		}
	}
	return append(env, "PYTHONDONTWRITEBYTECODE=1", "PYTHONIOENCODING=utf-8")
}
