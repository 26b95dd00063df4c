package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"parser-agent/internal/session"
	"parser-agent/internal/verifier"
)

const (
	checkConcurrency = 4
	moduleTimeout    = 30 * time.Second
)

type Check struct {
	Name string `json:"name"`
	OK   bool   `json:"ok"`
	Err  string `json:"err,omitempty"`
}

type Report struct {
	Checks []Check `json:"checks"`
}

func (r *Report) OK() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

func (r *Report) Failures() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.OK {
			out = append(out, c)
		}
	}
	return out
}

// Modules the test driver itself imports.
var driverModules = []string{"pandas"}

type probe struct {
	name string
	run  func(ctx context.Context) error
}

// Run checks the reference pair and the interpreter concurrently. Failures
// are reported, never returned; the returned error is only ctx's.
func Run(ctx context.Context, s *session.Session, python string, extraModules ...string) (*Report, error) {
	probes := []probe{
		{name: "input document " + s.PDFPath, run: fileExists(s.PDFPath)},
		{name: "reference output " + s.CSVPath, run: fileExists(s.CSVPath)},
		{name: "interpreter " + python, run: func(context.Context) error {
			_, err := exec.LookPath(python)
			return err
		}},
	}
	for _, m := range append(append([]string{}, driverModules...), extraModules...) {
		probes = append(probes, probe{name: "python module " + m, run: importable(python, m)})
	}

	checks := make([]Check, len(probes))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(checkConcurrency)
	for i, p := range probes {
		g.Go(func() error {
			err := p.run(gctx)
			c := Check{Name: p.name, OK: err == nil}
			if err != nil {
				c.Err = err.Error()
			}
			mu.Lock()
			checks[i] = c
			mu.Unlock()
			return nil // a failed probe must not cancel the others
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Report{Checks: checks}, nil
}

func fileExists(path string) func(context.Context) error {
	return func(context.Context) error {
		st, err := os.Stat(path)
		if err != nil {
			return err
		}
		if st.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
		return nil
	}
}

func importable(python, module string) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, moduleTimeout)
		defer cancel()
		// Same environment the test driver gets, so a pass here holds there.
		cmd := exec.CommandContext(ctx, python, "-c", "import "+module)
		cmd.Env = verifier.ChildEnv()
		out, err := cmd.CombinedOutput()
		if err != nil {
			msg := strings.TrimSpace(string(out))
			if msg == "" {
				return err
			}
			lines := strings.Split(msg, "\n")
			return fmt.Errorf("%w: %s", err, lines[len(lines)-1])
		}
		return nil
	}
}

func (r *Report) String() string {
	var sb strings.Builder
	for _, c := range r.Checks {
		status := "ok"
		if !c.OK {
			status = "FAIL"
		}
		sb.WriteString(fmt.Sprintf("[%-4s] %s", status, c.Name))
		if c.Err != "" {
			sb.WriteString(": " + c.Err)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
