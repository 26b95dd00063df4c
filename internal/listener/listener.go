package listener

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"parser-agent/internal/session"
	"parser-agent/internal/utils"
)

const previewLines = 40

// Console asks the operator before a candidate runs. It owns one readline
// instance for the lifetime of the run.
type Console struct {
	mu sync.Mutex
	rl *readline.Instance
}

// NewConsole reads answers from stdin. With terminal=false the streams are
// treated as plain pipes and raw mode is never entered.
func NewConsole(stdin io.ReadCloser, stdout io.Writer, terminal bool) (*Console, error) {
	cfg := &readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "",
		Stdin:           stdin,
		Stdout:          stdout,
	}
	if !terminal {
		cfg.FuncIsTerminal = func() bool { return false }
		cfg.FuncMakeRaw = func() error { return nil }
		cfg.FuncExitRaw = func() error { return nil }
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, fmt.Errorf("init terminal input: %w", err)
	}
	return &Console{rl: rl}, nil
}

func (c *Console) Close() {
	if c.rl != nil {
		_ = c.rl.Close()
	}
}

func (c *Console) println(s string) {
	_, _ = c.rl.Write([]byte(s + "\n"))
}

func (c *Console) getConfirmation(prompt string) (string, error) {
	c.rl.SetPrompt(prompt)
	line, err := c.rl.Readline()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.ToLower(line)), nil
}

// AskYesNo repeats the question until it gets y/yes or n/no. Interrupt and
// EOF are returned as errors.
func (c *Console) AskYesNo(question string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.println(question + " [y/n]")
	for {
		ans, err := c.getConfirmation("> ")
		if err != nil {
			return false, err
		}
		switch ans {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		c.println("Please answer y/n.")
	}
}

// Approve shows the candidate and asks whether to execute it.
func (c *Console) Approve(ctx context.Context, s *session.Session) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	c.println(formatCandidate(s))
	c.mu.Unlock()
	return c.AskYesNo(fmt.Sprintf("Execute candidate parser for %s (attempt %d of %d)?", s.Target, s.Attempt(), s.Budget))
}

func formatCandidate(s *session.Session) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Candidate written to %s:\n", s.ParserPath))
	sb.WriteString("--------------------------------------------------\n")
	lines := strings.Split(strings.TrimRight(s.GeneratedCode, "\n"), "\n")
	for i, l := range lines {
		if i == previewLines {
			sb.WriteString(fmt.Sprintf("... (%d more lines)\n", len(lines)-previewLines))
			break
		}
		sb.WriteString(l + "\n")
	}
	sb.WriteString("--------------------------------------------------")
	if risky := utils.RiskyCalls(s.GeneratedCode); len(risky) > 0 {
		sb.WriteString(fmt.Sprintf("\nWARNING: candidate uses %s", strings.Join(risky, ", ")))
	}
	return sb.String()
}
