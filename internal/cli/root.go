package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"parser-agent/internal/config"
	"parser-agent/internal/display"
	"parser-agent/internal/generator"
	"parser-agent/internal/listener"
	"parser-agent/internal/llm_client"
	"parser-agent/internal/logger"
	"parser-agent/internal/planner"
	"parser-agent/internal/preflight"
	"parser-agent/internal/session"
	"parser-agent/internal/supervisor"
	"parser-agent/internal/verifier"
)

type options struct {
	target     string
	configPath string
	backend    string
	model      string
	attempts   int
	timeout    time.Duration
	python     string
	dataDir    string
	parsersDir string
	format     string
	confirm    bool
	debug      bool
}

type completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// deps are the collaborators a run needs; tests replace them.
type deps struct {
	newLLM   func(ctx context.Context, cfg *config.Config) (completer, error)
	runner   verifier.Runner
	approver func(cfg *config.Config) (verifier.Approver, func(), error)
}

func defaultDeps() deps {
	return deps{
		newLLM: func(ctx context.Context, cfg *config.Config) (completer, error) {
			c, err := llm_client.New(ctx, llm_client.Config{
				Backend:    cfg.Backend,
				Model:      cfg.Model,
				OllamaHost: cfg.OllamaHost,
				BaseURL:    cfg.OpenAIBaseURL,
				Timeout:    cfg.LLMTimeout,
			})
			if err != nil {
				return nil, err
			}
			logger.Log.Infow("llm client ready", "backend", c.Backend(), "model", c.Model(), "default_model", c.DefaultModel())
			return c, nil
		},
		runner: verifier.ExecRunner{},
		approver: func(cfg *config.Config) (verifier.Approver, func(), error) {
			if !cfg.Confirm {
				return nil, func() {}, nil
			}
			// Prompts go to stderr so stdout carries only events.
			c, err := listener.NewConsole(os.Stdin, os.Stderr, true)
			if err != nil {
				return nil, nil, err
			}
			return c, c.Close, nil
		},
	}
}

func newRootCmd(d deps) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "parser-agent",
		Short: "Generate a bank statement parser with an LLM, test it, and retry until it matches",
		Long: `parser-agent asks a language model to plan, write and test a Python parser for a
bank statement PDF. The parser is checked against a reference CSV and the loop
retries with the test diagnostics until the output matches or attempts run out.

Expected layout:
  data/<target>/<target>_sample.pdf   input document
  data/<target>/<target>_sample.csv   reference output
  custom_parsers/<target>_parser.py   generated parser (overwritten each attempt)`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSession(ctx, cfg, opts.target, d, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.target, "target", "", "target bank identifier, e.g. 'icici' (required)")
	pf.StringVar(&opts.configPath, "config", "", "YAML config file (default "+config.DefaultFile+" if present)")
	pf.StringVar(&opts.python, "python", "", "python interpreter used to test candidates")
	pf.StringVar(&opts.dataDir, "data-dir", "", "directory holding <target>/ sample folders")
	pf.StringVar(&opts.parsersDir, "parsers-dir", "", "directory generated parsers are written to")
	pf.BoolVar(&opts.debug, "debug", false, "debug logging")
	_ = root.MarkPersistentFlagRequired("target")

	f := root.Flags()
	f.StringVar(&opts.backend, "backend", "", "LLM backend: gemini, ollama, groq or openai")
	f.StringVar(&opts.model, "model", "", "model name (backend default when empty)")
	f.IntVar(&opts.attempts, "attempts", 0, "attempt budget")
	f.DurationVar(&opts.timeout, "timeout", 0, "time limit for one test run")
	f.StringVar(&opts.format, "format", "", "event output format: text (long fields truncated) or json (full record)")
	f.BoolVar(&opts.confirm, "confirm", false, "ask before executing each generated parser")

	root.AddCommand(newCheckCmd(opts))
	return root
}

func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = opts.backend
	}
	if flags.Changed("model") {
		cfg.Model = opts.model
	}
	if flags.Changed("attempts") {
		cfg.MaxAttempts = opts.attempts
	}
	if flags.Changed("timeout") {
		cfg.TestTimeout = opts.timeout
	}
	if flags.Changed("python") {
		cfg.Python = opts.python
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = opts.dataDir
	}
	if flags.Changed("parsers-dir") {
		cfg.ParsersDir = opts.parsersDir
	}
	if flags.Changed("format") {
		cfg.Format = opts.format
	}
	if flags.Changed("confirm") {
		cfg.Confirm = opts.confirm
	}
	if flags.Changed("debug") {
		cfg.Debug = opts.debug
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.LogFile, cfg.Debug); err != nil {
		return nil, fmt.Errorf("could not initialize logger: %w", err)
	}
	return cfg, nil
}

func newSession(cfg *config.Config, target string) (*session.Session, error) {
	runID := uuid.New().String()[:8]
	return session.New(runID, target, cfg.MaxAttempts, session.Layout{
		DataDir:    cfg.DataDir,
		ParsersDir: cfg.ParsersDir,
	})
}

// runSession is the composition root: the LLM handle and the controller are
// built once here and passed to the components explicitly.
func runSession(ctx context.Context, cfg *config.Config, target string, d deps, stdout, stderr io.Writer) error {
	defer logger.Sync()

	s, err := newSession(cfg, target)
	if err != nil {
		return err
	}

	if rep, err := preflight.Run(ctx, s, cfg.Python, planner.PDFLibrary); err != nil {
		return err
	} else if !rep.OK() {
		for _, c := range rep.Failures() {
			logger.Log.Warnw("preflight check failed", "run_id", s.RunID, "check", c.Name, "error", c.Err)
			fmt.Fprintf(stderr, "warning: %s: %s\n", c.Name, c.Err)
		}
	}

	llm, err := d.newLLM(ctx, cfg)
	if err != nil {
		return fmt.Errorf("could not initialize LLM client: %w", err)
	}

	approver, closeApprover, err := d.approver(cfg)
	if err != nil {
		return err
	}
	defer closeApprover()

	controller := supervisor.New(
		planner.New(llm),
		generator.New(llm),
		verifier.New(verifier.Config{
			Python:     cfg.Python,
			RunnerPath: filepath.Clean(cfg.RunnerFile),
			Timeout:    cfg.TestTimeout,
		}, d.runner, approver),
	)

	emit := func(e supervisor.Event) error {
		logger.Log.Debugw("event", "run_id", s.RunID, "detail", display.FormatEventFull(e))
		if cfg.Format == "json" {
			line, err := display.FormatEventJSON(e)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(stdout, line)
			return err
		}
		_, err := fmt.Fprintln(stdout, display.FormatEvent(e))
		return err
	}

	rm, err := controller.Run(ctx, s, emit)
	logger.Log.Info(display.FormatRunMetrics(rm))
	return err
}
