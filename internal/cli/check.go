package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"parser-agent/internal/logger"
	"parser-agent/internal/planner"
	"parser-agent/internal/preflight"
)

var errPreflight = errors.New("preflight checks failed")

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the sample pair and the Python environment for a target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			defer logger.Sync()

			s, err := newSession(cfg, opts.target)
			if err != nil {
				return err
			}
			rep, err := preflight.Run(cmd.Context(), s, cfg.Python, planner.PDFLibrary)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), rep.String())
			if !rep.OK() {
				logger.Log.Warnw("preflight failed", "target", s.Target, "failures", len(rep.Failures()))
				return errPreflight
			}
			return nil
		},
	}
}

// Execute runs the root command and exits non-zero on fatal errors.
func Execute() {
	if err := newRootCmd(defaultDeps()).Execute(); err != nil {
		logger.Log.Errorw("run failed", "error", err)
		logger.Sync()
		os.Exit(1)
	}
}
