package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/FranksOps/searchcredit/internal/config"
	"github.com/FranksOps/searchcredit/internal/logging"
)

// exitError carries a non-zero exit code without printing anything further.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// app is the state shared by every command.
type app struct {
	in      io.Reader
	cfg     *config.Config
	logger  *slog.Logger
	closers []func() error

	configFile string
	envFile    string
}

// flagKeys maps flag names to config keys; only flags defined on the running
// command are bound.
var flagKeys = map[string]string{
	"log-level":     "log.level",
	"log-format":    "log.format",
	"limit":         "run.limit",
	"trending-only": "run.trending_only",
	"metrics-port":  "metrics.port",
	"headless":      "browser.headless",
	"profile":       "browser.profile",
	"engine":        "browser.engine",
	"exec-path":     "browser.exec_path",
	"proxy-file":    "browser.proxy_file",
	"storage":       "storage.backend",
	"dsn":           "storage.dsn",
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(config.NewViper(), config.Options{
		ConfigFile: a.configFile,
		EnvFile:    a.envFile,
		Flags:      cmd.Flags(),
		FlagKeys:   flagKeys,
	})
	if err != nil {
		return err
	}
	logger, teardown, err := logging.Setup(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		ErrorFile: cfg.Log.ErrorFile,
		Output:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.closers = append(a.closers, teardown)
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "searchcredit",
		Short:         "Run paced web searches through a browser profile",
		Long:          "searchcredit blends trending and synthesized search terms and submits them one at a time\nthrough a real browser session, pausing a few seconds between searches.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, a, true)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default ./searchcredit.yaml)")
	pf.StringVar(&a.envFile, "env-file", "", "dotenv file (default ./.env)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text or json")

	root.AddCommand(
		newStatusCmd(a),
		newRunCmd(a),
		newTestCmd(a),
		newProfilesCmd(a),
		newHistoryCmd(a),
	)
	return root
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	a := &app{in: in}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(errOut, "Error: %v\n", err)
	return 1
}
