package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/FranksOps/searchcredit/internal/batch"
	"github.com/FranksOps/searchcredit/internal/logging"
	"github.com/FranksOps/searchcredit/internal/metrics"
	"github.com/FranksOps/searchcredit/internal/pipeline"
	"github.com/FranksOps/searchcredit/internal/report"
	"github.com/FranksOps/searchcredit/internal/state"
	"github.com/FranksOps/searchcredit/internal/telemetry"
	"github.com/FranksOps/searchcredit/internal/terms"
	"github.com/FranksOps/searchcredit/pkg/pacing"
)

type runOptions struct {
	confirmed bool
	skipProbe bool
	verbose   bool
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a search batch now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd, a, opts)
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&opts.confirmed, "yes", "y", false, "skip the confirmation prompt")
	f.BoolVar(&opts.skipProbe, "no-probe", false, "skip the browser check before the batch")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "show failure details in progress lines")
	f.Int("limit", 100, "number of searches to perform (1-100)")
	f.Bool("trending-only", false, "use only trending searches")
	f.Int("metrics-port", 0, "serve Prometheus metrics on this port during the run")
	f.Bool("headless", false, "run the browser without a window")
	f.String("profile", "", "browser profile: number, name, directory or path")
	f.String("engine", "bing", "search engine")
	f.String("exec-path", "", "browser executable")
	f.String("proxy-file", "", "file with one proxy URL per line")
	f.String("storage", "sqlite", "search history backend: none, sqlite, postgres, json, csv")
	f.String("dsn", "", "search history location (file path or Postgres DSN)")
	return cmd
}

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
	warnMark = color.New(color.FgYellow).SprintFunc()
)

func runBatch(cmd *cobra.Command, a *app, opts runOptions) error {
	ctx := cmd.Context()
	cfg := a.cfg
	out := cmd.OutOrStdout()

	if cfg.SerpAPIKey == "" {
		fmt.Fprintln(out, failMark("❌ SerpApi key not configured!"))
		fmt.Fprintln(out, "Please set SERPAPI_KEY in your .env file")
		fmt.Fprintln(out, "Create a .env file with your key from https://serpapi.com/")
		return &exitError{code: 1}
	}
	engine, err := a.engine()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n🚀 Starting %s search automation with %d searches...\n", engine.Name, cfg.Run.Limit)
	if cfg.Run.TrendingOnly {
		fmt.Fprintln(out, "This will use trending searches only")
	} else {
		fmt.Fprintln(out, "This will fetch trending searches + synthesized web searches")
	}
	fmt.Fprintln(out, "Please ensure your browser profile is signed in to your account")
	if !opts.confirmed && !confirm(cmd, a, "\nContinue? (y/n): ") {
		fmt.Fprintln(out, "Search batch cancelled.")
		return nil
	}

	if cfg.Metrics.Port > 0 {
		srv, err := metrics.Start(cfg.Metrics.Port, a.logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error {
			ctx, cancel := stopAfter(defaultStopTimeout)
			defer cancel()
			return srv.Stop(ctx)
		})
	}

	pool, err := a.proxies()
	if err != nil {
		return err
	}
	client, err := a.trendsClient(pool)
	if err != nil {
		return err
	}
	launcher, prof, err := a.launcher(pool)
	if err != nil {
		return err
	}
	a.logger.Info("using browser profile", "profile", prof.DisplayName(), "path", prof.Path())

	synth, err := terms.New(newRand())
	if err != nil {
		return err
	}

	sink, err := a.sink(cmd)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := stopAfter(defaultStopTimeout)
		defer cancel()
		if err := sink.Close(ctx); err != nil {
			a.logger.Warn("search history may be incomplete", "err", err)
		}
	}()

	progress := telemetry.NewProgress(out)
	progress.Verbose = opts.verbose

	driver := batch.NewDriver(batch.Config{
		Engine:         engine,
		LocatorTimeout: cfg.Browser.LocatorTimeout,
		ResultsTimeout: cfg.Browser.ResultsTimeout,
	}, launcher, pacing.New(cfg.Run.PacingMin, cfg.Run.PacingMax),
		batch.WithLogger(a.logger.With("component", "batch")),
		batch.WithRecorder(sink),
		batch.WithProgress(progress),
	)

	p := &pipeline.Pipeline{
		Config: pipeline.Config{
			TrendingCount:    cfg.Run.TrendingCount,
			SynthesizedCount: cfg.Run.SynthesizedCount,
			Limit:            cfg.Run.Limit,
			TrendingOnly:     cfg.Run.TrendingOnly,
			Engine:           engine,
			ProbeTimeout:     cfg.Browser.ResultsTimeout,
			SkipProbe:        opts.skipProbe,
		},
		Validator: client,
		Trends:    client,
		Generator: synth,
		Prober:    launcher,
		Driver:    driver,
		State:     state.NewStore(cfg.State.LastRunFile),
		Logger:    a.logger,
		Rand:      newRand(),
		Events:    printEvent(out),
	}

	rep, err := p.Run(ctx)
	if rep != nil && rep.Result != nil && rep.Result.Total() > 0 {
		printSummary(out, rep)
	}
	switch {
	case err != nil && ctx.Err() != nil:
		fmt.Fprintln(out, warnMark("\n\n⚠️  Search batch interrupted by user"))
		return &exitError{code: 130}
	case err != nil:
		fmt.Fprintf(out, "%s\n", failMark(fmt.Sprintf("\n❌ Search batch failed: %v", err)))
		fmt.Fprintf(out, "Please check %s for detailed error information\n", cfg.Log.ErrorFile)
		return &exitError{code: 1}
	case !rep.Succeeded():
		return &exitError{code: 1}
	}
	return nil
}

func (a *app) sink(cmd *cobra.Command) (*telemetry.Sink, error) {
	backend, err := telemetry.OpenBackend(cmd.Context(), a.cfg.Storage.Backend, a.cfg.Storage.DSN)
	if err != nil {
		return nil, err
	}
	if backend != nil {
		a.closers = append(a.closers, backend.Close)
	}
	history, closeHistory, err := logging.History(a.cfg.Log.HistoryFile)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeHistory)

	return telemetry.NewSink(telemetry.SinkConfig{
		Backend: backend,
		History: history,
		Logger:  a.logger.With("component", "telemetry"),
	}), nil
}

func printEvent(out io.Writer) func(pipeline.Event) {
	return func(e pipeline.Event) {
		switch {
		case e.Stage == pipeline.StageValidate && !e.Done:
			fmt.Fprintln(out, "📡 Validating SerpApi key...")
		case e.Stage == pipeline.StageValidate:
			if e.Err != nil {
				fmt.Fprintln(out, failMark("❌ Invalid SerpApi key. Please check your .env configuration."))
			} else {
				fmt.Fprintln(out, okMark("✅ API key valid"))
			}
		case e.Stage == pipeline.StageProbe && !e.Done:
			fmt.Fprintln(out, "🌐 Testing browser connection...")
		case e.Stage == pipeline.StageProbe:
			if e.Err != nil {
				fmt.Fprintln(out, failMark("❌ Browser connection failed. Please ensure the browser is installed."))
			} else {
				fmt.Fprintln(out, okMark("✅ Browser connection successful"))
			}
		case e.Stage == pipeline.StageTerms && !e.Done:
			fmt.Fprintf(out, "📊 Fetching %s searches...\n", e.Detail)
		case e.Stage == pipeline.StageTerms:
			if e.Err != nil {
				fmt.Fprintln(out, failMark("❌ No searches found. Please check your internet connection."))
			} else {
				fmt.Fprintln(out, okMark(fmt.Sprintf("✅ Successfully prepared %s", e.Detail)))
			}
		case e.Stage == pipeline.StageSearch && !e.Done:
			fmt.Fprintln(out, "🔍 Starting search automation...")
		case e.Stage == pipeline.StageRecord && e.Done && e.Err != nil:
			fmt.Fprintln(out, warnMark(fmt.Sprintf("Warning: Could not update last run time: %v", e.Err)))
		}
	}
}

func printSummary(out io.Writer, rep *pipeline.Report) {
	s := report.FromBatch(rep.Result)
	fmt.Fprintln(out, "\n📈 Search batch completed!")
	fmt.Fprintf(out, "✅ Successful searches: %d\n", s.Successful)
	fmt.Fprintf(out, "❌ Failed searches: %d\n", s.Failed)
	fmt.Fprintf(out, "📊 Success rate: %.1f%%\n", s.SuccessRate)
	if s.Failed > 0 {
		causes := make([]string, 0, len(s.FailuresByCause))
		for cause, n := range s.FailuresByCause {
			causes = append(causes, fmt.Sprintf("%s (%d)", cause, n))
		}
		slices.Sort(causes)
		fmt.Fprintln(out, warnMark(fmt.Sprintf("\n⚠️  %d searches failed: %s", s.Failed, strings.Join(causes, ", "))))
	}
	if !rep.LastRun.IsZero() {
		fmt.Fprintf(out, "⏰ Last run time updated: %s\n", rep.LastRun.Format("2006-01-02 15:04:05"))
	}
}
