package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newTestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Check the API key and the browser connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSelfTest(cmd, a)
		},
	}
	f := cmd.Flags()
	f.Bool("headless", false, "run the browser without a window")
	f.String("profile", "", "browser profile: number, name, directory or path")
	f.String("engine", "bing", "search engine")
	f.String("exec-path", "", "browser executable")
	f.String("proxy-file", "", "file with one proxy URL per line")
	return cmd
}

// runSelfTest runs both checks concurrently and reports each.
func runSelfTest(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if a.cfg.SerpAPIKey == "" {
		fmt.Fprintln(out, failMark("❌ SerpApi key not configured!"))
		fmt.Fprintln(out, "Please set SERPAPI_KEY in your .env file")
		return &exitError{code: 1}
	}
	engine, err := a.engine()
	if err != nil {
		return err
	}
	pool, err := a.proxies()
	if err != nil {
		return err
	}
	client, err := a.trendsClient(pool)
	if err != nil {
		return err
	}
	launcher, _, err := a.launcher(pool)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "🧪 Testing system configuration...")

	var apiErr, browserErr error
	var g errgroup.Group
	g.Go(func() error {
		apiErr = client.Validate(ctx)
		return nil
	})
	g.Go(func() error {
		browserErr = launcher.Probe(ctx, engine, a.cfg.Browser.ResultsTimeout)
		return nil
	})
	_ = g.Wait()

	fmt.Fprintln(out, "\n1. Testing API key...")
	if apiErr != nil {
		fmt.Fprintln(out, failMark(fmt.Sprintf("❌ API key invalid: %v", apiErr)))
	} else {
		fmt.Fprintln(out, okMark("✅ API key valid"))
	}

	fmt.Fprintln(out, "\n2. Testing browser connection...")
	if browserErr != nil {
		fmt.Fprintln(out, failMark(fmt.Sprintf("❌ Browser connection failed: %v", browserErr)))
	} else {
		fmt.Fprintln(out, okMark("✅ Browser connection successful"))
	}

	if err := errors.Join(apiErr, browserErr); err != nil {
		a.logger.Error("self-test failed", "err", err)
		return &exitError{code: 1}
	}
	fmt.Fprintln(out, okMark("\n✅ All tests passed! System is ready to use."))
	return nil
}
