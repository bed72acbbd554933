package main

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/searchcredit/internal/report"
	"github.com/FranksOps/searchcredit/internal/state"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show when the last batch ran and whether the next one is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, a, false)
		},
	}
}

// runStatus prints the status view. With prompt set it then offers to start
// a batch, as the bare command does.
func runStatus(cmd *cobra.Command, a *app, prompt bool) error {
	st, err := state.NewStore(a.cfg.State.LastRunFile).Status(a.cfg.Run.Cadence)
	if err != nil {
		a.logger.Warn("could not read last run time", "err", err)
		st = state.NewStatus(time.Now(), time.Time{}, false, a.cfg.Run.Cadence)
	}
	out := cmd.OutOrStdout()
	if err := report.WriteStatus(out, st); err != nil {
		return err
	}
	if !prompt {
		return nil
	}

	if !confirm(cmd, a, "\nRun search batch now? (y/n): ") {
		fmt.Fprintln(out, "Search batch cancelled.")
		return nil
	}
	return runBatch(cmd, a, runOptions{confirmed: true})
}

// confirm reads a y/n answer. EOF counts as no.
func confirm(cmd *cobra.Command, a *app, question string) bool {
	fmt.Fprint(cmd.OutOrStdout(), question)
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(cmd.OutOrStdout())
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
