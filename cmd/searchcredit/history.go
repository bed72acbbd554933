package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/searchcredit/internal/report"
	"github.com/FranksOps/searchcredit/internal/storage"
	"github.com/FranksOps/searchcredit/internal/telemetry"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		since  time.Duration
		failed bool
		runID  string
		limit  int
		offset int
		format string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Summarize past searches from the history store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, err := telemetry.OpenBackend(cmd.Context(), a.cfg.Storage.Backend, a.cfg.Storage.DSN)
			if err != nil {
				return err
			}
			if backend == nil {
				return fmt.Errorf("history is disabled (storage backend %q)", a.cfg.Storage.Backend)
			}
			defer backend.Close()

			filter := storage.Filter{RunID: runID, Limit: limit, Offset: offset}
			if since > 0 {
				t := time.Now().Add(-since)
				filter.Since = &t
			}
			if failed {
				no := false
				filter.Succeeded = &no
			}

			records, err := backend.Query(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout(), report.Format(format), report.FromRecords(records))
		},
	}
	f := cmd.Flags()
	f.DurationVar(&since, "since", 0, "only include searches newer than this (e.g. 24h)")
	f.BoolVar(&failed, "failed", false, "only include failed searches")
	f.StringVar(&runID, "run", "", "only include one run")
	f.IntVar(&limit, "max", 0, "maximum records to include (0 for all)")
	f.IntVar(&offset, "offset", 0, "skip this many newest records")
	f.StringVarP(&format, "format", "o", "text", "output format: text, json or html")
	f.String("storage", "sqlite", "search history backend: sqlite, postgres, json, csv")
	f.String("dsn", "", "search history location (file path or Postgres DSN)")
	return cmd
}
