package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/FranksOps/searchcredit/internal/profiles"
)

func newProfilesCmd(a *app) *cobra.Command {
	var selectChoice string
	var check bool
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List Edge profiles and choose the one to search with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			home, _ := os.UserHomeDir()
			roots := profiles.SearchRoots(runtime.GOOS, os.Getenv, home)
			list := profiles.Discover(roots, a.logger)

			saved, hasSaved, err := profiles.LoadPreference(a.cfg.State.ProfileFile)
			if err != nil {
				a.logger.Warn("could not load saved profile", "err", err)
			}

			fmt.Fprintln(out, "\n🔍 Detected Microsoft Edge Profiles:")
			fmt.Fprintln(out, "============================================================")
			for i, p := range list {
				marker := ""
				if hasSaved && saved.Path() == p.Path() {
					marker = " (selected)"
				}
				fmt.Fprintf(out, "  %d. %s%s\n", i+1, p.DisplayName(), marker)
				fmt.Fprintf(out, "     Path: %s\n", p.Path())
				if check {
					if err := profiles.CheckAccess(p); err != nil {
						fmt.Fprintf(out, "     %s\n", failMark(err.Error()))
					} else {
						fmt.Fprintf(out, "     %s\n", okMark("accessible"))
					}
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintln(out, "  0. Use default profile (automatic)")
			fmt.Fprintln(out, "============================================================")

			if selectChoice == "" {
				return nil
			}
			p, err := profiles.Select(list, roots, selectChoice)
			if err != nil {
				return err
			}
			if err := profiles.SavePreference(a.cfg.State.ProfileFile, p); err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved profile preference: %s\n", p.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&selectChoice, "select", "", "remember this profile (number, name, directory or path)")
	cmd.Flags().BoolVar(&check, "check", false, "check each profile for its essential files")
	return cmd
}
