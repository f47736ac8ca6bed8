package main

import (
	"github.com/spf13/cobra"

	"github.com/1broseidon/quietwin/internal/automation"
)

func newWindowsCmd(a *app) *cobra.Command {
	var filter automation.WindowFilter
	cmd := &cobra.Command{
		Use:     "windows",
		Aliases: []string{"ls"},
		Short:   "List windows, top of stack first",
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			windows, err := svc.Windows(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if a.wantJSON() {
				return writeJSON(a.stdout, windows)
			}
			writeLine(a.stdout, renderWindows(windows))
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&filter.App, "app", "", "only windows whose application name contains this")
	fs.StringVar(&filter.Title, "title", "", "only windows whose title contains this")
	fs.BoolVar(&filter.All, "all", false, "include docks, panels and other non-user-level windows")
	return cmd
}

func newResolveCmd(a *app) *cobra.Command {
	var target targetFlags
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show which window the given selectors would target",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, _, err := target.selectors(cmd)
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			w, err := svc.Resolve(cmd.Context(), sel)
			if err != nil {
				return err
			}
			if a.wantJSON() {
				return writeJSON(a.stdout, w)
			}
			writeLine(a.stdout, row("Window", describeWindow(w)))
			return nil
		},
	}
	target.register(cmd)
	return cmd
}
