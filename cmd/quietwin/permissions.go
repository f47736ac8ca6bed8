package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/1broseidon/quietwin/internal/automation"
)

func newPermissionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "permissions",
		Short: "Check which capabilities are available",
		Long: `Probe window inspection, screen capture, input injection and virtual-desktop
control independently. A missing display connection reports every
capability as unavailable; the command itself does not fail.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			var perms automation.Permissions
			svc, err := a.service(cmd.Context())
			if err != nil {
				var ae *automation.Error
				if errors.As(err, &ae) && ae.Kind == automation.KindUsage {
					return err
				}
				perms = automation.Unavailable(err)
			} else {
				defer svc.Close()
				perms = svc.Permissions(cmd.Context())
			}

			if a.wantJSON() {
				return writeJSON(a.stdout, perms)
			}
			writeLine(a.stdout, renderPermissions(perms))
			return nil
		},
	}
}
