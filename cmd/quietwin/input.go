package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/1broseidon/quietwin/internal/automation"
	"github.com/1broseidon/quietwin/internal/platform"
)

func newInputCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "input",
		Short: "Send one input action to a window and restore the desktop",
		Long: `Send a click, move, typed text, key combination or scroll to a window, then
restore the previous focus, window and desktop. Coordinates are relative to
the window's top-left corner.`,
	}

	var button, count int
	click := newActionCmd(a, "click X Y", "Click inside the window", 2, func(args []string) (platform.Action, error) {
		x, y, err := pair(args)
		return platform.Action{Kind: platform.ActionClick, X: x, Y: y, Button: button, Count: count}, err
	})
	click.Flags().IntVar(&button, "button", 1, "mouse button 1-3")
	click.Flags().IntVar(&count, "count", 1, "click count 1-3")

	cmd.AddCommand(
		click,
		newActionCmd(a, "move X Y", "Move the pointer inside the window", 2, func(args []string) (platform.Action, error) {
			x, y, err := pair(args)
			return platform.Action{Kind: platform.ActionMove, X: x, Y: y}, err
		}),
		newActionCmd(a, "type TEXT", "Type text into the window", 1, func(args []string) (platform.Action, error) {
			return platform.Action{Kind: platform.ActionType, Text: args[0]}, nil
		}),
		newActionCmd(a, "key COMBO", "Press a key combination such as ctrl+shift+t", 1, func(args []string) (platform.Action, error) {
			return platform.Action{Kind: platform.ActionKey, Keys: args[0]}, nil
		}),
		newActionCmd(a, "scroll DX DY", "Scroll inside the window; positive DY scrolls down", 2, func(args []string) (platform.Action, error) {
			dx, dy, err := pair(args)
			return platform.Action{Kind: platform.ActionScroll, DX: dx, DY: dy}, err
		}),
	)
	return cmd
}

func newActionCmd(a *app, use, short string, nargs int, build func([]string) (platform.Action, error)) *cobra.Command {
	var (
		target targetFlags
		rflags restoreFlags
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  usageArgs(cobra.ExactArgs(nargs)),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := build(args)
			if err != nil {
				return usageError(automation.OpInput, err)
			}
			sel, tab, err := target.selectors(cmd)
			if err != nil {
				return err
			}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			res, err := svc.Input(cmd.Context(), automation.InputRequest{
				Selectors: sel,
				Wait:      target.wait,
				Tab:       tab,
				Action:    action,
				Restore:   rflags.flags(cmd),
			})
			if err != nil {
				return err
			}
			if a.wantJSON() {
				return writeJSON(a.stdout, res)
			}
			writeLine(a.stdout, renderInput(res))
			return nil
		},
	}
	target.register(cmd)
	rflags.register(cmd)
	return cmd
}

func pair(args []string) (int, int, error) {
	x, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}
