package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/1broseidon/quietwin/internal/automation"
)

type captureReport struct {
	Path string `json:"path,omitempty"`
	*automation.CaptureResult
}

func newCaptureCmd(a *app) *cobra.Command {
	var (
		target    targetFlags
		rflags    restoreFlags
		format    string
		quality   int
		crop      string
		action    string
		out       string
		strict    bool
		threshold float64
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture a window without disturbing the desktop",
		Long: `Capture a screenshot of one window, even if it is covered, minimized or on
another virtual desktop, then restore the previous focus, window and desktop.

The image is written to --out, or to stdout with --out - (the default when
stdout is not a terminal). Metadata is printed on stdout when the image goes
to a file.`,
		Example: `  quietwin capture --app firefox --out page.png
  quietwin capture --title "Inbox" --format jpeg --quality 80 -o - > inbox.jpg
  quietwin capture --id 0x3c00007 --action click:40,12 --strict --out after.png`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			sel, tab, err := target.selectors(cmd)
			if err != nil {
				return err
			}
			req := automation.CaptureRequest{
				Selectors: sel,
				Wait:      target.wait,
				Tab:       tab,
				Format:    format,
				Quality:   quality,
				Restore:   rflags.flags(cmd),
				Strict:    strict,
				Threshold: threshold,
			}
			if crop != "" {
				if req.Crop, err = parseCrop(crop); err != nil {
					return usageError(automation.OpCapture, err)
				}
			}
			if action != "" {
				act, err := parseAction(action)
				if err != nil {
					return usageError(automation.OpCapture, err)
				}
				req.Action = &act
			}

			dest := out
			if dest == "" {
				if isTerminal(a.stdout) {
					return usageError(automation.OpCapture, errors.New("refusing to write image data to a terminal; pass --out FILE or --out -"))
				}
				dest = "-"
			}

			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			res, err := svc.Capture(cmd.Context(), req)
			if err != nil {
				return err
			}

			if dest == "-" {
				if _, err := a.stdout.Write(res.Data); err != nil {
					return &automation.Error{Kind: automation.KindIO, Op: automation.OpCapture, Err: fmt.Errorf("write image: %w", err)}
				}
				if a.jsonOut {
					return writeJSON(a.stderr, captureReport{CaptureResult: res})
				}
				if isTerminal(a.stderr) {
					writeLine(a.stderr, renderCapture(res, ""))
				}
				return nil
			}

			if err := os.WriteFile(dest, res.Data, 0o644); err != nil {
				return &automation.Error{Kind: automation.KindIO, Op: automation.OpCapture, Err: fmt.Errorf("write image: %w", err)}
			}
			if a.wantJSON() {
				return writeJSON(a.stdout, captureReport{Path: dest, CaptureResult: res})
			}
			writeLine(a.stdout, renderCapture(res, dest))
			return nil
		},
	}

	target.register(cmd)
	rflags.register(cmd)
	fs := cmd.Flags()
	fs.StringVarP(&format, "format", "f", "", "image format: png or jpeg (default: capture.format)")
	fs.IntVarP(&quality, "quality", "q", 0, "JPEG quality 1-100 (default: capture.quality)")
	fs.StringVar(&crop, "crop", "", "crop rectangle X,Y,WIDTH,HEIGHT in window pixels, clamped to the image")
	fs.StringVar(&action, "action", "", "input to perform first: click:X,Y[,BUTTON[,COUNT]], move:X,Y, type:TEXT, key:COMBO or scroll:DX,DY")
	fs.StringVarP(&out, "out", "o", "", "output file, or - for stdout")
	fs.BoolVar(&strict, "strict", false, "verify the desktop looks as it did before and report parity diagnostics")
	fs.Float64Var(&threshold, "threshold", 0, "strict-mode screen difference threshold 0-1 (default: parity.threshold)")
	return cmd
}
