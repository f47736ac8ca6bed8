package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/1broseidon/quietwin/internal/automation"
	"github.com/1broseidon/quietwin/internal/config"
	"github.com/1broseidon/quietwin/internal/logging"
	"github.com/1broseidon/quietwin/internal/mcp"
)

const version = "0.1.0"

// app carries the global flags and lazily built collaborators of one
// invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer
	open   mcp.Opener

	configPath string
	jsonOut    bool
	logLevel   string

	res   *config.LoadResult
	log   *zap.Logger
	level zap.AtomicLevel
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		open:   automation.Open,
		log:    zap.NewNop(),
		level:  zap.NewAtomicLevel(),
	}
}

func run(a *app, args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	_ = a.log.Sync()
	if err == nil {
		return 0
	}
	if strings.HasPrefix(err.Error(), "unknown command") {
		err = &automation.Error{Kind: automation.KindUsage, Op: "quietwin", Err: err}
	}
	a.printError(err)
	return automation.ExitCode(err)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "quietwin",
		Short: "Capture and drive background windows without disturbing the desktop",
		Long: `quietwin captures screenshots of, and sends input to, windows that may be
covered, minimized or on another virtual desktop, then puts the previous
foreground application, window and desktop back.

Human-readable output is printed when stdout is a terminal, JSON otherwise.`,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default: ~/.config/quietwin/config.yaml)")
	pf.BoolVar(&a.jsonOut, "json", false, "print JSON even on a terminal")
	pf.StringVar(&a.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &automation.Error{Kind: automation.KindUsage, Op: cmd.Name(), Err: err}
	})

	root.AddCommand(
		newCaptureCmd(a),
		newInputCmd(a),
		newWindowsCmd(a),
		newResolveCmd(a),
		newPermissionsCmd(a),
		newConfigCmd(a),
		newMCPCmd(a),
	)
	return root
}

// usageArgs turns positional-argument errors into usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &automation.Error{Kind: automation.KindUsage, Op: cmd.Name(), Err: err}
		}
		return nil
	}
}

func usageError(op string, err error) error {
	return &automation.Error{Kind: automation.KindUsage, Op: op, Err: err}
}

func (a *app) loadConfig() (*config.LoadResult, error) {
	if a.res != nil {
		return a.res, nil
	}
	path := a.configPath
	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return nil, usageError("config", err)
		}
		path = p
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return nil, usageError("config", err)
	}
	a.res = res
	return res, nil
}

// setup loads the configuration and builds the logger from it.
func (a *app) setup() (*config.Config, error) {
	res, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	level := res.Config.Logging.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	log, atom, err := logging.New(level, res.Config.Logging.Format)
	if err != nil {
		return nil, usageError("logging", err)
	}
	a.log = log
	a.level = atom
	return res.Config, nil
}

// service connects to the display. The caller must Close it.
func (a *app) service(ctx context.Context) (*automation.Service, error) {
	cfg, err := a.setup()
	if err != nil {
		return nil, err
	}
	return a.open(ctx, cfg, a.log)
}

func (a *app) printError(err error) {
	var ae *automation.Error
	kind := "error"
	if errors.As(err, &ae) {
		kind = string(ae.Kind)
	}
	if a.wantJSON() {
		_ = writeJSON(a.stdout, map[string]string{"status": "error", "kind": kind, "error": err.Error()})
		return
	}
	writeLine(a.stderr, failStyle.Render("error:")+" "+err.Error())
}
