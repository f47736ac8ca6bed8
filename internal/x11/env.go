package x11

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/1broseidon/quietwin/internal/helper"
)

// loginctlTimeout bounds each loginctl call made during session detection.
const loginctlTimeout = 2 * time.Second

var (
	runCommandFn              = runCommand
	readFileFn                = os.ReadFile
	readDirFn                 = os.ReadDir
	detectSessionEnvFn        = detectSessionEnv
	detectDisplayFromSocketFn = detectDisplayFromSockets
)

// DisplayEnv is the pair of variables xgb needs to reach the X server.
type DisplayEnv struct {
	Display    string `json:"display"`
	XAuthority string `json:"xauthority,omitempty"`
}

// ResolveDisplayEnv works out DISPLAY and XAUTHORITY for env. Values already
// present in env win, then the configured ones, then the caller's graphical
// login session, then the highest X socket and ~/.Xauthority.
func ResolveDisplayEnv(ctx context.Context, env []string, display, xauthority string) (DisplayEnv, error) {
	d := strings.TrimSpace(envLookup(env, "DISPLAY"))
	xa := strings.TrimSpace(envLookup(env, "XAUTHORITY"))

	if d == "" {
		d = strings.TrimSpace(display)
	}
	if xa == "" {
		xa = strings.TrimSpace(xauthority)
	}

	if d == "" || xa == "" {
		sd, sxa := detectSessionEnvFn(ctx)
		if d == "" {
			d = strings.TrimSpace(sd)
		}
		if xa == "" {
			xa = strings.TrimSpace(sxa)
		}
	}

	if d == "" {
		d = detectDisplayFromSocketFn("/tmp/.X11-unix")
	}
	if d == "" {
		return DisplayEnv{}, fmt.Errorf("no X display found; export DISPLAY or set display in config (e.g. display: \":0\")")
	}

	if xa == "" {
		home := strings.TrimSpace(envLookup(env, "HOME"))
		if home == "" {
			if h, err := os.UserHomeDir(); err == nil {
				home = h
			}
		}
		if home != "" {
			candidate := filepath.Join(home, ".Xauthority")
			if _, err := os.Stat(candidate); err == nil {
				xa = candidate
			}
		}
	}

	return DisplayEnv{Display: d, XAuthority: xa}, nil
}

// ApplyDisplayEnv resolves the display for this process and exports it so
// that NewConnection can dial it.
func ApplyDisplayEnv(ctx context.Context, display, xauthority string) (DisplayEnv, error) {
	de, err := ResolveDisplayEnv(ctx, os.Environ(), display, xauthority)
	if err != nil {
		return DisplayEnv{}, err
	}
	if err := os.Setenv("DISPLAY", de.Display); err != nil {
		return DisplayEnv{}, fmt.Errorf("set DISPLAY: %w", err)
	}
	if de.XAuthority != "" {
		if err := os.Setenv("XAUTHORITY", de.XAuthority); err != nil {
			return DisplayEnv{}, fmt.Errorf("set XAUTHORITY: %w", err)
		}
	}
	return de, nil
}

func runCommand(ctx context.Context, argv ...string) (string, error) {
	res, err := helper.Run(ctx, loginctlTimeout, argv)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("%s: %s", argv[0], res.Termination)
	}
	return res.Stdout, nil
}

func detectSessionEnv(ctx context.Context) (display string, xauthority string) {
	uid := strconv.Itoa(os.Getuid())
	out, err := runCommandFn(ctx, "loginctl", "list-sessions", "--no-legend")
	if err != nil {
		return "", ""
	}
	for _, id := range parseLoginctlSessions(out, uid) {
		d := sessionProp(ctx, id, "Display")
		if d == "" || strings.EqualFold(d, "n/a") {
			continue
		}

		xa := ""
		leader := sessionProp(ctx, id, "Leader")
		if leader != "" && leader != "0" {
			if env, err := readProcEnviron(leader); err == nil {
				if ed := strings.TrimSpace(env["DISPLAY"]); ed != "" {
					d = ed
				}
				xa = strings.TrimSpace(env["XAUTHORITY"])
			}
		}
		return d, xa
	}
	return "", ""
}

func parseLoginctlSessions(output string, uid string) []string {
	var sessions []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if fields[1] == uid {
			sessions = append(sessions, fields[0])
		}
	}
	return sessions
}

func sessionProp(ctx context.Context, id string, prop string) string {
	out, err := runCommandFn(ctx, "loginctl", "show-session", id, "-p", prop, "--value")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func readProcEnviron(pid string) (map[string]string, error) {
	data, err := readFileFn(filepath.Join("/proc", pid, "environ"))
	if err != nil {
		return nil, err
	}

	env := make(map[string]string)
	for _, part := range strings.Split(string(data), "\x00") {
		k, v, ok := strings.Cut(part, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env, nil
}

func detectDisplayFromSockets(dir string) string {
	entries, err := readDirFn(dir)
	if err != nil {
		return ""
	}

	var displays []int
	for _, entry := range entries {
		name := entry.Name()
		if len(name) < 2 || name[0] != 'X' {
			continue
		}
		n, err := strconv.Atoi(name[1:])
		if err != nil {
			continue
		}
		displays = append(displays, n)
	}
	if len(displays) == 0 {
		return ""
	}
	sort.Ints(displays)
	return fmt.Sprintf(":%d", displays[len(displays)-1])
}

func envLookup(env []string, key string) string {
	prefix := key + "="
	for _, e := range env {
		if strings.HasPrefix(e, prefix) {
			return strings.TrimPrefix(e, prefix)
		}
	}
	return ""
}
