package x11

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestResolveDisplayEnv_UsesExistingEnv(t *testing.T) {
	stubDetectFns(t,
		func(context.Context) (string, string) { return ":99", "/tmp/should-not-be-used" },
		func(string) string { return ":88" },
	)

	env := []string{"HOME=" + t.TempDir(), "DISPLAY=:7", "XAUTHORITY=/tmp/xauth-existing"}
	got, err := ResolveDisplayEnv(context.Background(), env, ":1", "/tmp/cfg")
	if err != nil {
		t.Fatalf("ResolveDisplayEnv returned error: %v", err)
	}
	if got.Display != ":7" || got.XAuthority != "/tmp/xauth-existing" {
		t.Fatalf("ResolveDisplayEnv = %+v, want :7 and /tmp/xauth-existing", got)
	}
}

func TestResolveDisplayEnv_UsesConfigAndFallsBackToHomeXAuthority(t *testing.T) {
	stubDetectFns(t,
		func(context.Context) (string, string) { return "", "" },
		func(string) string { return "" },
	)

	home := t.TempDir()
	xauth := filepath.Join(home, ".Xauthority")
	if err := os.WriteFile(xauth, []byte("cookie"), 0600); err != nil {
		t.Fatalf("write xauthority: %v", err)
	}

	got, err := ResolveDisplayEnv(context.Background(), []string{"HOME=" + home}, ":1", "")
	if err != nil {
		t.Fatalf("ResolveDisplayEnv returned error: %v", err)
	}
	if got.Display != ":1" {
		t.Fatalf("Display = %q, want %q", got.Display, ":1")
	}
	if got.XAuthority != xauth {
		t.Fatalf("XAuthority = %q, want %q", got.XAuthority, xauth)
	}
}

func TestResolveDisplayEnv_UsesDetectedSession(t *testing.T) {
	stubDetectFns(t,
		func(context.Context) (string, string) { return ":5", "/tmp/xauth-detected" },
		func(string) string { return "" },
	)

	got, err := ResolveDisplayEnv(context.Background(), []string{"HOME=" + t.TempDir()}, "", "")
	if err != nil {
		t.Fatalf("ResolveDisplayEnv returned error: %v", err)
	}
	if got.Display != ":5" || got.XAuthority != "/tmp/xauth-detected" {
		t.Fatalf("ResolveDisplayEnv = %+v", got)
	}
}

func TestResolveDisplayEnv_FallsBackToSocket(t *testing.T) {
	stubDetectFns(t,
		func(context.Context) (string, string) { return "", "" },
		func(string) string { return ":3" },
	)

	got, err := ResolveDisplayEnv(context.Background(), []string{"HOME=" + t.TempDir()}, "", "")
	if err != nil {
		t.Fatalf("ResolveDisplayEnv returned error: %v", err)
	}
	if got.Display != ":3" {
		t.Fatalf("Display = %q, want %q", got.Display, ":3")
	}
	if got.XAuthority != "" {
		t.Fatalf("XAuthority = %q, want empty", got.XAuthority)
	}
}

func TestResolveDisplayEnv_ErrorsWhenNothingFound(t *testing.T) {
	stubDetectFns(t,
		func(context.Context) (string, string) { return "", "" },
		func(string) string { return "" },
	)

	_, err := ResolveDisplayEnv(context.Background(), []string{"HOME=" + t.TempDir()}, "", "")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "display:") {
		t.Fatalf("error should point at the display config key: %v", err)
	}
}

func TestDetectSessionEnv(t *testing.T) {
	origRun, origRead := runCommandFn, readFileFn
	t.Cleanup(func() { runCommandFn, readFileFn = origRun, origRead })

	uid := os.Getuid()
	runCommandFn = func(_ context.Context, argv ...string) (string, error) {
		switch strings.Join(argv[1:], " ") {
		case "list-sessions --no-legend":
			return "c1 " + strconv.Itoa(uid) + " someone seat0\n", nil
		case "show-session c1 -p Display --value":
			return ":0\n", nil
		case "show-session c1 -p Leader --value":
			return "4242\n", nil
		}
		return "", errors.New("unexpected call")
	}
	readFileFn = func(path string) ([]byte, error) {
		if path != "/proc/4242/environ" {
			return nil, os.ErrNotExist
		}
		return []byte("HOME=/home/someone\x00DISPLAY=:1\x00XAUTHORITY=/run/user/1000/gdm/Xauthority\x00"), nil
	}

	d, xa := detectSessionEnv(context.Background())
	if d != ":1" || xa != "/run/user/1000/gdm/Xauthority" {
		t.Fatalf("detectSessionEnv = %q, %q", d, xa)
	}
}

func TestDetectSessionEnv_SkipsSessionsWithoutDisplay(t *testing.T) {
	origRun := runCommandFn
	t.Cleanup(func() { runCommandFn = origRun })

	uid := os.Getuid()
	runCommandFn = func(_ context.Context, argv ...string) (string, error) {
		switch strings.Join(argv[1:], " ") {
		case "list-sessions --no-legend":
			return "7 " + strconv.Itoa(uid) + " someone\n", nil
		case "show-session 7 -p Display --value":
			return "n/a\n", nil
		}
		return "", errors.New("unexpected call")
	}

	d, xa := detectSessionEnv(context.Background())
	if d != "" || xa != "" {
		t.Fatalf("detectSessionEnv = %q, %q, want empty", d, xa)
	}
}

func TestDetectDisplayFromSockets(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"X0", "X2", "not-a-display"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte{}, 0600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	if got := detectDisplayFromSockets(dir); got != ":2" {
		t.Fatalf("detectDisplayFromSockets = %q, want %q", got, ":2")
	}
}

func TestParseLoginctlSessions(t *testing.T) {
	out := strings.Join([]string{
		"1 1000 george seat0",
		"2 1001 alice seat0",
		"3 1000 george seat1",
		"",
	}, "\n")
	got := parseLoginctlSessions(out, "1000")
	if len(got) != 2 || got[0] != "1" || got[1] != "3" {
		t.Fatalf("parseLoginctlSessions = %v, want [1 3]", got)
	}
}

func stubDetectFns(t *testing.T, session func(context.Context) (string, string), socket func(string) string) {
	t.Helper()
	origSession, origSocket := detectSessionEnvFn, detectDisplayFromSocketFn
	detectSessionEnvFn = session
	detectDisplayFromSocketFn = socket
	t.Cleanup(func() {
		detectSessionEnvFn = origSession
		detectDisplayFromSocketFn = origSocket
	})
}
