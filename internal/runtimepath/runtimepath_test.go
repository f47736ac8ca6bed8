package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestDir_UsesXDGRuntimeDirWhenSet(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got != td {
		t.Fatalf("Dir() = %q, want %q", got, td)
	}
}

func TestDir_FallbacksWhenXDGRuntimeDirMissing(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got == "" {
		t.Fatal("Dir() returned empty path")
	}

	wantRun := fmt.Sprintf("/run/user/%d", os.Getuid())
	wantTmp := fmt.Sprintf("/tmp/quietwin-runtime-%d", os.Getuid())
	if got != wantRun && got != wantTmp {
		t.Fatalf("Dir() = %q, want %q or %q", got, wantRun, wantTmp)
	}
}

func TestDiagnosticsDir_IsCreated(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	dir, err := DiagnosticsDir()
	if err != nil {
		t.Fatalf("DiagnosticsDir() error: %v", err)
	}
	if want := filepath.Join(td, "quietwin", "diagnostics"); dir != want {
		t.Fatalf("DiagnosticsDir() = %q, want %q", dir, want)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("diagnostics dir not created: %v", err)
	}
}

func TestScreenshotPath(t *testing.T) {
	got := ScreenshotPath("/d", "abc/123", "after restore")
	if want := "/d/abc_123-after_restore.png"; got != want {
		t.Fatalf("ScreenshotPath() = %q, want %q", got, want)
	}
}
