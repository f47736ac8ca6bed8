package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/1broseidon/quietwin/internal/automation"
	"github.com/1broseidon/quietwin/internal/platform"
)

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Width(20).
			Align(lipgloss.Right).
			PaddingRight(2)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Bold(true)

	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (a *app) wantJSON() bool {
	return a.jsonOut || !isTerminal(a.stdout)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeLine(w io.Writer, s string) {
	fmt.Fprintln(w, s)
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

func yesNo(ok bool) string {
	if ok {
		return okStyle.Render("yes")
	}
	return failStyle.Render("no")
}

func describeWindow(w platform.Window) string {
	return fmt.Sprintf("%d  %s %q (pid %d)", w.ID, w.OwnerName, w.Title, w.PID)
}

func renderRestore(attempted, verified bool, strategy string) []string {
	if !attempted {
		return []string{row("Restore", dimStyle.Render("skipped"))}
	}
	lines := []string{row("Restore verified", yesNo(verified))}
	if strategy != "" {
		lines = append(lines, row("Restore strategy", strategy))
	}
	return lines
}

func renderCapture(res *automation.CaptureResult, path string) string {
	lines := []string{
		row("Window", describeWindow(res.Window)),
		row("Image", fmt.Sprintf("%dx%d %s, %d bytes", res.Width, res.Height, res.Format, len(res.Data))),
		row("Method", res.Method),
	}
	if path != "" {
		lines = append(lines, row("Saved to", path))
	}
	if res.Action != "" {
		lines = append(lines, row("Action", res.Action))
	}
	lines = append(lines, renderRestore(res.RestoreAttempted, res.RestoreVerified, res.Restore.Strategy)...)
	if d := res.Diagnostics; d != nil {
		p := d.Parity
		lines = append(lines, row("Parity", yesNo(p.Passed)))
		if p.MenuBarCompared {
			lines = append(lines, row("Menu bar matches", yesNo(p.MenuBarMatches)))
		}
		score := dimStyle.Render("n/a")
		if p.ScreenshotDiffScore != nil {
			score = fmt.Sprintf("%.4f (threshold %.4f)", *p.ScreenshotDiffScore, p.ScreenshotDiffThreshold)
		}
		lines = append(lines, row("Screen diff", score))
	}
	return strings.Join(lines, "\n")
}

func renderInput(res *automation.InputResult) string {
	lines := []string{
		row("Window", describeWindow(res.Window)),
		row("Action", res.Action),
	}
	lines = append(lines, renderRestore(res.RestoreAttempted, res.RestoreVerified, res.Restore.Strategy)...)
	return strings.Join(lines, "\n")
}

func renderPermissions(p automation.Permissions) string {
	caps := []struct {
		name string
		c    automation.Capability
	}{
		{"Accessibility", p.Accessibility},
		{"Screen capture", p.ScreenCapture},
		{"Input", p.Input},
		{"Desktops", p.Desktops},
	}
	var lines []string
	for _, c := range caps {
		lines = append(lines, row(c.name, yesNo(c.c.Granted)))
		if !c.c.Granted {
			lines = append(lines, labelStyle.Render("")+dimStyle.Render(c.c.Error))
			if c.c.Hint != "" {
				lines = append(lines, labelStyle.Render("")+dimStyle.Render("hint: "+c.c.Hint))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func renderWindows(windows []platform.Window) string {
	if len(windows) == 0 {
		return dimStyle.Render("no windows")
	}
	rows := make([][]string, 0, len(windows))
	for _, w := range windows {
		geometry := fmt.Sprintf("%dx%d+%d+%d", w.Bounds.Width, w.Bounds.Height, w.Bounds.X, w.Bounds.Y)
		state := "shown"
		if !w.OnScreen {
			state = "hidden"
		}
		rows = append(rows, []string{
			fmt.Sprintf("0x%x", uint32(w.ID)),
			strconv.Itoa(w.PID),
			w.OwnerName,
			w.Title,
			geometry,
			state,
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("ID", "PID", "APP", "TITLE", "GEOMETRY", "STATE").
		Rows(rows...).
		StyleFunc(func(r, _ int) lipgloss.Style {
			if r == table.HeaderRow {
				return lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	return t.String()
}
