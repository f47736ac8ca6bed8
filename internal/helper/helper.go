// Package helper runs short-lived external helper commands under a hard
// wall-clock timeout.
package helper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Termination values reported when a helper outlives its timeout.
const (
	TerminationKilled        = "killed"
	TerminationWaitAbandoned = "wait_abandoned"
	terminationKillFailed    = "kill_failed"
)

var (
	// reapGrace bounds how long Run waits for a killed process to be reaped.
	reapGrace = 500 * time.Millisecond
	killFn    = killProcess
)

// Result describes one helper invocation.
type Result struct {
	Stdout      string
	Stderr      string
	ExitCode    int
	TimedOut    bool
	Termination string
}

// Run executes argv and kills it (with its process group) once timeout
// elapses. A failure to kill is reported in Result.Termination, not as an
// error.
func Run(ctx context.Context, timeout time.Duration, argv []string) (Result, error) {
	if len(argv) == 0 || argv[0] == "" {
		return Result{}, errors.New("helper command is empty")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	configureProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("failed to start %s: %w", argv[0], err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var res Result
	select {
	case err := <-done:
		res = Result{Stdout: stdout.String(), Stderr: stderr.String()}
		return res, exitResult(&res, err)
	case <-timer.C:
		res.TimedOut = true
	case <-ctx.Done():
		res.TimedOut = true
	}

	if err := killFn(cmd); err != nil {
		res.Termination = fmt.Sprintf("%s: %v", terminationKillFailed, err)
	} else {
		res.Termination = TerminationKilled
	}

	grace := time.NewTimer(reapGrace)
	defer grace.Stop()
	select {
	case <-done:
		res.Stdout, res.Stderr = stdout.String(), stderr.String()
		res.ExitCode = -1
	case <-grace.C:
		if res.Termination == TerminationKilled {
			res.Termination = TerminationWaitAbandoned
		} else {
			res.Termination += "; " + TerminationWaitAbandoned
		}
		res.ExitCode = -1
	}
	return res, nil
}

func exitResult(res *Result, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return nil
	}
	return err
}
