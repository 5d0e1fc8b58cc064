package process

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/kbukum/docflow/errors"
)

// Run starts cmd and waits for it. Cancelling ctx sends SIGTERM to the
// process group and SIGKILL after the grace period; the returned error then
// wraps ctx.Err(). A non-zero exit returns the Result together with an error
// carrying the exit code and the first line of stderr.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, errors.MissingField("binary")
	}
	grace := cmd.GracePeriod
	if grace == 0 {
		grace = DefaultGracePeriod
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // running configured commands is the point
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)
	c.Stdin = cmd.Stdin

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = grace

	start := time.Now()
	err := c.Run()
	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: -1,
		Duration: time.Since(start),
	}
	if c.ProcessState != nil {
		result.ExitCode = c.ProcessState.ExitCode()
	}

	if err != nil {
		if ctx.Err() != nil {
			return result, fmt.Errorf("process %s: %w", cmd.Binary, ctx.Err())
		}
		if msg := firstLine(result.Stderr); msg != "" {
			return result, fmt.Errorf("process %s: exit code %d: %s: %w", cmd.Binary, result.ExitCode, msg, err)
		}
		return result, fmt.Errorf("process %s: exit code %d: %w", cmd.Binary, result.ExitCode, err)
	}
	return result, nil
}

func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil
	}
	return append(os.Environ(), extra...)
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}
