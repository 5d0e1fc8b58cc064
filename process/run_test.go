package process_test

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/docflow/errors"
	"github.com/kbukum/docflow/process"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name   string
		cmd    process.Command
		stdout string
		stderr string
	}{
		{"args", process.Command{Binary: "echo", Args: []string{"hello", "world"}}, "hello world", ""},
		{"stdin", process.Command{Binary: "cat", Stdin: strings.NewReader("from stdin")}, "from stdin", ""},
		{"stderr", process.Command{Binary: "sh", Args: []string{"-c", "echo oops >&2"}}, "", "oops"},
		{"env", process.Command{Binary: "sh", Args: []string{"-c", "echo $DOCFLOW_TEST_VAR"}, Env: []string{"DOCFLOW_TEST_VAR=v1"}}, "v1", ""},
		{"dir", process.Command{Binary: "pwd", Dir: "/"}, "/", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := process.Run(context.Background(), tt.cmd)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.ExitCode != 0 {
				t.Errorf("exit code = %d", result.ExitCode)
			}
			if got := strings.TrimSpace(string(result.Stdout)); got != tt.stdout {
				t.Errorf("stdout = %q, want %q", got, tt.stdout)
			}
			if got := strings.TrimSpace(string(result.Stderr)); got != tt.stderr {
				t.Errorf("stderr = %q, want %q", got, tt.stderr)
			}
		})
	}
}

func TestRunExitCode(t *testing.T) {
	result, err := process.Run(context.Background(), process.Command{
		Binary: "sh",
		Args:   []string{"-c", "echo broken >&2; exit 42"},
	})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if result.ExitCode != 42 {
		t.Errorf("exit code = %d, want 42", result.ExitCode)
	}
	if !strings.Contains(err.Error(), "exit code 42: broken") {
		t.Errorf("error %q lacks exit code and stderr", err)
	}
}

func TestRunContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	result, err := process.Run(ctx, process.Command{
		Binary:      "sleep",
		Args:        []string{"10"},
		GracePeriod: 500 * time.Millisecond,
	})
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
	if result.Duration > 5*time.Second {
		t.Errorf("process took too long to stop: %v", result.Duration)
	}
}

func TestRunMissingBinary(t *testing.T) {
	_, err := process.Run(context.Background(), process.Command{})
	if !errors.HasCode(err, errors.ErrCodeMissingField) {
		t.Fatalf("got %v, want MISSING_FIELD", err)
	}
}
