package modules

import (
	"context"
	"strings"
	"time"

	"github.com/kbukum/docflow/document"
	"github.com/kbukum/docflow/engine"
	"github.com/kbukum/docflow/errors"
	"github.com/kbukum/docflow/logger"
	"github.com/kbukum/docflow/process"
)

// Exec pipes every input document through an external command. The
// document content is written to the command's stdin and its stdout
// becomes the content of the derived output document.
type Exec struct {
	cmd        process.Command
	trimOutput bool
}

var _ engine.Module = (*Exec)(nil)

// NewExec creates an Exec module running binary with args.
func NewExec(binary string, args ...string) *Exec {
	return &Exec{cmd: process.Command{Binary: binary, Args: args}}
}

// WithDir sets the working directory of the command.
func (m *Exec) WithDir(dir string) *Exec {
	m.cmd.Dir = dir
	return m
}

// WithEnv appends KEY=value pairs to the command environment.
func (m *Exec) WithEnv(env ...string) *Exec {
	m.cmd.Env = append(m.cmd.Env, env...)
	return m
}

// WithGracePeriod sets the delay between SIGTERM and SIGKILL on
// cancellation.
func (m *Exec) WithGracePeriod(d time.Duration) *Exec {
	m.cmd.GracePeriod = d
	return m
}

// TrimOutput strips surrounding whitespace from the command output.
func (m *Exec) TrimOutput() *Exec {
	m.trimOutput = true
	return m
}

func (m *Exec) Name() string { return "exec" }

func (m *Exec) Execute(ctx context.Context, ec engine.ExecutionContext, inputs []document.Document) ([]document.Document, error) {
	if m.cmd.Binary == "" {
		return nil, errors.MissingField("binary")
	}
	out := make([]document.Document, 0, len(inputs))
	for _, d := range inputs {
		cmd := m.cmd
		cmd.Stdin = strings.NewReader(d.Content())
		result, err := process.Run(ctx, cmd)
		if err != nil {
			return nil, err
		}
		content := string(result.Stdout)
		if m.trimOutput {
			content = strings.TrimSpace(content)
		}
		ec.Logger().Debug("command finished", logger.Fields(
			"binary", m.cmd.Binary,
			"exit_code", result.ExitCode,
			logger.FieldDuration, result.Duration.Milliseconds(),
		))
		out = append(out, document.Derive(d, content, nil))
	}
	return out, nil
}
