package executor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pirakansa/kitup/internal/logutil"
)

// Local runs commands on the current host.
type Local struct {
	// Stdout receives the output of Run. Nil logs each line instead.
	Stdout io.Writer
	Stdin  io.Reader
}

func NewLocal() *Local {
	return &Local{Stdin: os.Stdin}
}

func (l *Local) Target() Target {
	return Target{}
}

func (l *Local) Run(ctx context.Context, cmd Command) error {
	stdout := l.Stdout
	if stdout == nil {
		w := logutil.LineWriter(ctx, zapcore.InfoLevel)
		defer w.Close()
		stdout = w
	}
	return l.run(ctx, cmd, stdout)
}

func (l *Local) Output(ctx context.Context, cmd Command) (string, error) {
	var out bytes.Buffer
	err := l.run(ctx, cmd, &out)
	return out.String(), err
}

func (l *Local) run(ctx context.Context, cmd Command, stdout io.Writer) error {
	args := LocalArgs(cmd)
	logutil.FromContext(ctx).Debug("exec", zap.Strings("argv", args))

	proc := exec.CommandContext(ctx, args[0], args[1:]...)
	proc.Stdin = l.Stdin
	proc.Stdout = stdout
	var stderr bytes.Buffer
	proc.Stderr = &stderr
	proc.Env = append(os.Environ(), envList(cmd.Env)...)

	err := proc.Run()
	if err == nil {
		return nil
	}
	cmdErr := &CommandError{Command: cmd.Script, ExitCode: -1, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		cmdErr.ExitCode = exitErr.ExitCode()
	}
	if ctx.Err() != nil {
		cmdErr.Err = ctx.Err()
	}
	return cmdErr
}
