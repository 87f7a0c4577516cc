package executor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/ssh"

	"github.com/pirakansa/kitup/internal/logutil"
)

// SessionOpener opens SSH sessions; *ssh.Client satisfies it.
type SessionOpener interface {
	NewSession() (*ssh.Session, error)
}

// Remote runs commands on a host reached over an established SSH
// connection. Each command gets its own session.
type Remote struct {
	host   string
	client SessionOpener
}

func NewRemote(host string, client SessionOpener) *Remote {
	return &Remote{host: host, client: client}
}

func (r *Remote) Target() Target {
	return Target{Host: r.host}
}

func (r *Remote) Run(ctx context.Context, cmd Command) error {
	w := logutil.LineWriter(ctx, zapcore.InfoLevel)
	defer w.Close()
	return r.run(ctx, cmd, w)
}

func (r *Remote) Output(ctx context.Context, cmd Command) (string, error) {
	var out bytes.Buffer
	err := r.run(ctx, cmd, &out)
	return out.String(), err
}

func (r *Remote) run(ctx context.Context, cmd Command, stdout io.Writer) error {
	line := RemoteCommandLine(cmd)
	logutil.FromContext(ctx).Debug("exec", zap.String("host", r.host), zap.String("command", line))

	session, err := r.client.NewSession()
	if err != nil {
		return &RemoteExecError{Host: r.host, Command: cmd.Script, ExitCode: -1, Err: err}
	}
	defer session.Close()

	var stderr bytes.Buffer
	session.Stdout = stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(line) }()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		<-done
		return &RemoteExecError{Host: r.host, Command: cmd.Script, ExitCode: -1, Stderr: stderr.String(), Err: ctx.Err()}
	}
	if err == nil {
		return nil
	}

	remoteErr := &RemoteExecError{Host: r.host, Command: cmd.Script, ExitCode: -1, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		remoteErr.ExitCode = exitErr.ExitStatus()
	}
	return remoteErr
}
