// Package executor runs shell commands on the machine being provisioned,
// either the local host or a remote host over SSH.
package executor

import (
	"context"
	"errors"
)

const DefaultShell = "sh"

// Command is one shell invocation. Script is passed to Shell with -c.
type Command struct {
	Shell  string
	Script string
	Env    map[string]string
}

func (c Command) shell() string {
	if c.Shell == "" {
		return DefaultShell
	}
	return c.Shell
}

// Target identifies where commands run.
type Target struct {
	Host string
}

func (t Target) IsRemote() bool {
	return t.Host != ""
}

func (t Target) String() string {
	if t.Host == "" {
		return "local"
	}
	return t.Host
}

// Executor runs commands on one target. Run streams stdout to the log;
// Output captures it.
type Executor interface {
	Run(ctx context.Context, cmd Command) error
	Output(ctx context.Context, cmd Command) (string, error)
	Target() Target
}

// IsExitError reports whether err is a command that ran and exited
// non-zero, as opposed to a failure to run it at all.
func IsExitError(err error) bool {
	var local *CommandError
	if errors.As(err, &local) {
		return local.ExitCode > 0
	}
	var remote *RemoteExecError
	return errors.As(err, &remote) && remote.ExitCode > 0
}
