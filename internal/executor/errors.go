package executor

import (
	"fmt"
	"strings"
)

// CommandError is a local command that failed. ExitCode is -1 when the
// process could not be started or was killed.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q exited with status %d", e.Command, e.ExitCode)
	if e.ExitCode < 0 && e.Err != nil {
		msg = fmt.Sprintf("command %q failed: %v", e.Command, e.Err)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// RemoteExecError is a command that failed on a remote host.
type RemoteExecError struct {
	Host     string
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *RemoteExecError) Error() string {
	msg := fmt.Sprintf("%s: command %q exited with status %d", e.Host, e.Command, e.ExitCode)
	if e.ExitCode < 0 && e.Err != nil {
		msg = fmt.Sprintf("%s: command %q failed: %v", e.Host, e.Command, e.Err)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *RemoteExecError) Unwrap() error {
	return e.Err
}
