// Package executortest provides an in-memory executor.Executor that records
// commands instead of running them.
package executortest

import (
	"context"
	"strings"
	"sync"

	"github.com/pirakansa/kitup/internal/executor"
)

type rule struct {
	match    string
	exitCode int
	output   string
	err      error
}

// Recorder records every command it receives. Commands succeed with empty
// output unless a rule registered with FailOn, Respond or Break matches.
// Rules match when the script contains the rule text; the latest
// registered rule wins.
type Recorder struct {
	host string

	mu       sync.Mutex
	rules    []rule
	commands []executor.Command
}

func New() *Recorder {
	return &Recorder{}
}

func NewRemote(host string) *Recorder {
	return &Recorder{host: host}
}

// FailOn makes matching commands exit with code.
func (r *Recorder) FailOn(match string, code int) *Recorder {
	return r.add(rule{match: match, exitCode: code})
}

// Respond makes matching commands print output.
func (r *Recorder) Respond(match, output string) *Recorder {
	return r.add(rule{match: match, output: output})
}

// Break makes matching commands fail before running, like a dropped
// connection.
func (r *Recorder) Break(match string, err error) *Recorder {
	return r.add(rule{match: match, err: err})
}

func (r *Recorder) add(rl rule) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rl)
	return r
}

func (r *Recorder) Target() executor.Target {
	return executor.Target{Host: r.host}
}

func (r *Recorder) Run(ctx context.Context, cmd executor.Command) error {
	_, err := r.Output(ctx, cmd)
	return err
}

func (r *Recorder) Output(ctx context.Context, cmd executor.Command) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)

	for i := len(r.rules) - 1; i >= 0; i-- {
		rl := r.rules[i]
		if !strings.Contains(cmd.Script, rl.match) {
			continue
		}
		switch {
		case rl.err != nil:
			return "", r.fail(cmd, -1, rl.err)
		case rl.exitCode != 0:
			return "", r.fail(cmd, rl.exitCode, nil)
		default:
			return rl.output, nil
		}
	}
	return "", nil
}

func (r *Recorder) fail(cmd executor.Command, code int, err error) error {
	if r.host != "" {
		return &executor.RemoteExecError{Host: r.host, Command: cmd.Script, ExitCode: code, Err: err}
	}
	return &executor.CommandError{Command: cmd.Script, ExitCode: code, Err: err}
}

func (r *Recorder) Commands() []executor.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]executor.Command(nil), r.commands...)
}

// Scripts returns the script of every recorded command, in order.
func (r *Recorder) Scripts() []string {
	cmds := r.Commands()
	out := make([]string, len(cmds))
	for i, cmd := range cmds {
		out[i] = cmd.Script
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}
