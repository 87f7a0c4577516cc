package sshsession

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/pirakansa/kitup/internal/logutil"
)

// Agent is an ssh-agent connection used to authenticate sessions.
type Agent struct {
	client agent.ExtendedAgent
	conn   net.Conn
	// env is set when the agent was started by ConnectAgent and must be
	// stopped on Close.
	env []string
}

// ConnectAgent connects to the agent at SSH_AUTH_SOCK. Without one it
// starts a new agent and loads the default identities with ssh-add.
func ConnectAgent(ctx context.Context) (*Agent, error) {
	logger := logutil.FromContext(ctx)
	sock := os.Getenv("SSH_AUTH_SOCK")
	var env []string
	if sock == "" {
		logger.Info("starting ssh-agent", zap.String("command", "ssh-agent -s"))
		out, err := exec.CommandContext(ctx, "ssh-agent", "-s").Output()
		if err != nil {
			return nil, fmt.Errorf("start ssh-agent: %w", err)
		}
		vars, err := parseAgentOutput(string(out))
		if err != nil {
			return nil, err
		}
		sock = vars["SSH_AUTH_SOCK"]
		env = append(os.Environ(), "SSH_AUTH_SOCK="+sock, "SSH_AGENT_PID="+vars["SSH_AGENT_PID"])

		logger.Info("adding ssh identities", zap.String("command", "ssh-add"))
		add := exec.CommandContext(ctx, "ssh-add")
		add.Env = env
		add.Stdin = os.Stdin
		add.Stderr = os.Stderr
		if err := add.Run(); err != nil {
			stopAgent(env)
			return nil, fmt.Errorf("ssh-add: %w", err)
		}
	}

	conn, err := net.Dial("unix", sock)
	if err != nil {
		if env != nil {
			stopAgent(env)
		}
		return nil, fmt.Errorf("connect to ssh-agent %s: %w", sock, err)
	}
	return &Agent{client: agent.NewClient(conn), conn: conn, env: env}, nil
}

func (a *Agent) AuthMethod() ssh.AuthMethod {
	return ssh.PublicKeysCallback(a.client.Signers)
}

func (a *Agent) Close() error {
	err := a.conn.Close()
	if a.env != nil {
		err = errors.Join(err, stopAgent(a.env))
	}
	return err
}

func stopAgent(env []string) error {
	kill := exec.Command("ssh-agent", "-k")
	kill.Env = env
	return kill.Run()
}

// parseAgentOutput reads the variables from `ssh-agent -s` output, e.g.
//
//	SSH_AUTH_SOCK=/tmp/ssh-XXXX/agent.123; export SSH_AUTH_SOCK;
func parseAgentOutput(out string) (map[string]string, error) {
	vars := map[string]string{}
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		assignment, _, _ := strings.Cut(scanner.Text(), ";")
		key, value, ok := strings.Cut(strings.TrimSpace(assignment), "=")
		if !ok || strings.ContainsAny(key, " \t") {
			continue
		}
		vars[key] = value
	}
	if vars["SSH_AUTH_SOCK"] == "" {
		return nil, fmt.Errorf("ssh-agent output has no SSH_AUTH_SOCK: %q", out)
	}
	return vars, nil
}
