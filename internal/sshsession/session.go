package sshsession

import (
	"context"
	"net"
	"strconv"

	"golang.org/x/crypto/ssh"

	"github.com/pirakansa/kitup/internal/executor"
	"github.com/pirakansa/kitup/pkg/manifest"
)

// Session is an open connection to one server and the executor that runs
// commands over it.
type Session struct {
	*executor.Remote
	client *ssh.Client
}

func (s *Session) Close() error {
	return s.client.Close()
}

// Connector opens sessions to inventory servers.
type Connector struct {
	Dialer *Dialer
}

// Address returns host:port for server, using DefaultPort when none is set.
func Address(server manifest.Server) string {
	return net.JoinHostPort(server.Host, strconv.Itoa(manifest.Value(server.Port, DefaultPort)))
}

// Connect dials server. The session's executor is labeled with the server
// name, or its host when unnamed.
func (c *Connector) Connect(ctx context.Context, server manifest.Server) (*Session, error) {
	client, err := c.Dialer.Dial(ctx, Address(server), server.Username)
	if err != nil {
		return nil, err
	}
	label := server.Name
	if label == "" {
		label = server.Host
	}
	return &Session{Remote: executor.NewRemote(label, client), client: client}, nil
}
