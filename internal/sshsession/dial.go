// Package sshsession opens authenticated SSH connections to the hosts a
// configuration is applied to.
package sshsession

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/pirakansa/kitup/internal/logutil"
)

const (
	DefaultPort       = 22
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 4
)

// AuthError is a host that rejected every offered credential or presented
// an unexpected host key. It is not retried.
type AuthError struct {
	Host string
	User string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("ssh authentication to %s@%s failed: %v", e.User, e.Host, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Dialer opens SSH client connections, retrying transient network
// failures with exponential backoff.
type Dialer struct {
	Auth            []ssh.AuthMethod
	HostKeyCallback ssh.HostKeyCallback
	// Timeout bounds each TCP connect and handshake attempt.
	Timeout    time.Duration
	MaxRetries uint64
	NewBackOff func() backoff.BackOff
}

func (d *Dialer) Dial(ctx context.Context, addr, user string) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User:            user,
		Auth:            d.Auth,
		HostKeyCallback: d.HostKeyCallback,
		Timeout:         d.timeout(),
	}
	logger := logutil.FromContext(ctx).With(zap.String("addr", addr), zap.String("user", user))

	var client *ssh.Client
	op := func() error {
		c, err := d.dialOnce(ctx, addr, config)
		if err != nil {
			if isAuthFailure(err) {
				return backoff.Permanent(&AuthError{Host: addr, User: user, Err: err})
			}
			return err
		}
		client = c
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("ssh dial failed, retrying", zap.Error(err), zap.Duration("wait", wait))
	}
	b := backoff.WithContext(backoff.WithMaxRetries(d.backOff(), d.maxRetries()), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	logger.Debug("ssh connected")
	return client, nil
}

func (d *Dialer) dialOnce(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	nd := net.Dialer{Timeout: config.Timeout}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if config.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(config.Timeout))
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(c, chans, reqs), nil
}

func (d *Dialer) timeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return DefaultTimeout
}

func (d *Dialer) maxRetries() uint64 {
	if d.MaxRetries > 0 {
		return d.MaxRetries
	}
	return DefaultMaxRetries
}

func (d *Dialer) backOff() backoff.BackOff {
	if d.NewBackOff != nil {
		return d.NewBackOff()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	return b
}

func isAuthFailure(err error) bool {
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) {
		return true
	}
	var revoked *knownhosts.RevokedError
	if errors.As(err, &revoked) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") || strings.Contains(msg, "knownhosts:")
}
