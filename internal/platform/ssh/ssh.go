package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

const (
	defaultPort        = 22
	defaultDialTimeout = 20 * time.Second
)

// ErrAuthentication is returned when the server rejects the credentials.
var ErrAuthentication = errors.New("ssh authentication rejected")

// Config holds SSH client configuration.
type Config struct {
	Port       int
	User       string
	PrivateKey []byte
	// Passphrase decrypts PrivateKey when it is encrypted.
	Passphrase []byte

	// DialTimeout bounds TCP connect plus handshake.
	// If zero, defaultDialTimeout is used.
	DialTimeout time.Duration

	// HostKeyCallback handles host key verification.
	// If nil, ssh.InsecureIgnoreHostKey() is used.
	HostKeyCallback ssh.HostKeyCallback
}

// Result is the outcome of a command that ran to completion.
type Result struct {
	ExitCode int
	Output   string
}

// ConnectionError reports a failure to reach or talk to the host.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("ssh connection to %s failed: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Client executes commands on remote hosts via SSH.
type Client struct {
	config *Config
	signer ssh.Signer
}

// NewClient creates a new SSH client and validates the private key.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("config user cannot be empty")
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, fmt.Errorf("config private key cannot be empty")
	}

	configCopy := *cfg
	if configCopy.Port == 0 {
		configCopy.Port = defaultPort
	}
	if configCopy.DialTimeout == 0 {
		configCopy.DialTimeout = defaultDialTimeout
	}
	if configCopy.HostKeyCallback == nil {
		configCopy.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // fleet hosts have no managed known_hosts
	}

	var (
		signer ssh.Signer
		err    error
	)
	if len(configCopy.Passphrase) > 0 {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(configCopy.PrivateKey, configCopy.Passphrase)
	} else {
		signer, err = ssh.ParsePrivateKey(configCopy.PrivateKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &Client{config: &configCopy, signer: signer}, nil
}

// Run connects to host, runs command in a new session and returns its
// combined output and exit status. Cancelling ctx closes the connection.
func (c *Client) Run(ctx context.Context, host, command string) (Result, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(c.config.Port))

	client, err := c.connect(ctx, addr)
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	defer func() { _ = client.Close() }()

	// Unblock CombinedOutput when the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	session, err := client.NewSession()
	if err != nil {
		return Result{ExitCode: -1}, &ConnectionError{Addr: addr, Err: fmt.Errorf("failed to create session: %w", err)}
	}
	defer func() { _ = session.Close() }()

	output, err := session.CombinedOutput(command)
	if err == nil {
		return Result{ExitCode: 0, Output: string(output)}, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{ExitCode: -1, Output: string(output)}, fmt.Errorf("command on %s interrupted: %w", addr, ctxErr)
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return Result{ExitCode: exitErr.ExitStatus(), Output: string(output)}, nil
	}

	return Result{ExitCode: -1, Output: string(output)}, &ConnectionError{Addr: addr, Err: err}
}

func (c *Client) connect(ctx context.Context, addr string) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User:            c.config.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(c.signer)},
		HostKeyCallback: c.config.HostKeyCallback,
		Timeout:         c.config.DialTimeout,
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.config.DialTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}

	_ = conn.SetDeadline(time.Now().Add(c.config.DialTimeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		if isAuthFailure(err) {
			return nil, fmt.Errorf("%w for %s@%s: %v", ErrAuthentication, c.config.User, addr, err)
		}
		return nil, &ConnectionError{Addr: addr, Err: err}
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(sshConn, chans, reqs), nil
}

// isAuthFailure matches the x/crypto/ssh client error raised when every
// offered auth method was refused.
func isAuthFailure(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}
