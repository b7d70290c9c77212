package slurm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Runner executes the status command and returns its raw output. The engine
// never interprets the command itself, so deployments can swap sinfo variants
// or wrap the call in ssh without touching the parser.
//
//go:generate mockery --name=Runner
type Runner interface {
	Run(ctx context.Context, argv []string) (string, error)
}

// ExecRunner runs the command on the local host, for deployments where the
// service lives on a cluster login node.
type ExecRunner struct{}

func NewExecRunner() ExecRunner {
	return ExecRunner{}
}

func (ExecRunner) Run(ctx context.Context, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", errors.New("empty command")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%s: %w: %s", argv[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// SSHRunner runs the command on a remote login node over a fresh connection
// per call. Long-lived multiplexed sessions are not worth the reconnect logic
// at the call rates involved here.
type SSHRunner struct {
	addr   string
	config *ssh.ClientConfig
}

func NewSSHRunner(host, port, user string, privateKey []byte, knownHostsFile string) (*SSHRunner, error) {
	signer, err := ssh.ParsePrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if knownHostsFile != "" {
		hostKeyCallback, err = knownhosts.New(knownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
	}

	return &SSHRunner{
		addr: net.JoinHostPort(host, port),
		config: &ssh.ClientConfig{
			User:            user,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: hostKeyCallback,
		},
	}, nil
}

func (r *SSHRunner) Run(ctx context.Context, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", errors.New("empty command")
	}

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", r.addr)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", r.addr, err)
	}

	// The ssh package has no context support, so cancellation tears the
	// connection down underneath it.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	clientConn, channels, requests, err := ssh.NewClientConn(conn, r.addr, r.config)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ssh handshake with %s: %w", r.addr, err)
	}
	client := ssh.NewClient(clientConn, channels, requests)
	defer func() {
		_ = client.Close()
	}()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("ssh session: %w", err)
	}
	defer func() {
		_ = session.Close()
	}()

	var stderr bytes.Buffer
	session.Stderr = &stderr
	output, err := session.Output(shellJoin(argv))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("remote %s: %w: %s", argv[0], err, strings.TrimSpace(stderr.String()))
	}
	return string(output), nil
}

// shellJoin quotes each argument for the remote shell. The sinfo format string
// contains spaces and percent signs, so naive joining would split it.
func shellJoin(argv []string) string {
	quoted := make([]string, 0, len(argv))
	for _, arg := range argv {
		if arg == "" || strings.ContainsAny(arg, " \t\"'\\$`*?[]{}()<>|&;#~") {
			quoted = append(quoted, "'"+strings.ReplaceAll(arg, "'", `'"'"'`)+"'")
		} else {
			quoted = append(quoted, arg)
		}
	}
	return strings.Join(quoted, " ")
}
