// Package sshtest provides an in-process SSH server for tests.
package sshtest

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"sync"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/imamik/opsprov/internal/util/keygen"
)

// Handler produces the output and exit status for an exec request.
type Handler func(command string) (output string, status uint32)

// Server accepts sessions authenticated with one authorized key and answers
// exec requests with Handler.
type Server struct {
	Host string
	Port int

	// ClientKey is the PEM private key the server accepts.
	ClientKey []byte

	mu       sync.Mutex
	commands []string
	handler  Handler
}

// NewServer starts a server on 127.0.0.1 and stops it when the test ends.
func NewServer(t testing.TB, handler Handler) *Server {
	t.Helper()

	hostPair, err := keygen.GenerateED25519KeyPair("host")
	if err != nil {
		t.Fatalf("failed to generate host key: %v", err)
	}
	hostSigner, err := ssh.ParsePrivateKey(hostPair.PrivateKey)
	if err != nil {
		t.Fatalf("failed to parse host key: %v", err)
	}

	clientPair, err := keygen.GenerateED25519KeyPair("client")
	if err != nil {
		t.Fatalf("failed to generate client key: %v", err)
	}
	authorized, _, _, _, err := ssh.ParseAuthorizedKey(clientPair.PublicKey)
	if err != nil {
		t.Fatalf("failed to parse client public key: %v", err)
	}

	cfg := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return nil, nil
			}
			return nil, fmt.Errorf("unknown public key")
		},
	}
	cfg.AddHostKey(hostSigner)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	addr := ln.Addr().(*net.TCPAddr)
	s := &Server{
		Host:      addr.IP.String(),
		Port:      addr.Port,
		ClientKey: clientPair.PrivateKey,
		handler:   handler,
	}

	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(nc, cfg)
		}
	}()

	return s
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Commands returns every command received so far.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *Server) serve(nc net.Conn, cfg *ssh.ServerConfig) {
	conn, chans, reqs, err := ssh.NewServerConn(nc, cfg)
	if err != nil {
		_ = nc.Close()
		return
	}
	defer func() { _ = conn.Close() }()
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		ch, requests, err := newCh.Accept()
		if err != nil {
			continue
		}
		go s.session(ch, requests)
	}
}

func (s *Server) session(ch ssh.Channel, requests <-chan *ssh.Request) {
	defer func() { _ = ch.Close() }()

	for req := range requests {
		if req.Type != "exec" {
			_ = req.Reply(false, nil)
			continue
		}

		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			_ = req.Reply(false, nil)
			continue
		}
		_ = req.Reply(true, nil)

		s.mu.Lock()
		s.commands = append(s.commands, payload.Command)
		s.mu.Unlock()

		output, status := s.handler(payload.Command)
		_, _ = ch.Write([]byte(output))
		_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
		return
	}
}
