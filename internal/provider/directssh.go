package provider

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/imamik/opsprov/internal/fleet"
	"github.com/imamik/opsprov/internal/platform/ssh"
)

// HostResolver maps an instance to the address DirectSSH connects to.
type HostResolver interface {
	ResolveHost(ctx context.Context, inst fleet.Instance) (string, error)
}

// SSHRunner runs a command on a host. *ssh.Client implements it.
type SSHRunner interface {
	Run(ctx context.Context, host, command string) (ssh.Result, error)
}

// NameResolver uses the instance name as the hostname.
type NameResolver struct{}

func (NameResolver) ResolveHost(_ context.Context, inst fleet.Instance) (string, error) {
	return inst.Name, nil
}

// TemplateResolver renders a text/template with the instance's Project,
// Zone and Name, e.g. "{{.Name}}.{{.Zone}}.c.{{.Project}}.internal".
type TemplateResolver struct {
	tmpl *template.Template
}

// NewTemplateResolver parses text as a host template.
func NewTemplateResolver(text string) (*TemplateResolver, error) {
	tmpl, err := template.New("host").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse host template: %w", err)
	}
	return &TemplateResolver{tmpl: tmpl}, nil
}

func (r *TemplateResolver) ResolveHost(_ context.Context, inst fleet.Instance) (string, error) {
	var b strings.Builder
	if err := r.tmpl.Execute(&b, inst); err != nil {
		return "", fmt.Errorf("failed to render host for %s: %w", inst, err)
	}
	host := strings.TrimSpace(b.String())
	if host == "" {
		return "", fmt.Errorf("host template rendered an empty host for %s", inst)
	}
	return host, nil
}

// DirectSSH executes commands over its own SSH connection.
type DirectSSH struct {
	client  SSHRunner
	hosts   HostResolver
	timeout time.Duration
}

// NewDirectSSH returns a provider that resolves each instance with hosts and
// runs commands through client, giving up after timeout.
func NewDirectSSH(client SSHRunner, hosts HostResolver, timeout time.Duration) *DirectSSH {
	if hosts == nil {
		hosts = NameResolver{}
	}
	return &DirectSSH{client: client, hosts: hosts, timeout: timeout}
}

func (p *DirectSSH) Name() string { return "direct-ssh" }

func (p *DirectSSH) Execute(ctx context.Context, inst fleet.Instance, command string) (Result, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	host, err := p.hosts.ResolveHost(ctx, inst)
	if err != nil {
		res := Result{ExitCode: -1}
		return res, Classify(p.Name(), inst, res, fmt.Errorf("failed to resolve host: %w", err))
	}

	out, err := p.client.Run(ctx, host, command)
	res := Result{ExitCode: out.ExitCode, Output: out.Output}
	return res, Classify(p.Name(), inst, res, err)
}
