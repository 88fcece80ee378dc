package hcloud

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/opsprov/internal/fleet"
	"github.com/imamik/opsprov/internal/util/retry"
)

// Resolver looks up the public IPv4 address of a server by name.
type Resolver struct {
	client *hcloud.Client
}

// Option configures a Resolver.
type Option func(*resolverOptions)

type resolverOptions struct {
	client   *hcloud.Client
	endpoint string
}

// WithHCloudClient sets a custom hcloud client (useful for testing).
func WithHCloudClient(hc *hcloud.Client) Option {
	return func(o *resolverOptions) {
		o.client = hc
	}
}

// WithEndpoint points the client at a different API endpoint.
func WithEndpoint(url string) Option {
	return func(o *resolverOptions) {
		o.endpoint = url
	}
}

// NewResolver creates a Resolver authenticated with token.
func NewResolver(token string, opts ...Option) *Resolver {
	var o resolverOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		clientOpts := []hcloud.ClientOption{
			hcloud.WithToken(token),
			hcloud.WithApplication("opsprov", ""),
		}
		if o.endpoint != "" {
			clientOpts = append(clientOpts, hcloud.WithEndpoint(o.endpoint))
		}
		o.client = hcloud.NewClient(clientOpts...)
	}
	return &Resolver{client: o.client}
}

// ResolveHost returns the public IPv4 address of the server named like inst.
// Hetzner has no projects or zones, so only inst.Name is looked up: identities
// that differ only in project or zone resolve to the same server.
func (r *Resolver) ResolveHost(ctx context.Context, inst fleet.Instance) (string, error) {
	server, _, err := r.client.Server.Get(ctx, inst.Name)
	if err != nil {
		err = fmt.Errorf("failed to get server %s: %w", inst.Name, err)
		if isPermanent(err) {
			return "", retry.Fatal(err)
		}
		return "", err
	}
	if server == nil {
		return "", retry.Fatalf("server not found: %s", inst.Name)
	}

	ip := ServerIPv4(server)
	if ip == "" {
		return "", retry.Fatalf("server %s has no public IPv4", inst.Name)
	}
	return ip, nil
}

// ServerIPv4 extracts the public IPv4 address from a server, or empty string if not set.
func ServerIPv4(s *hcloud.Server) string {
	if s != nil && s.PublicNet.IPv4.IP != nil && !s.PublicNet.IPv4.IP.IsUnspecified() {
		return s.PublicNet.IPv4.IP.String()
	}
	return ""
}
