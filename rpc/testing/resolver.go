package testing

import (
	"context"
	"net"
)

// StaticResolver resolves the hostnames it contains. Every other name fails
// like an unknown host.
type StaticResolver map[string][]string

func (r StaticResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	if addrs, ok := r[host]; ok {
		return addrs, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

// RedirectDial returns a dial function connecting to target whatever address is requested
func RedirectDial(target string) func(ctx context.Context, network, address string) (net.Conn, error) {
	return func(ctx context.Context, network, _ string) (net.Conn, error) {
		var dialer net.Dialer
		return dialer.DialContext(ctx, network, target)
	}
}
