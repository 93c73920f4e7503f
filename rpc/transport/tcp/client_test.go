package tcp

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"

	"github.com/scalaris-team/scalaris-go/rpc/common"
	"github.com/scalaris-team/scalaris-go/rpc/serializer"
	rpctesting "github.com/scalaris-team/scalaris-go/rpc/testing"
	"github.com/scalaris-team/scalaris-go/rpc/transport"
)

func Test(t *testing.T) {
	rpctesting.RunConnectionTests(t, "TCPConnection", false, func(config common.ClientConfig) (transport.IConnection, error) {
		return NewTCPConnection(config)
	})
}

func TestGoJSON(t *testing.T) {
	rpctesting.RunConnectionTests(t, "TCPConnection(gojson)", false, func(config common.ClientConfig) (transport.IConnection, error) {
		return DialTCP(context.Background(), config, serializer.NewGoJSONSerializer())
	})
}

// TestRedirectedDial tests that all resolved addresses are tried in order
func TestRedirectedDial(t *testing.T) {
	srv := rpctesting.NewServer(false)
	defer srv.Close()
	srv.HandleRaw("nop", `{"jsonrpc":"2.0","result":"ok","id":null}`)

	config := srv.Config()
	config.Hostname = "node.scalaris.local"
	config.Transport.Resolver = rpctesting.StaticResolver{
		"node.scalaris.local": {"192.0.2.1", "127.0.0.1"},
	}
	var dialed []string
	config.Transport.Dial = func(ctx context.Context, network, address string) (net.Conn, error) {
		dialed = append(dialed, address)
		host, _, _ := net.SplitHostPort(address)
		if host == "192.0.2.1" {
			return nil, errors.New("network is unreachable")
		}
		var dialer net.Dialer
		return dialer.DialContext(ctx, network, address)
	}

	conn, err := NewTCPConnection(config)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	result, err := conn.ExecCall("nop", []any{"value"})
	if err != nil {
		t.Fatalf("ExecCall(nop) failed: %v", err)
	}
	if string(result) != `"ok"` {
		t.Errorf("ExecCall(nop) = %s, expected \"ok\"", result)
	}
	if len(dialed) != 2 {
		t.Errorf("Expected two dial attempts, got %v", dialed)
	}
}

// TestRedirect tests that the dial hook replaces the default dialer
func TestRedirect(t *testing.T) {
	srv := rpctesting.NewServer(false)
	defer srv.Close()
	srv.HandleRaw("nop", `{"jsonrpc":"2.0","result":"ok"}`)

	config := srv.Config()
	config.Port = 1
	config.Transport.Dial = rpctesting.RedirectDial(net.JoinHostPort("127.0.0.1", strconv.FormatUint(uint64(srv.Port()), 10)))

	conn, err := NewTCPConnection(config)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	if conn.GetPort() != 1 {
		t.Errorf("GetPort() = %d, expected the configured port 1", conn.GetPort())
	}
	if _, err := conn.ExecCall("nop", nil); err != nil {
		t.Fatalf("ExecCall(nop) failed: %v", err)
	}
}

// TestDefaultPort tests that the plaintext JSON-RPC port is used if none is configured
func TestDefaultPort(t *testing.T) {
	var dialed string
	config := common.ClientConfig{
		Hostname: "127.0.0.1",
		Transport: common.ClientTransportConfig{
			Dial: func(_ context.Context, _, address string) (net.Conn, error) {
				dialed = address
				return nil, errors.New("connection refused")
			},
		},
	}

	conn, err := NewTCPConnection(config)
	if conn != nil {
		t.Fatal("No connection must be returned if connecting fails")
	}
	rpctesting.AssertTransportError(t, err, common.ReasonConnect)
	if dialed != "127.0.0.1:8000" {
		t.Errorf("Expected to dial 127.0.0.1:8000, dialed %q", dialed)
	}
}

// TestInvalidLink tests that a link which would break the request line is rejected before dialing
func TestInvalidLink(t *testing.T) {
	dialed := false
	config := common.ClientConfig{
		Hostname: "127.0.0.1",
		Link:     "jsonrpc.yaws HTTP/1.1\r\nX-Injected: 1",
		Transport: common.ClientTransportConfig{
			Dial: func(_ context.Context, _, _ string) (net.Conn, error) {
				dialed = true
				return nil, errors.New("connection refused")
			},
		},
	}

	conn, err := NewTCPConnection(config)
	if conn != nil || err == nil {
		t.Fatal("Expected an error for an invalid link")
	}
	if dialed {
		t.Error("No connection attempt must be made with an invalid link")
	}
}
