package ssl

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/scalaris-team/scalaris-go/rpc/common"
	"github.com/scalaris-team/scalaris-go/rpc/serializer"
	rpctesting "github.com/scalaris-team/scalaris-go/rpc/testing"
	"github.com/scalaris-team/scalaris-go/rpc/transport"
)

func Test(t *testing.T) {
	rpctesting.RunConnectionTests(t, "SSLConnection", true, func(config common.ClientConfig) (transport.IConnection, error) {
		return NewSSLConnection(config)
	})
}

func TestJSONIter(t *testing.T) {
	rpctesting.RunConnectionTests(t, "SSLConnection(jsoniter)", true, func(config common.ClientConfig) (transport.IConnection, error) {
		return DialSSL(context.Background(), config, serializer.NewJSONIterSerializer())
	})
}

// assertTLSError fails the test if err is not a TLSError
func assertTLSError(t *testing.T, conn transport.IConnection, err error) {
	t.Helper()
	if conn != nil {
		t.Fatal("No connection must be returned if the handshake fails")
	}
	var tlsErr *common.TLSError
	if !errors.As(err, &tlsErr) {
		t.Fatalf("Expected TLSError, got %T: %v", err, err)
	}
}

func newPingServer() *rpctesting.Server {
	srv := rpctesting.NewServer(true)
	srv.Handle("ping", func(json.RawMessage) (any, *common.ErrorObject) {
		return 42, nil
	})
	return srv
}

// TestStoreHostname connects under a hostname the server certificate is not issued for
func TestStoreHostname(t *testing.T) {
	srv := newPingServer()
	defer srv.Close()

	config := srv.Config()
	config.Hostname = "store.example.org"
	config.Transport.Resolver = rpctesting.StaticResolver{"store.example.org": {"127.0.0.1"}}

	// The certificate is issued for example.com
	config.TLS.ServerName = "example.com"
	conn, err := NewSSLConnection(config)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	if conn.GetPort() != srv.Port() {
		t.Errorf("GetPort() = %d, expected %d", conn.GetPort(), srv.Port())
	}
	result, err := conn.ExecCall("ping", []any{})
	if err != nil {
		t.Fatalf("ExecCall(ping) failed: %v", err)
	}
	if string(result) != "42" {
		t.Errorf("ExecCall(ping) = %s, expected 42", result)
	}

	// Without override the name does not match the certificate
	config.TLS.ServerName = ""
	conn, err = NewSSLConnection(config)
	assertTLSError(t, conn, err)
}

// TestDefaultPort tests that the secure JSON-RPC port is used if none is configured
func TestDefaultPort(t *testing.T) {
	var dialed string
	config := common.ClientConfig{
		Hostname:      "127.0.0.1",
		TimeoutSecond: 1,
		Transport: common.ClientTransportConfig{
			Dial: func(_ context.Context, _, address string) (net.Conn, error) {
				dialed = address
				return nil, errors.New("connection refused")
			},
		},
	}

	conn, err := NewSSLConnection(config)
	if conn != nil {
		t.Fatal("No connection must be returned if connecting fails")
	}
	rpctesting.AssertTransportError(t, err, common.ReasonConnect)
	if dialed != "127.0.0.1:8443" {
		t.Errorf("Expected to dial 127.0.0.1:8443, dialed %q", dialed)
	}
}

// TestUntrustedCertificate tests that a chain failing verification is rejected by the default policy
func TestUntrustedCertificate(t *testing.T) {
	srv := newPingServer()
	defer srv.Close()

	config := srv.Config()
	config.TLS.RootCAs = nil // system roots do not contain the httptest certificate

	var invocations int
	config.TLS.Verify = func(preverified bool, ctx *common.CertificateContext) bool {
		invocations++
		if preverified {
			t.Error("Untrusted chain must not be preverified")
		}
		if ctx.Err == nil {
			t.Error("Context should carry the verification error")
		}
		return DefaultVerifyCallback(preverified, ctx)
	}

	conn, err := NewSSLConnection(config)
	assertTLSError(t, conn, err)
	if invocations == 0 {
		t.Error("Verify callback was not invoked")
	}
	if srv.Calls("ping") != 0 {
		t.Error("No call must reach the server")
	}
}

// TestVerifyCallbackOrder tests that the callback sees every certificate of the chain
func TestVerifyCallbackOrder(t *testing.T) {
	srv := newPingServer()
	defer srv.Close()

	config := srv.Config()
	var depths []int
	config.TLS.Verify = func(preverified bool, ctx *common.CertificateContext) bool {
		depths = append(depths, ctx.Depth)
		if ctx.Certificate != ctx.Chain[ctx.Depth] {
			t.Error("Certificate does not match the chain at depth")
		}
		return preverified
	}

	conn, err := NewSSLConnection(config)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	if len(depths) == 0 {
		t.Fatal("Verify callback was not invoked")
	}
	if depths[len(depths)-1] != 0 {
		t.Errorf("Peer certificate should be verified last, depths: %v", depths)
	}
}

// TestRejectingCallback tests that a callback can reject a trusted chain
func TestRejectingCallback(t *testing.T) {
	srv := newPingServer()
	defer srv.Close()

	config := srv.Config()
	config.TLS.Verify = func(bool, *common.CertificateContext) bool {
		return false
	}

	conn, err := NewSSLConnection(config)
	assertTLSError(t, conn, err)
}

// TestPinnedCertificate tests the pinning override policy
func TestPinnedCertificate(t *testing.T) {
	srv := newPingServer()
	defer srv.Close()

	config := srv.Config()
	config.TLS.RootCAs = nil

	// Wrong pin: still rejected
	config.TLS.PinnedSHA256 = []string{"00:11:22"}
	conn, err := NewSSLConnection(config)
	assertTLSError(t, conn, err)

	// Matching pin: accepted without a trusted root
	config.TLS.PinnedSHA256 = []string{common.Fingerprint(srv.Certificate())}
	conn, err = NewSSLConnection(config)
	if err != nil {
		t.Fatalf("Failed to connect with pinned certificate: %v", err)
	}
	defer conn.Close()

	if _, err := conn.ExecCall("ping", []any{}); err != nil {
		t.Fatalf("ExecCall(ping) failed: %v", err)
	}
}

// TestPlaintextPeer tests that a handshake with a peer not speaking TLS fails with a TLSError
func TestPlaintextPeer(t *testing.T) {
	srv := rpctesting.NewServer(false)
	defer srv.Close()

	conn, err := NewSSLConnection(srv.Config())
	assertTLSError(t, conn, err)
}

// TestCAFile tests loading the trusted roots from a PEM file
func TestCAFile(t *testing.T) {
	srv := newPingServer()
	defer srv.Close()

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(caFile, rpctesting.EncodeCertificate(srv.Certificate()), 0o600); err != nil {
		t.Fatalf("Failed to write CA file: %v", err)
	}

	config := srv.Config()
	config.TLS.RootCAs = nil
	config.TLS.CAFile = caFile

	conn, err := NewSSLConnection(config)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	// A missing file is a configuration error of the handshake
	config.TLS.CAFile = filepath.Join(t.TempDir(), "missing.pem")
	conn, err = NewSSLConnection(config)
	assertTLSError(t, conn, err)
}
