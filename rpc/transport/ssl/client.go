package ssl

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/scalaris-team/scalaris-go/rpc/common"
	"github.com/scalaris-team/scalaris-go/rpc/serializer"
	"github.com/scalaris-team/scalaris-go/rpc/transport"
	"github.com/scalaris-team/scalaris-go/rpc/transport/base"
)

var Logger = logger.GetLogger(common.LoggerSSL)

// clientConnector implements the IClientConnector interface for TLS secured TCP sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "ssl"
}

func (c *clientConnector) DefaultPort() uint {
	return common.DefaultSSLPort
}

func (c *clientConnector) Connect(ctx context.Context, address string, config common.ClientConfig) (net.Conn, error) {
	return base.Dial(ctx, address, config)
}

// UpgradeConnection applies the TCP settings and performs the TLS client handshake
func (c *clientConnector) UpgradeConnection(ctx context.Context, conn net.Conn, config common.ClientConfig) (net.Conn, error) {
	if err := base.ApplyTCPOptions(conn, config); err != nil {
		return nil, err
	}

	tlsConfig, err := NewTLSConfig(config)
	if err != nil {
		return nil, &common.TLSError{Reason: "invalid tls configuration", Err: err}
	}

	tlsConn := tls.Client(conn, tlsConfig)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		var rejected *rejectedError
		if errors.As(err, &rejected) {
			return nil, &common.TLSError{Reason: "certificate rejected", Err: err}
		}
		return nil, &common.TLSError{Reason: "handshake failed", Err: err}
	}

	state := tlsConn.ConnectionState()
	Logger.Debugf("Handshake with %s complete (version %s, cipher %s)",
		config.Hostname, tls.VersionName(state.Version), tls.CipherSuiteName(state.CipherSuite))

	return tlsConn, nil
}

// --------------------------------------------------------------------------
// TLS configuration
// --------------------------------------------------------------------------

// NewTLSConfig creates the client side TLS configuration. The chain of trust
// and the hostname are verified in VerifyConnection, which also runs the
// verify callback for every presented certificate.
func NewTLSConfig(config common.ClientConfig) (*tls.Config, error) {
	roots := config.TLS.RootCAs
	if roots == nil && config.TLS.CAFile != "" {
		pem, err := os.ReadFile(config.TLS.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		roots = x509.NewCertPool()
		if !roots.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA file %s", config.TLS.CAFile)
		}
	}

	serverName := config.TLS.ServerName
	if serverName == "" {
		serverName = config.Hostname
	}

	callback := config.TLS.Verify
	if callback == nil {
		if len(config.TLS.PinnedSHA256) > 0 {
			callback = PinnedVerifyCallback(config.TLS.PinnedSHA256...)
		} else {
			callback = DefaultVerifyCallback
		}
	}

	var certificates []tls.Certificate
	if config.TLS.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(config.TLS.CertFile, config.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		certificates = append(certificates, cert)
	}

	return &tls.Config{
		ServerName:   serverName,
		MinVersion:   tls.VersionTLS12,
		Certificates: certificates,
		// verifyPeer replaces the built-in verification, it is never skipped
		InsecureSkipVerify: true,
		VerifyConnection: func(state tls.ConnectionState) error {
			return verifyPeer(state.PeerCertificates, roots, serverName, callback)
		},
	}, nil
}

// --------------------------------------------------------------------------
// Connection Factory Methods
// --------------------------------------------------------------------------

// NewSSLConnection connects to the Scalaris node described by config using
// JSON encoding. The TLS handshake is performed before the function returns.
func NewSSLConnection(config common.ClientConfig) (transport.IConnection, error) {
	return DialSSL(context.Background(), config, serializer.NewJSONSerializer())
}

// DialSSL connects to the Scalaris node described by config with the given serializer
func DialSSL(ctx context.Context, config common.ClientConfig, s serializer.IRPCSerializer) (transport.IConnection, error) {
	return base.NewBaseConnection(ctx, &clientConnector{}, config, s)
}
