package common

import (
	"context"
	"crypto/x509"
	"fmt"
	"net"
	"strconv"
	"strings"
	"unicode"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	// DefaultLink is the JSON-RPC endpoint path served by a Scalaris node
	DefaultLink = "jsonrpc.yaws"
	// DefaultSSLPort is the port of the TLS secured JSON-RPC endpoint
	DefaultSSLPort uint = 8443
	// DefaultTCPPort is the port of the plaintext JSON-RPC endpoint
	DefaultTCPPort uint = 8000
)

// --------------------------------------------------------------------------
// Hooks for dependency injection
// --------------------------------------------------------------------------

// Resolver resolves a hostname to a list of addresses. *net.Resolver implements it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) (addrs []string, err error)
}

// DialFunc opens a raw stream connection to the given address
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTLSConfig holds the settings of the TLS handshake
type ClientTLSConfig struct {
	// CAFile is a PEM bundle used instead of the system roots
	CAFile string
	// RootCAs is used instead of the system roots (takes precedence over CAFile)
	RootCAs *x509.CertPool
	// ServerName overrides the name checked against the peer certificate.
	// Defaults to the hostname.
	ServerName string
	// CertFile and KeyFile configure an optional client certificate
	CertFile string
	KeyFile  string
	// PinnedSHA256 contains hex encoded certificate fingerprints. If set the
	// connection accepts a chain containing one of them even if the chain
	// of trust can not be established.
	PinnedSHA256 []string
	// Verify is called once per presented certificate. nil means the default
	// policy (accept only what the chain verification accepted).
	Verify VerifyCallback
}

// ClientTransportConfig holds socket level settings
type ClientTransportConfig struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	// Resolver replaces net.DefaultResolver
	Resolver Resolver
	// Dial replaces the default net.Dialer
	Dial DialFunc
}

// ClientConfig describes one logical session to one Scalaris node
type ClientConfig struct {
	Hostname string
	// Port of the node, 0 selects the default port of the transport
	Port uint
	// Link is the JSON-RPC path, empty selects DefaultLink
	Link string
	// TimeoutSecond bounds connect, reads and writes. 0 disables the bound.
	TimeoutSecond int
	LogLevel      string
	TLS           ClientTLSConfig
	Transport     ClientTransportConfig
}

// GetLink returns the configured link without leading slash or the default link
func (c *ClientConfig) GetLink() string {
	link := strings.TrimLeft(c.Link, "/")
	if link == "" {
		return DefaultLink
	}
	return link
}

// GetPort returns the configured port or the given default port
func (c *ClientConfig) GetPort(defaultPort uint) uint {
	if c.Port == 0 {
		return defaultPort
	}
	return c.Port
}

// Validate checks that all required fields are set
func (c *ClientConfig) Validate() error {
	if strings.TrimSpace(c.Hostname) == "" {
		return fmt.Errorf("no hostname provided")
	}
	if strings.IndexFunc(c.Hostname, invalidHeaderRune) >= 0 {
		return fmt.Errorf("invalid hostname %q", c.Hostname)
	}
	// The link is written verbatim into the request line
	if strings.IndexFunc(c.Link, invalidHeaderRune) >= 0 {
		return fmt.Errorf("invalid link %q: must not contain whitespace or control characters", c.Link)
	}
	if c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.TimeoutSecond < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return fmt.Errorf("client certificate requires both cert and key file")
	}
	return nil
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	port := "default"
	if c.Port != 0 {
		port = strconv.FormatUint(uint64(c.Port), 10)
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Hostname", c.Hostname)
	addField("Port", port)
	addField("Link", c.GetLink())
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// TLS
	addSection("TLS")
	addField("CA File", orDefault(c.TLS.CAFile, "system roots"))
	addField("Server Name", orDefault(c.TLS.ServerName, c.Hostname))
	addField("Client Cert", orDefault(c.TLS.CertFile, "none"))
	addField("Pinned Certs", strconv.Itoa(len(c.TLS.PinnedSHA256)))

	// TCP
	addSection("TCP")
	addField("No Delay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("Keep Alive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))

	return sb.String()
}

func invalidHeaderRune(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsControl(r)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
