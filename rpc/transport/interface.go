package transport

import (
	"context"
	"encoding/json"
	"net"

	"github.com/scalaris-team/scalaris-go/rpc/common"
)

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

// IConnection is one logical session to one JSON-RPC endpoint.
// A connection is not safe for concurrent calls: a call issued while another
// one is in flight fails with common.ErrConnectionBusy. Closing a connection
// while a call is in flight from another goroutine is the callers
// responsibility to avoid.
type IConnection interface {
	// ExecCall sends a named remote call and returns the raw result member
	ExecCall(method string, params any) (result json.RawMessage, err error)
	// IsOpen reports whether the session is established. It never blocks.
	IsOpen() bool
	// Close shuts the session down. Calling Close twice is a no-op.
	Close() error
	// GetPort returns the TCP port of the session
	GetPort() uint
}

// --------------------------------------------------------------------------
// Connector (transport provider)
// --------------------------------------------------------------------------

// IClientConnector defines the transport specific operations a connection is composed of
type IClientConnector interface {
	// GetName returns the name of the transport type (e.g., "ssl", "tcp")
	GetName() string

	// DefaultPort returns the port used if the configuration does not set one
	DefaultPort() uint

	// Connect establishes a single stream connection to address (host:port)
	Connect(ctx context.Context, address string, config common.ClientConfig) (net.Conn, error)

	// UpgradeConnection applies protocol-specific settings to an established
	// connection and returns the connection to use from then on
	UpgradeConnection(ctx context.Context, conn net.Conn, config common.ClientConfig) (net.Conn, error)
}
