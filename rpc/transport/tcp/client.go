package tcp

import (
	"context"
	"net"

	"github.com/scalaris-team/scalaris-go/rpc/common"
	"github.com/scalaris-team/scalaris-go/rpc/serializer"
	"github.com/scalaris-team/scalaris-go/rpc/transport"
	"github.com/scalaris-team/scalaris-go/rpc/transport/base"
)

// clientConnector implements the IClientConnector interface for plain TCP sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "tcp"
}

func (c *clientConnector) DefaultPort() uint {
	return common.DefaultTCPPort
}

func (c *clientConnector) Connect(ctx context.Context, address string, config common.ClientConfig) (net.Conn, error) {
	return base.Dial(ctx, address, config)
}

// UpgradeConnection applies performance optimizations to a TCP connection
func (c *clientConnector) UpgradeConnection(_ context.Context, conn net.Conn, config common.ClientConfig) (net.Conn, error) {
	if err := base.ApplyTCPOptions(conn, config); err != nil {
		return nil, err
	}
	return conn, nil
}

// --------------------------------------------------------------------------
// Connection Factory Methods
// --------------------------------------------------------------------------

// NewTCPConnection connects to the plaintext JSON-RPC endpoint of a Scalaris node
func NewTCPConnection(config common.ClientConfig) (transport.IConnection, error) {
	return DialTCP(context.Background(), config, serializer.NewJSONSerializer())
}

// DialTCP connects to the plaintext JSON-RPC endpoint with the given serializer
func DialTCP(ctx context.Context, config common.ClientConfig, s serializer.IRPCSerializer) (transport.IConnection, error) {
	return base.NewBaseConnection(ctx, &clientConnector{}, config, s)
}
