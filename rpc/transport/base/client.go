package base

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/scalaris-team/scalaris-go/rpc/common"
	"github.com/scalaris-team/scalaris-go/rpc/serializer"
	"github.com/scalaris-team/scalaris-go/rpc/transport"
)

var Logger = logger.GetLogger(common.LoggerTransport)

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientConnection implements a JSON-RPC session independent of the
// transport medium (tls, tcp). The transport specific steps are delegated
// to the connector.
type clientConnection struct {
	connector  transport.IClientConnector
	config     common.ClientConfig
	serializer serializer.IRPCSerializer
	host       string // value of the Host header
	link       string
	port       uint

	stateMu sync.Mutex // Protects conn, reader and rec
	conn    net.Conn
	reader  *bufio.Reader
	rec     *errRecorder

	busy          atomic.Bool // Set while a call is in flight
	nextRequestID uint64      // Only modified while busy is set
}

// -----------------------------------------------------------
// Connection Factory Method (used for ssl, tcp)
// -----------------------------------------------------------

// NewBaseConnection resolves the configured hostname, connects to the first
// reachable address and upgrades the connection with the connector.
// It returns an open connection or an error, never a partially opened one.
func NewBaseConnection(
	ctx context.Context,
	connector transport.IClientConnector,
	config common.ClientConfig,
	serializer serializer.IRPCSerializer,
) (conn transport.IConnection, err error) {
	defer func() { common.RecordConnect(connector.GetName(), err) }()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}
	if serializer == nil {
		return nil, fmt.Errorf("no serializer provided")
	}

	port := config.GetPort(connector.DefaultPort())
	c := &clientConnection{
		connector:     connector,
		config:        config,
		serializer:    serializer,
		host:          net.JoinHostPort(config.Hostname, strconv.FormatUint(uint64(port), 10)),
		link:          config.GetLink(),
		port:          port,
		nextRequestID: 1,
	}

	// Bound resolution, connect and handshake together
	if config.TimeoutSecond > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(config.TimeoutSecond)*time.Second)
		defer cancel()
	}

	addrs, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := c.dial(ctx, addrs)
	if err != nil {
		return nil, err
	}

	// Upgrade the connection with protocol-specific settings
	upgraded, err := connector.UpgradeConnection(ctx, raw, config)
	if err != nil {
		_ = raw.Close()
		var tlsErr *common.TLSError
		if errors.As(err, &tlsErr) {
			Logger.Warningf("Handshake with %s failed: %v", c.host, err)
			return nil, err
		}
		return nil, &common.TransportError{Reason: common.ReasonConnect, Addr: c.host, Err: err}
	}

	c.conn = upgraded
	c.reader, c.rec = newFrameReader(upgraded)

	Logger.Infof("Connected to %s (%s) using %s transport", c.host, upgraded.RemoteAddr(), connector.GetName())
	return c, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IConnection)
// --------------------------------------------------------------------------

func (c *clientConnection) ExecCall(method string, params any) (result json.RawMessage, err error) {
	// One logical session allows one call at a time
	if !c.busy.CompareAndSwap(false, true) {
		return nil, common.ErrConnectionBusy
	}
	defer c.busy.Store(false)

	start := time.Now()
	defer func() {
		common.RecordCall(c.connector.GetName(), method, start, err)
		if err != nil {
			Logger.Debugf("Call %s on %s failed after %s: %v", method, c.host, time.Since(start), err)
		} else {
			Logger.Debugf("Call %s on %s took %s", method, c.host, time.Since(start))
		}
	}()

	conn, reader, rec := c.session()
	if conn == nil {
		return nil, common.ErrConnectionClosed
	}

	// Build the request
	requestID := c.nextRequestID
	c.nextRequestID++
	body, err := c.serializer.Serialize(*common.NewRequest(requestID, method, params))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize request %s: %w", method, err)
	}

	// Set timeout if configured, otherwise reads may block indefinitely
	if err := c.setDeadline(conn); err != nil {
		c.shutdown()
		return nil, c.transportError(common.ReasonWrite, err)
	}

	// Write the framed request
	if err := writeFrame(conn, c.host, c.link, body); err != nil {
		c.shutdown()
		return nil, c.transportError(common.ReasonWrite, err)
	}

	// Read the framed response
	frame, err := readFrame(reader, rec)
	if err != nil {
		c.shutdown()
		return nil, c.classifyReadError(err)
	}

	// The server announced that it closes the session after this response
	if !frame.keepAlive {
		Logger.Debugf("Server %s closed the session", c.host)
		defer c.shutdown()
	}

	return c.processFrame(frame, requestID)
}

func (c *clientConnection) IsOpen() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.conn != nil
}

func (c *clientConnection) Close() error {
	c.shutdown()
	return nil
}

func (c *clientConnection) GetPort() uint {
	return c.port
}

// --------------------------------------------------------------------------
// Result Processing
// --------------------------------------------------------------------------

// ProcessResult returns the result member of resp unchanged. An error member
// is returned as *common.RemoteError and a missing result member as
// *common.ProtocolError. An error response never yields a value.
func ProcessResult(resp common.Response) (json.RawMessage, error) {
	if resp.HasError() {
		return nil, decodeRemoteError(resp.Error)
	}
	if !resp.HasResult() {
		return nil, &common.ProtocolError{Reason: common.ReasonMissingResult}
	}
	return resp.Result, nil
}

// decodeRemoteError converts the error member of a response. Members that
// are not a JSON-RPC error object are kept as message.
// The serializer only splits the envelope into raw members, so the member
// itself is decoded with encoding/json whichever serializer is configured.
func decodeRemoteError(raw json.RawMessage) *common.RemoteError {
	var obj common.ErrorObject
	if err := json.Unmarshal(raw, &obj); err == nil {
		return &common.RemoteError{Code: obj.Code, Message: obj.Message, Data: obj.Data}
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return &common.RemoteError{Message: msg}
	}
	return &common.RemoteError{Message: string(raw)}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// processFrame decodes the body of a response frame and checks the id
func (c *clientConnection) processFrame(frame *responseFrame, requestID uint64) (json.RawMessage, error) {
	var resp common.Response
	if err := c.serializer.Deserialize(frame.body, &resp); err != nil {
		detail := ""
		if frame.status/100 != 2 {
			detail = fmt.Sprintf("HTTP status %d", frame.status)
		}
		return nil, &common.ProtocolError{Reason: common.ReasonMalformedResponse, Detail: detail, Err: err}
	}

	// A foreign id means the stream is out of step with the calls
	if resp.ID != nil && !common.IsNull(resp.ID) && !matchesID(resp.ID, requestID) {
		c.shutdown()
		return nil, &common.ProtocolError{
			Reason: common.ReasonMalformedResponse,
			Detail: fmt.Sprintf("response id %s does not match request id %d", resp.ID, requestID),
		}
	}

	return ProcessResult(resp)
}

// matchesID compares a response id with the numeric request id. Servers
// may echo the id as number or as string.
func matchesID(raw json.RawMessage, requestID uint64) bool {
	want := strconv.FormatUint(requestID, 10)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == want
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String() == want
	}
	return false
}

// resolve looks up all addresses of the configured hostname
func (c *clientConnection) resolve(ctx context.Context) ([]string, error) {
	var resolver common.Resolver = net.DefaultResolver
	if c.config.Transport.Resolver != nil {
		resolver = c.config.Transport.Resolver
	}

	addrs, err := resolver.LookupHost(ctx, c.config.Hostname)
	if err == nil && len(addrs) == 0 {
		err = fmt.Errorf("no addresses found")
	}
	if err != nil {
		return nil, &common.TransportError{Reason: common.ReasonResolution, Addr: c.config.Hostname, Err: err}
	}
	return addrs, nil
}

// dial connects to the first reachable address
func (c *clientConnection) dial(ctx context.Context, addrs []string) (net.Conn, error) {
	port := strconv.FormatUint(uint64(c.port), 10)

	var lastErr error
	for _, addr := range addrs {
		address := net.JoinHostPort(addr, port)
		conn, err := c.connector.Connect(ctx, address, c.config)
		if err == nil {
			return conn, nil
		}
		Logger.Debugf("Failed to connect to %s: %v", address, err)
		lastErr = err
	}
	return nil, &common.TransportError{Reason: common.ReasonConnect, Addr: c.host, Err: lastErr}
}

// session returns the current connection and its reader (nil if closed)
func (c *clientConnection) session() (net.Conn, *bufio.Reader, *errRecorder) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.conn, c.reader, c.rec
}

// shutdown closes the connection if it is still open. For tls connections
// this sends the close_notify alert before the socket is closed.
func (c *clientConnection) shutdown() {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		Logger.Debugf("Error while closing connection to %s: %v", c.host, err)
	}
	c.conn = nil
	c.reader = nil
	c.rec = nil
	Logger.Infof("Closed connection to %s", c.host)
}

// setDeadline bounds the next round trip if a timeout is configured
func (c *clientConnection) setDeadline(conn net.Conn) error {
	if c.config.TimeoutSecond > 0 {
		return conn.SetDeadline(time.Now().Add(time.Duration(c.config.TimeoutSecond) * time.Second))
	}
	return conn.SetDeadline(time.Time{})
}

// transportError wraps err, timeouts are reported as such
func (c *clientConnection) transportError(reason common.TransportReason, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		reason = common.ReasonTimeout
	}
	return &common.TransportError{Reason: reason, Addr: c.host, Err: err}
}

// classifyReadError maps a failed response read to the error taxonomy
func (c *clientConnection) classifyReadError(err error) error {
	var frameErr *frameError
	if errors.As(err, &frameErr) {
		return &common.ProtocolError{Reason: common.ReasonMalformedResponse, Err: frameErr.err}
	}
	return c.transportError(common.ReasonShortRead, err)
}
