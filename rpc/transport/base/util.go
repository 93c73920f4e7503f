package base

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/scalaris-team/scalaris-go/rpc/common"
)

// responseFrame is a complete HTTP response read from the stream
type responseFrame struct {
	status    int
	keepAlive bool
	body      []byte
}

// frameError marks a response that could not be parsed as HTTP. The stream
// is in an indeterminate state afterwards.
type frameError struct {
	err error
}

func (e *frameError) Error() string { return fmt.Sprintf("malformed response frame: %v", e.err) }

func (e *frameError) Unwrap() error { return e.err }

// errRecorder remembers the last error of the underlying stream, so that
// read failures can be told apart from parse failures
type errRecorder struct {
	r   io.Reader
	err error
}

func (e *errRecorder) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil {
		e.err = err
	}
	return n, err
}

// newFrameReader creates the buffered reader used for the lifetime of a session
func newFrameReader(conn net.Conn) (*bufio.Reader, *errRecorder) {
	rec := &errRecorder{r: conn}
	return bufio.NewReader(rec), rec
}

// writeFrame writes a JSON-RPC request as HTTP/1.1 POST:
//
//	POST /<link> HTTP/1.1
//	Host: <host>
//	Content-Type: application/json
//	Content-Length: <len(body)>
//	Connection: keep-alive
//
//	<body>
func writeFrame(conn net.Conn, host, link string, body []byte) error {
	header := fmt.Sprintf("POST /%s HTTP/1.1\r\n"+
		"Host: %s\r\n"+
		"Content-Type: application/json\r\n"+
		"Accept: application/json\r\n"+
		"Content-Length: %d\r\n"+
		"Connection: keep-alive\r\n"+
		"\r\n", link, host, len(body))

	// A single write keeps header and body in one TLS record
	frame := make([]byte, 0, len(header)+len(body))
	frame = append(frame, header...)
	frame = append(frame, body...)
	_, err := conn.Write(frame)
	return err
}

// ApplyTCPOptions applies the socket settings of the configuration to a TCP
// connection. Other connection types are left untouched.
func ApplyTCPOptions(conn net.Conn, config common.ClientConfig) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil // Not a TCP connection, nothing to upgrade
	}

	// Disable Nagle's algorithm (TCPNoDelay) if configured
	if err := tcpConn.SetNoDelay(config.Transport.TCPNoDelay); err != nil {
		return err
	}

	// Enable TCP keep-alive if configured
	if config.Transport.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		keepAlivePeriod := time.Duration(config.Transport.TCPKeepAliveSec) * time.Second
		if err := tcpConn.SetKeepAlivePeriod(keepAlivePeriod); err != nil {
			return err
		}
	}

	return nil
}

// Dial opens a TCP connection using the dial hook of the configuration or a net.Dialer
func Dial(ctx context.Context, address string, config common.ClientConfig) (net.Conn, error) {
	if config.Transport.Dial != nil {
		return config.Transport.Dial(ctx, "tcp", address)
	}
	var dialer net.Dialer
	return dialer.DialContext(ctx, "tcp", address)
}

// readFrame reads one complete HTTP response (header section and body).
// Errors of the underlying stream are returned as they are, everything
// else is returned as *frameError.
func readFrame(reader *bufio.Reader, rec *errRecorder) (*responseFrame, error) {
	rec.err = nil

	resp, err := http.ReadResponse(reader, nil)
	if err != nil {
		return nil, streamOrFrameError(err, rec)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, streamOrFrameError(err, rec)
	}

	return &responseFrame{
		status:    resp.StatusCode,
		keepAlive: !resp.Close,
		body:      body,
	}, nil
}

// streamOrFrameError classifies a failed read. EOF before the frame is
// complete is a stream failure.
func streamOrFrameError(err error, rec *errRecorder) error {
	if rec.err != nil {
		if rec.err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		return rec.err
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return io.ErrUnexpectedEOF
	}
	return &frameError{err: err}
}
