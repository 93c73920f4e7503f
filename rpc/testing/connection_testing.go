package testing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/scalaris-team/scalaris-go/rpc/common"
	"github.com/scalaris-team/scalaris-go/rpc/transport"
)

// ConnectionFactory is a function that opens a connection with the given configuration
type ConnectionFactory func(config common.ClientConfig) (transport.IConnection, error)

// RunConnectionTests runs a comprehensive test suite for a connection implementation.
// useTLS selects whether the mock server speaks TLS.
func RunConnectionTests(t *testing.T, name string, useTLS bool, factory ConnectionFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Lifecycle", func(t *testing.T) {
			testLifecycle(t, useTLS, factory)
		})

		t.Run("Ping", func(t *testing.T) {
			testPing(t, useTLS, factory)
		})

		t.Run("Envelope", func(t *testing.T) {
			testEnvelope(t, useTLS, factory)
		})

		t.Run("RemoteError", func(t *testing.T) {
			testRemoteError(t, useTLS, factory)
		})

		t.Run("ResultIdentity", func(t *testing.T) {
			testResultIdentity(t, useTLS, factory)
		})

		t.Run("MissingResult", func(t *testing.T) {
			testMissingResult(t, useTLS, factory)
		})

		t.Run("MalformedResponse", func(t *testing.T) {
			testMalformedResponse(t, useTLS, factory)
		})

		t.Run("ForeignID", func(t *testing.T) {
			testForeignID(t, useTLS, factory)
		})

		t.Run("ShortRead", func(t *testing.T) {
			testShortRead(t, useTLS, factory)
		})

		t.Run("ChunkedResponse", func(t *testing.T) {
			testChunkedResponse(t, useTLS, factory)
		})

		t.Run("WriteFailure", func(t *testing.T) {
			testWriteFailure(t, useTLS, factory)
		})

		t.Run("Timeout", func(t *testing.T) {
			testTimeout(t, useTLS, factory)
		})

		t.Run("ServerClosesSession", func(t *testing.T) {
			testServerClosesSession(t, useTLS, factory)
		})

		t.Run("Busy", func(t *testing.T) {
			testBusy(t, useTLS, factory)
		})

		t.Run("Unreachable", func(t *testing.T) {
			testUnreachable(t, factory)
		})

		t.Run("Resolution", func(t *testing.T) {
			testResolution(t, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Assertions
// --------------------------------------------------------------------------

// AssertTransportError fails the test if err is not a TransportError with the given reason
func AssertTransportError(t *testing.T, err error, reason common.TransportReason) {
	t.Helper()
	var te *common.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Expected TransportError (%s), got %T: %v", reason, err, err)
	}
	if te.Reason != reason {
		t.Fatalf("Expected TransportError reason %s, got %s (%v)", reason, te.Reason, err)
	}
}

// AssertProtocolError fails the test if err is not a ProtocolError with the given reason
func AssertProtocolError(t *testing.T, err error, reason common.ProtocolReason) {
	t.Helper()
	var pe *common.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected ProtocolError (%s), got %T: %v", reason, err, err)
	}
	if pe.Reason != reason {
		t.Fatalf("Expected ProtocolError reason %s, got %s (%v)", reason, pe.Reason, err)
	}
}

// --------------------------------------------------------------------------
// Test Cases
// --------------------------------------------------------------------------

func open(t *testing.T, useTLS bool, factory ConnectionFactory) (*Server, transport.IConnection) {
	t.Helper()
	srv := NewServer(useTLS)
	srv.Handle("ping", func(json.RawMessage) (any, *common.ErrorObject) {
		return 42, nil
	})

	conn, err := factory(srv.Config())
	if err != nil {
		srv.Close()
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		srv.Close()
	})
	return srv, conn
}

func testLifecycle(t *testing.T, useTLS bool, factory ConnectionFactory) {
	srv, conn := open(t, useTLS, factory)

	if !conn.IsOpen() {
		t.Fatal("Connection should be open after construction")
	}
	if conn.GetPort() != srv.Port() {
		t.Errorf("GetPort() = %d, expected %d", conn.GetPort(), srv.Port())
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}
	if conn.IsOpen() {
		t.Fatal("Connection should be closed after Close()")
	}

	// Close is idempotent
	if err := conn.Close(); err != nil {
		t.Fatalf("Second Close() returned error: %v", err)
	}
	if conn.IsOpen() {
		t.Fatal("Connection should stay closed after second Close()")
	}
	if conn.GetPort() != srv.Port() {
		t.Errorf("GetPort() changed after Close(): %d", conn.GetPort())
	}

	// Calls on a closed connection fail fast
	if _, err := conn.ExecCall("ping", []any{}); !errors.Is(err, common.ErrConnectionClosed) {
		t.Fatalf("Expected ErrConnectionClosed, got %v", err)
	}
	if srv.Calls("ping") != 0 {
		t.Errorf("Server should not have received a call, got %d", srv.Calls("ping"))
	}
}

func testPing(t *testing.T, useTLS bool, factory ConnectionFactory) {
	srv, conn := open(t, useTLS, factory)

	// The session is reused for several calls
	for i := 0; i < 3; i++ {
		result, err := conn.ExecCall("ping", []any{})
		if err != nil {
			t.Fatalf("ExecCall(ping) failed: %v", err)
		}
		if string(result) != "42" {
			t.Fatalf("ExecCall(ping) = %s, expected 42", result)
		}
	}
	if srv.Calls("ping") != 3 {
		t.Errorf("Expected 3 calls, server received %d", srv.Calls("ping"))
	}
	if !conn.IsOpen() {
		t.Error("Connection should still be open")
	}
}

func testEnvelope(t *testing.T, useTLS bool, factory ConnectionFactory) {
	srv, conn := open(t, useTLS, factory)

	if _, err := conn.ExecCall("ping", nil); err != nil {
		t.Fatalf("ExecCall(ping) failed: %v", err)
	}
	first := srv.LastCall()
	if first.JSONRPC != common.Version {
		t.Errorf("Expected version %s, got %q", common.Version, first.JSONRPC)
	}
	if string(first.Params) != "[]" {
		t.Errorf("nil params should be sent as [], got %s", first.Params)
	}

	if _, err := conn.ExecCall("ping", []any{"a", 1}); err != nil {
		t.Fatalf("ExecCall(ping) failed: %v", err)
	}
	second := srv.LastCall()
	if string(second.Params) != `["a",1]` {
		t.Errorf("Unexpected params %s", second.Params)
	}
	if string(first.ID) == string(second.ID) {
		t.Errorf("Request ids should differ, both are %s", first.ID)
	}
}

func testRemoteError(t *testing.T, useTLS bool, factory ConnectionFactory) {
	_, conn := open(t, useTLS, factory)

	result, err := conn.ExecCall("bogus", []any{})
	if result != nil {
		t.Errorf("Error response must not yield a value, got %s", result)
	}
	var re *common.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("Expected RemoteError, got %T: %v", err, err)
	}
	if re.Code != -32601 || re.Message != "method not found" {
		t.Errorf("Unexpected remote error: code=%d message=%q", re.Code, re.Message)
	}

	// The connection stays usable
	if !conn.IsOpen() {
		t.Fatal("Connection should stay open after a remote error")
	}
	if _, err := conn.ExecCall("ping", []any{}); err != nil {
		t.Fatalf("ExecCall(ping) after remote error failed: %v", err)
	}
}

func testResultIdentity(t *testing.T, useTLS bool, factory ConnectionFactory) {
	srv, conn := open(t, useTLS, factory)

	results := []string{
		`{"a":[1,2.5,-3e+21,{"b":"cé"}],"d":null,"e":true}`,
		`[[],{},"",0]`,
		`"plain string"`,
		`12345678901234567890`,
		`null`,
	}
	for i, result := range results {
		srv.HandleRaw("echo", `{"jsonrpc":"2.0","result":`+result+`}`)

		got, err := conn.ExecCall("echo", []any{i})
		if err != nil {
			t.Fatalf("ExecCall(echo) failed for %s: %v", result, err)
		}
		if string(got) != result {
			t.Errorf("Result changed in transit:\nExpected: %s\nGot: %s", result, got)
		}
	}
}

func testMissingResult(t *testing.T, useTLS bool, factory ConnectionFactory) {
	srv, conn := open(t, useTLS, factory)
	srv.HandleRaw("empty", `{"jsonrpc":"2.0","id":null}`)

	_, err := conn.ExecCall("empty", []any{})
	AssertProtocolError(t, err, common.ReasonMissingResult)

	if !conn.IsOpen() {
		t.Fatal("Connection should stay open after a missing result")
	}
	if _, err := conn.ExecCall("ping", []any{}); err != nil {
		t.Fatalf("ExecCall(ping) after missing result failed: %v", err)
	}
}

func testMalformedResponse(t *testing.T, useTLS bool, factory ConnectionFactory) {
	srv, conn := open(t, useTLS, factory)
	srv.HandleRaw("garbage", `{"result": 4`)

	_, err := conn.ExecCall("garbage", []any{})
	AssertProtocolError(t, err, common.ReasonMalformedResponse)

	// The frame was complete, the session is still in step
	if !conn.IsOpen() {
		t.Fatal("Connection should stay open after a malformed body")
	}
	if _, err := conn.ExecCall("ping", []any{}); err != nil {
		t.Fatalf("ExecCall(ping) after malformed body failed: %v", err)
	}
}

func testForeignID(t *testing.T, useTLS bool, factory ConnectionFactory) {
	srv, conn := open(t, useTLS, factory)
	srv.HandleRaw("stale", `{"jsonrpc":"2.0","result":1,"id":999999}`)

	_, err := conn.ExecCall("stale", []any{})
	AssertProtocolError(t, err, common.ReasonMalformedResponse)

	if conn.IsOpen() {
		t.Fatal("Connection should be closed after a foreign response id")
	}
	if _, err := conn.ExecCall("ping", []any{}); !errors.Is(err, common.ErrConnectionClosed) {
		t.Fatalf("Expected ErrConnectionClosed, got %v", err)
	}
}

func testShortRead(t *testing.T, useTLS bool, factory ConnectionFactory) {
	srv, conn := open(t, useTLS, factory)
	srv.HandleHTTP("truncated", func(w http.ResponseWriter, _ *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			http.Error(w, "hijacking not supported", http.StatusInternalServerError)
			return
		}
		raw, buf, err := hj.Hijack()
		if err != nil {
			return
		}
		_, _ = buf.WriteString("HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: 100\r\n\r\n{\"result\":")
		_ = buf.Flush()
		_ = raw.Close()
	})

	_, err := conn.ExecCall("truncated", []any{})
	AssertTransportError(t, err, common.ReasonShortRead)

	if conn.IsOpen() {
		t.Fatal("Connection should be closed after a transport error")
	}
	if _, err := conn.ExecCall("ping", []any{}); !errors.Is(err, common.ErrConnectionClosed) {
		t.Fatalf("Expected ErrConnectionClosed, got %v", err)
	}
}

func testChunkedResponse(t *testing.T, useTLS bool, factory ConnectionFactory) {
	srv, conn := open(t, useTLS, factory)
	srv.HandleHTTP("chunked", func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "flushing not supported", http.StatusInternalServerError)
			return
		}
		// Without Content-Length every flush is sent as a separate chunk
		w.Header().Set("Content-Type", "application/json")
		parts := []string{
			`{"jsonrpc":"2.0",`,
			`"result":{"list":[1,2,3],`,
			`"s":"chunked"}`,
			`,"id":` + string(CallFromContext(r).ID) + `}`,
		}
		for _, part := range parts {
			_, _ = io.WriteString(w, part)
			flusher.Flush()
		}
	})

	result, err := conn.ExecCall("chunked", []any{})
	if err != nil {
		t.Fatalf("ExecCall(chunked) failed: %v", err)
	}
	if string(result) != `{"list":[1,2,3],"s":"chunked"}` {
		t.Errorf("Unexpected result %s", result)
	}

	// The chunked body was consumed completely, the session is still in step
	if _, err := conn.ExecCall("ping", []any{}); err != nil {
		t.Fatalf("ExecCall(ping) after chunked response failed: %v", err)
	}
}

// failingConn fails every Write once armed
type failingConn struct {
	net.Conn
	armed *atomic.Bool
}

func (c *failingConn) Write(p []byte) (int, error) {
	if c.armed.Load() {
		return 0, errors.New("broken pipe")
	}
	return c.Conn.Write(p)
}

func testWriteFailure(t *testing.T, useTLS bool, factory ConnectionFactory) {
	srv := NewServer(useTLS)
	srv.Handle("ping", func(json.RawMessage) (any, *common.ErrorObject) {
		return 42, nil
	})
	defer srv.Close()

	var armed atomic.Bool
	config := srv.Config()
	config.Transport.Dial = func(ctx context.Context, network, address string) (net.Conn, error) {
		var dialer net.Dialer
		raw, err := dialer.DialContext(ctx, network, address)
		if err != nil {
			return nil, err
		}
		return &failingConn{Conn: raw, armed: &armed}, nil
	}

	conn, err := factory(config)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	if _, err := conn.ExecCall("ping", []any{}); err != nil {
		t.Fatalf("ExecCall(ping) failed: %v", err)
	}

	armed.Store(true)
	_, err = conn.ExecCall("ping", []any{})
	AssertTransportError(t, err, common.ReasonWrite)

	if conn.IsOpen() {
		t.Fatal("Connection should be closed after a failed write")
	}
	if _, err := conn.ExecCall("ping", []any{}); !errors.Is(err, common.ErrConnectionClosed) {
		t.Fatalf("Expected ErrConnectionClosed, got %v", err)
	}
	if srv.Calls("ping") != 1 {
		t.Errorf("Server should have received exactly one call, got %d", srv.Calls("ping"))
	}
}

func testTimeout(t *testing.T, useTLS bool, factory ConnectionFactory) {
	srv := NewServer(useTLS)
	release := make(chan struct{})
	srv.Handle("slow", func(json.RawMessage) (any, *common.ErrorObject) {
		<-release
		return "late", nil
	})
	defer srv.Close()
	defer close(release)

	config := srv.Config()
	config.TimeoutSecond = 1
	conn, err := factory(config)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	_, err = conn.ExecCall("slow", []any{})
	AssertTransportError(t, err, common.ReasonTimeout)

	if conn.IsOpen() {
		t.Fatal("Connection should be closed after a timeout")
	}
}

func testServerClosesSession(t *testing.T, useTLS bool, factory ConnectionFactory) {
	srv, conn := open(t, useTLS, factory)
	srv.HandleHTTP("last", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Connection", "close")
		WriteJSON(w, map[string]any{"jsonrpc": common.Version, "result": "bye", "id": CallFromContext(r).ID})
	})

	result, err := conn.ExecCall("last", []any{})
	if err != nil {
		t.Fatalf("ExecCall(last) failed: %v", err)
	}
	if string(result) != `"bye"` {
		t.Errorf("Unexpected result %s", result)
	}
	if conn.IsOpen() {
		t.Fatal("Connection should be closed after the server closed the session")
	}
}

func testBusy(t *testing.T, useTLS bool, factory ConnectionFactory) {
	srv, conn := open(t, useTLS, factory)

	entered := make(chan struct{})
	release := make(chan struct{})
	srv.Handle("slow", func(json.RawMessage) (any, *common.ErrorObject) {
		close(entered)
		<-release
		return "done", nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := conn.ExecCall("slow", []any{})
		done <- err
	}()

	<-entered
	if _, err := conn.ExecCall("ping", []any{}); !errors.Is(err, common.ErrConnectionBusy) {
		t.Errorf("Expected ErrConnectionBusy, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("First call failed: %v", err)
	}

	// The session is usable again
	if _, err := conn.ExecCall("ping", []any{}); err != nil {
		t.Fatalf("ExecCall(ping) after busy call failed: %v", err)
	}
}

func testUnreachable(t *testing.T, factory ConnectionFactory) {
	// Reserve a port and release it again, nothing listens there afterwards
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to reserve port: %v", err)
	}
	port := uint(listener.Addr().(*net.TCPAddr).Port)
	_ = listener.Close()

	conn, err := factory(common.ClientConfig{Hostname: "127.0.0.1", Port: port, TimeoutSecond: 2})
	if conn != nil {
		t.Fatal("No connection must be returned if connecting fails")
	}
	AssertTransportError(t, err, common.ReasonConnect)
}

func testResolution(t *testing.T, factory ConnectionFactory) {
	config := common.ClientConfig{
		Hostname: "store.example.org",
		Transport: common.ClientTransportConfig{
			Resolver: StaticResolver{},
		},
	}

	conn, err := factory(config)
	if conn != nil {
		t.Fatal("No connection must be returned if resolution fails")
	}
	AssertTransportError(t, err, common.ReasonResolution)
}
