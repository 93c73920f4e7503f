package testing

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/scalaris-team/scalaris-go/rpc/common"
)

// HandlerFunc answers a JSON-RPC call. A non nil error object is sent as error member.
type HandlerFunc func(params json.RawMessage) (result any, rpcErr *common.ErrorObject)

// Call is a request as received by the Server
type Call struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      json.RawMessage `json:"id"`
}

// Server is a JSON-RPC endpoint speaking HTTP/1.1 (optionally over TLS) for tests
type Server struct {
	Link     string
	server   *httptest.Server
	handlers *xsync.MapOf[string, http.HandlerFunc]
	calls    *xsync.MapOf[string, *atomic.Int64]
	last     atomic.Pointer[Call]
}

// NewServer starts a server serving the default link. With useTLS the
// server presents the self-signed httptest certificate, valid for
// 127.0.0.1, ::1 and example.com.
func NewServer(useTLS bool) *Server {
	s := &Server{
		Link:     common.DefaultLink,
		handlers: xsync.NewMapOf[string, http.HandlerFunc](),
		calls:    xsync.NewMapOf[string, *atomic.Int64](),
	}
	if useTLS {
		s.server = httptest.NewTLSServer(http.HandlerFunc(s.serveHTTP))
	} else {
		s.server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	}
	return s
}

// Handle registers a JSON-RPC handler for method
func (s *Server) Handle(method string, handler HandlerFunc) {
	s.handlers.Store(method, func(w http.ResponseWriter, r *http.Request) {
		call := CallFromContext(r)
		result, rpcErr := handler(call.Params)
		resp := map[string]any{"jsonrpc": common.Version, "id": call.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		WriteJSON(w, resp)
	})
}

// HandleRaw registers a handler replying body verbatim with status 200
func (s *Server) HandleRaw(method, body string) {
	s.handlers.Store(method, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	})
}

// HandleHTTP registers a handler with full control over the HTTP response.
// The decoded call is available via CallFromContext.
func (s *Server) HandleHTTP(method string, handler http.HandlerFunc) {
	s.handlers.Store(method, handler)
}

// Calls returns how often method was called
func (s *Server) Calls(method string) int64 {
	counter, ok := s.calls.Load(method)
	if !ok {
		return 0
	}
	return counter.Load()
}

// LastCall returns the last decoded request (nil if none was received)
func (s *Server) LastCall() *Call {
	return s.last.Load()
}

// Port returns the port the server listens on
func (s *Server) Port() uint {
	_, port, _ := net.SplitHostPort(s.server.Listener.Addr().String())
	p, _ := strconv.ParseUint(port, 10, 16)
	return uint(p)
}

// Certificate returns the certificate of a TLS server (nil otherwise)
func (s *Server) Certificate() *x509.Certificate {
	return s.server.Certificate()
}

// RootCAs returns a pool trusting the certificate of a TLS server
func (s *Server) RootCAs() *x509.CertPool {
	pool := x509.NewCertPool()
	if cert := s.server.Certificate(); cert != nil {
		pool.AddCert(cert)
	}
	return pool
}

// EncodeCertificate returns cert PEM encoded, as expected in a CA file
func EncodeCertificate(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}

// Config returns a client configuration connecting to this server
func (s *Server) Config() common.ClientConfig {
	return common.ClientConfig{
		Hostname:      "127.0.0.1",
		Port:          s.Port(),
		Link:          s.Link,
		TimeoutSecond: 5,
		TLS: common.ClientTLSConfig{
			RootCAs: s.RootCAs(),
		},
		Transport: common.ClientTransportConfig{
			TCPNoDelay: true,
		},
	}
}

// CloseClientConnections closes all connections to the server
func (s *Server) CloseClientConnections() {
	s.server.CloseClientConnections()
}

// Close shuts the server down
func (s *Server) Close() {
	s.server.Close()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

type callKey struct{}

// CallFromContext returns the decoded call of a request passed to a HandleHTTP handler
func CallFromContext(r *http.Request) *Call {
	call, _ := r.Context().Value(callKey{}).(*Call)
	return call
}

func contextWithCall(r *http.Request, call *Call) context.Context {
	return context.WithValue(r.Context(), callKey{}, call)
}

// WriteJSON writes v as JSON body with status 200
func WriteJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/"+s.Link {
		http.NotFound(w, r)
		return
	}

	var call Call
	if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
		WriteJSON(w, map[string]any{
			"jsonrpc": common.Version,
			"id":      nil,
			"error":   common.ErrorObject{Code: -32700, Message: "parse error"},
		})
		return
	}
	s.last.Store(&call)
	counter, _ := s.calls.LoadOrCompute(call.Method, func() *atomic.Int64 { return &atomic.Int64{} })
	counter.Add(1)

	handler, ok := s.handlers.Load(call.Method)
	if !ok {
		WriteJSON(w, map[string]any{
			"jsonrpc": common.Version,
			"id":      call.ID,
			"error":   common.ErrorObject{Code: -32601, Message: "method not found"},
		})
		return
	}
	handler(w, r.WithContext(contextWithCall(r, &call)))
}
