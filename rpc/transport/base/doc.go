// Package base provides the JSON-RPC session shared by all connection
// variants of the Scalaris client, independent of the specific transport
// (TLS, plain TCP). It serves as a base layer that is composed with
// protocol-specific connectors.
//
// The package focuses on:
//   - Eager connection setup: resolution, connect and upgrade happen in
//     NewBaseConnection, which returns an open connection or an error
//   - Framing of JSON-RPC calls as HTTP/1.1 POST requests on a persistent stream
//   - Decoding of responses and classification of failures
//   - Deterministic release of the socket on Close or on fatal errors
//
// Key Components:
//
//   - clientConnection: Implements transport.IConnection. Requests carry a
//     per connection id which the response has to echo (if it carries one).
//
//   - ProcessResult: Maps a decoded response to its result member, a
//     RemoteError or a ProtocolError.
//
// Error Handling:
//
//	Transport and TLS errors close the connection, later calls fail fast with
//	common.ErrConnectionClosed. Protocol errors close the connection only if
//	the stream is out of step (unparsable frame, foreign response id).
//	Remote errors leave the connection usable.
//
// Thread Safety:
//
//	A connection models one session with one call in flight. A concurrent
//	call fails with common.ErrConnectionBusy. IsOpen, GetPort and Close may
//	be called from any goroutine, but closing a connection while a call is
//	in flight must be avoided by the caller.
package base
