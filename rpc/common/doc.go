// Package common provides core data structures and utilities shared across
// the Scalaris JSON-RPC client. It defines the wire envelopes, the error
// taxonomy and the configuration used by the transport and client packages.
//
// The package focuses on:
//   - JSON-RPC request and response envelopes
//   - Typed errors for transport, TLS, protocol and remote failures
//   - Configuration structures for client connections
//   - Custom logging implementation integrated with Dragonboat's logger package
//   - Call metrics in the Prometheus text format
//
// Key Components:
//
//   - Request / Response: A single JSON-RPC call and its decoded answer. The
//     response keeps the raw bytes of the result member so that callers
//     receive the payload exactly as the server sent it.
//
//   - TransportError, TLSError, ProtocolError, RemoteError: The error classes
//     returned by a connection. Transport and TLS errors leave the connection
//     closed, protocol and remote errors pertain to a single call.
//
//   - ClientConfig: Hostname, port, JSON-RPC link, timeouts and the TLS and
//     socket settings of one connection.
//
//   - CertificateContext / VerifyCallback: The per certificate hook invoked
//     during the TLS handshake.
//
//   - Logger: Custom logging implementation that integrates with Dragonboat's
//     logging system while providing consistent formatting across the application.
package common
