// Package tcp implements the plaintext connection to a Scalaris node. It
// provides a concrete implementation of the base package's connector
// interface without transport security.
//
// This package builds on the base package's JSON-RPC session. See the base
// package documentation for the framing and the error handling.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of transport.IClientConnector.
//     It applies the socket settings of the configuration (no-delay, keep-alive).
//
// The default port of the plaintext endpoint is 8000.
package tcp
