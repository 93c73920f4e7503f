// Package rpc provides the client side of the Scalaris JSON-RPC API. It acts
// as the communication layer between applications and Scalaris nodes.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the JSON-RPC envelopes, configuration structures, the error
//     taxonomy, logging and metrics.
//
//   - transport: Connection abstractions with two implementations built on a
//     shared base (TLS secured TCP in ssl, plain TCP in tcp).
//
//   - serializer: Encoding of requests and decoding of responses with multiple
//     JSON implementations (encoding/json, jsoniter, goccy/go-json).
//
//   - client: RPC client implementing the store interface on top of a connection.
//
//   - testing: A mock JSON-RPC server and a conformance suite for connection
//     implementations.
package rpc
