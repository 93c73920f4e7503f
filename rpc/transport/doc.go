// Package transport defines the interfaces and abstractions for the JSON-RPC
// connections of the Scalaris client. It provides a common contract that all
// connection variants must fulfill, so RPC method wrappers do not depend on
// the security of the underlying channel.
//
// The package focuses on:
//   - Defining the connection capability used by the RPC method wrappers
//   - Separating the transport specific steps (dial, handshake) from the
//     shared JSON-RPC session logic
//
// Key Components:
//
//   - IConnection: One logical session to one server capable of executing
//     a named remote call. Implemented by base connections composed with a
//     connector (see the ssl and tcp packages).
//
//   - IClientConnector: Transport provider interface that opens the raw
//     stream and upgrades it (TLS handshake, socket options).
package transport
