// Package testing provides a mock JSON-RPC server and a standardised test
// suite for implementations of the transport.IConnection interface.
//
// The package contains:
//   - Server: An HTTP/1.1 JSON-RPC endpoint (plain or TLS) built on
//     net/http/httptest with a registry of method handlers
//   - RunConnectionTests: A test suite validating the connection contract
//     (lifecycle, framing, result decoding and error classification)
//   - StaticResolver / RedirectDial: Hooks to connect to the mock server
//     under an arbitrary hostname
//
// Example usage:
//
//	func Test(t *testing.T) {
//		rpctesting.RunConnectionTests(t, "SSLConnection", true, func(config common.ClientConfig) (transport.IConnection, error) {
//			return ssl.NewSSLConnection(config)
//		})
//	}
package testing
