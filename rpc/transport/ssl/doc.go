// Package ssl implements the TLS secured connection to a Scalaris node.
// It provides a concrete implementation of the transport.IClientConnector
// interface that is composed with the base package's JSON-RPC session.
//
// The connection is established eagerly: NewSSLConnection resolves the
// hostname, connects to the node (port 8443 unless configured otherwise),
// and completes the TLS handshake before it returns.
//
// Certificate Verification:
//
//	The chain presented by the server is verified against the configured
//	roots (CAFile / RootCAs, system roots otherwise) and the server name.
//	Afterwards the verify callback is invoked once per certificate, from the
//	top of the chain down to the server certificate, with the outcome of
//	that verification as preverified flag. A single rejection aborts the
//	handshake with a common.TLSError.
//
//	  - DefaultVerifyCallback returns preverified unchanged and logs the
//	    certificate at debug level.
//	  - PinnedVerifyCallback additionally accepts chains containing a pinned
//	    certificate.
//
// Usage:
//
//	conn, err := ssl.NewSSLConnection(common.ClientConfig{Hostname: "localhost"})
//	if err != nil {
//	  return err
//	}
//	defer conn.Close()
//	result, err := conn.ExecCall("nop", []any{"value"})
package ssl
