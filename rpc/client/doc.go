// Package client implements the RPC client for the Scalaris key-value store.
// It provides an implementation of the store.IStore interface that calls
// the JSON-RPC API of a Scalaris node over a transport.IConnection.
//
// The package focuses on:
//   - Mapping store operations to the JSON-RPC methods read, write,
//     test_and_set, add_on_nr, add_del_on_list and nop
//   - Transactions on top of req_list, carrying the transaction log
//     returned by the node from request to request
//   - Encoding values as {"type":"as_is","value":...}
//   - Conversion of {"status":"fail","reason":...} results into store.Error
//
// Key Components:
//
//   - NewRPCStore: Factory function that creates a client implementing the store.IStore
//     interface. This client forwards all operations to the node via the given
//     connection.
//
//   - NewRPCTransaction: Factory function for a store.ITransaction. Reads and
//     writes are sent as req_list requests, Commit fails with
//     store.RetCAbort if a concurrent transaction modified a key read before.
//
// Usage Example:
//
//	conn, err := ssl.NewSSLConnection(common.ClientConfig{
//		Hostname:      "localhost",
//		TimeoutSecond: 5,
//		TLS:           common.ClientTLSConfig{CAFile: "ca.pem"},
//	})
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	s, _ := client.NewRPCStore(conn)
//	_ = s.Write("mykey", "myvalue")
//	value, err := s.Read("mykey") // value == `"myvalue"`
//	if store.IsNotFound(err) {
//		// ...
//	}
//
//	tx, _ := client.NewRPCTransaction(conn)
//	_ = tx.Write("a", 1)
//	_ = tx.Write("b", 2)
//	if err := tx.Commit(); store.HasCode(err, store.RetCAbort) {
//		// retry
//	}
//
// Thread Safety:
//
//	The store inherits the rules of the connection: one call at a time. A
//	call issued while another one is in flight fails with
//	common.ErrConnectionBusy. Use one store (and connection) per goroutine.
package client
