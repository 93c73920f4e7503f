// Package store provides the high-level interface for the single-key
// operations of a Scalaris node and the unified error reporting used by
// its implementations.
//
// The package focuses on:
//   - A unified interface (IStore) for key-value operations, independent of
//     the connection variant (TLS or plain TCP) used underneath
//   - Typed return codes for the failures Scalaris reports
//
// Key Components:
//
//   - IStore Interface: The core abstraction defining read, write,
//     test_and_set, add_on_nr, add_del_on_list and nop. Values are JSON
//     values and are passed through without interpretation.
//
//   - ITransaction Interface: Reads and writes committed atomically. A
//     conflicting commit fails with RetCAbort.
//
//   - Error System: A structured error reporting mechanism using typed error
//     codes (RetCode) and descriptive messages. Reasons sent by Scalaris
//     ("not_found", "abort", "key_changed", "not_a_list", "not_a_number")
//     map to RetCNotFound, RetCAbort, RetCKeyChanged, RetCNotAList and
//     RetCNotANumber. Connection failures are not wrapped in Error, they are
//     returned as the error types of the rpc/common package.
//
// Implementations:
//
//	The RPC store in "github.com/scalaris-team/scalaris-go/rpc/client"
//	implements IStore and ITransaction on top of a transport.IConnection.
package store
