// Package cmd implements the command-line interface for the Scalaris client.
// It provides a hierarchical command structure for interacting with a
// Scalaris node over its JSON-RPC API.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value operations (read, write, tas, add-on-nr,
//     add-del-on-list, nop) and the perf benchmark
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set as environment variable with the prefix
// SCALARIS_ (e.g. SCALARIS_HOSTNAME, SCALARIS_TLS_CA_FILE), .env and
// .env.local files are loaded on startup.
//
// See scalaris -help for a list of all commands.
package cmd
