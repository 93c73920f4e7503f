// Package serializer provides the JSON codecs used by the Scalaris JSON-RPC
// client. It defines a common interface and multiple implementations for
// encoding requests and decoding responses.
//
// The package focuses on:
//   - Providing a consistent interface for different JSON libraries
//   - Keeping the result member of a response as raw bytes, so nested
//     values reach the caller exactly as the server encoded them
//   - Distinguishing an absent member from a member that is JSON null
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - jsonSerializerImpl: Implementation using encoding/json.
//
//   - jsonIterSerializerImpl: Implementation using json-iterator in its
//     encoding/json compatible configuration.
//
//   - goJSONSerializerImpl: Implementation using goccy/go-json.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	serializer := serializer.NewJSONSerializer()
//	data, err := serializer.Serialize(*common.NewRequest(1, "nop", []any{"x"}))
//	// ... send data ...
//	var resp common.Response
//	err = serializer.Deserialize(receivedData, &resp)
package serializer
