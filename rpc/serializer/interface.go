package serializer

import "github.com/scalaris-team/scalaris-go/rpc/common"

// IRPCSerializer is the interface for all JSON-RPC envelope serializers
type IRPCSerializer interface {
	// Serialize serializes a Request into its textual JSON form
	// It returns the serialized byte array and an error if any
	Serialize(req common.Request) ([]byte, error)
	// Deserialize decodes a JSON object into a Response
	// It takes a byte array and a pointer to a Response as parameters
	// It returns an error if the bytes are not a JSON object
	Deserialize(b []byte, resp *common.Response) error
}
