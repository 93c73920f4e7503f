package serializer

import (
	"encoding/json"
	"github.com/scalaris-team/scalaris-go/rpc/common"
	"reflect"
	"testing"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":     NewJSONSerializer,
	"JSONIter": NewJSONIterSerializer,
	"GoJSON":   NewGoJSONSerializer,
}

// TestSerializeRequest tests that requests are encoded as JSON-RPC envelopes
func TestSerializeRequest(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			data, err := serializer.Serialize(*common.NewRequest(7, "read", []any{"key"}))
			if err != nil {
				t.Fatalf("Failed to serialize request: %v", err)
			}

			var decoded map[string]any
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Serialized request is not valid JSON: %v", err)
			}

			expected := map[string]any{
				"jsonrpc": "2.0",
				"method":  "read",
				"params":  []any{"key"},
				"id":      float64(7),
			}
			if !reflect.DeepEqual(decoded, expected) {
				t.Errorf("Request mismatch:\nExpected: %v\nGot: %v", expected, decoded)
			}
		})
	}
}

// TestSerializeNilParams tests that nil params are sent as an empty list
func TestSerializeNilParams(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			data, err := factory().Serialize(*common.NewRequest(1, "ping", nil))
			if err != nil {
				t.Fatalf("Failed to serialize request: %v", err)
			}

			var decoded map[string]json.RawMessage
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Serialized request is not valid JSON: %v", err)
			}
			if string(decoded["params"]) != "[]" {
				t.Errorf("Expected params to be [], got %s", decoded["params"])
			}
		})
	}
}

// TestDeserializeResponse tests member detection for different responses
func TestDeserializeResponse(t *testing.T) {
	testCases := []struct {
		name      string
		data      string
		hasResult bool
		hasError  bool
		result    string
	}{
		{name: "Number result", data: `{"result":42,"id":1}`, hasResult: true, result: "42"},
		{name: "Null result", data: `{"result":null,"id":1}`, hasResult: true, result: "null"},
		{name: "Nested result", data: `{"result":{"a":[1,2,{"b":"c"}]}}`, hasResult: true, result: `{"a":[1,2,{"b":"c"}]}`},
		{name: "Error", data: `{"error":{"code":-32601,"message":"method not found"}}`, hasError: true},
		{name: "Null error", data: `{"result":true,"error":null}`, hasResult: true, result: "true"},
		{name: "Empty object", data: `{}`},
	}

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for _, tc := range testCases {
				t.Run(tc.name, func(t *testing.T) {
					var resp common.Response
					if err := serializer.Deserialize([]byte(tc.data), &resp); err != nil {
						t.Fatalf("Failed to deserialize: %v", err)
					}
					if resp.HasResult() != tc.hasResult {
						t.Errorf("HasResult: expected %v, got %v", tc.hasResult, resp.HasResult())
					}
					if resp.HasError() != tc.hasError {
						t.Errorf("HasError: expected %v, got %v", tc.hasError, resp.HasError())
					}
					if tc.hasResult && string(resp.Result) != tc.result {
						t.Errorf("Result: expected %s, got %s", tc.result, resp.Result)
					}
				})
			}
		})
	}
}

// TestDeserializeInvalid tests that bodies which are not JSON objects are rejected
func TestDeserializeInvalid(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for _, data := range []string{`{"result":`, `not json`, `[1,2,3]`, `null`, `42`} {
				var resp common.Response
				if err := serializer.Deserialize([]byte(data), &resp); err == nil {
					t.Errorf("Expected an error for %q", data)
				}
			}
		})
	}
}
