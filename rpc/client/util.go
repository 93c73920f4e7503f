package client

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/scalaris-team/scalaris-go/lib/store"
	"github.com/scalaris-team/scalaris-go/rpc/common"
	"github.com/scalaris-team/scalaris-go/rpc/transport"
)

var (
	Logger  = logger.GetLogger(common.LoggerClient)
	jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary
)

// Value types of the Scalaris JSON API
const (
	valueTypeAsIs = "as_is"
	valueTypeBin  = "as_bin"
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
// Used by the RPCStore with composition pattern
type rpcClientAdapter struct {
	conn transport.IConnection
}

// typedValue is a value as sent to and returned by Scalaris
type typedValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// opResult is the result object of a single-key operation
type opResult struct {
	Status string      `json:"status"`
	Reason string      `json:"reason,omitempty"`
	Value  *typedValue `json:"value,omitempty"`
}

// encodeValue wraps value into the representation expected by Scalaris.
// The value is marshalled here, so that it is sent unchanged by every serializer.
func encodeValue(value any) (typedValue, error) {
	raw, err := jsonAPI.Marshal(value)
	if err != nil {
		return typedValue{}, fmt.Errorf("failed to encode value: %w", err)
	}
	return typedValue{Type: valueTypeAsIs, Value: raw}, nil
}

// encodeValues wraps every element of values
func encodeValues(values []any) (typedValue, error) {
	if values == nil {
		values = []any{}
	}
	return encodeValue(values)
}

// decodeValue returns the JSON value of v. Binary values are returned as JSON string.
func decodeValue(v *typedValue) (json.RawMessage, error) {
	if v == nil {
		return nil, store.NewError(store.RetCUnknown, "result carries no value")
	}
	switch v.Type {
	case valueTypeAsIs, "":
		if len(v.Value) == 0 {
			return json.RawMessage("null"), nil
		}
		return v.Value, nil
	case valueTypeBin:
		var encoded string
		if err := jsonAPI.Unmarshal(v.Value, &encoded); err != nil {
			return nil, store.NewError(store.RetCUnknown, fmt.Sprintf("invalid binary value: %v", err))
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, store.NewError(store.RetCUnknown, fmt.Sprintf("invalid binary value: %v", err))
		}
		return jsonAPI.Marshal(string(decoded))
	default:
		return nil, store.NewError(store.RetCUnknown, fmt.Sprintf("unsupported value type %q", v.Type))
	}
}

// invokeRPCRequest is a helper function used for all RPC clients to send requests.
// It executes the call on the connection and decodes the status object of the result.
// A result with status "fail" is returned as *store.Error.
func invokeRPCRequest(conn transport.IConnection, method string, params ...any) (*opResult, error) {
	raw, err := conn.ExecCall(method, params)
	if err != nil {
		if common.IsFatal(err) {
			Logger.Warningf("Call %s failed, connection is closed: %v", method, err)
		}
		return nil, err
	}

	res := &opResult{}
	if err := jsonAPI.Unmarshal(raw, res); err != nil {
		return nil, &common.ProtocolError{
			Reason: common.ReasonMalformedResponse,
			Detail: fmt.Sprintf("unexpected result of %s: %s", method, raw),
			Err:    err,
		}
	}

	if err := res.check(method); err != nil {
		return nil, err
	}
	return res, nil
}

// check maps the status of an operation result. A result with status
// "fail" is returned as *store.Error.
func (res *opResult) check(method string) error {
	switch res.Status {
	case "ok":
		return nil
	case "fail":
		code := store.ParseRetCode(res.Reason)
		storeErr := store.NewError(code, fmt.Sprintf("%s failed: %s", method, res.Reason))
		if code == store.RetCKeyChanged && res.Value != nil {
			storeErr.Value, _ = decodeValue(res.Value)
		}
		Logger.Debugf("Call %s failed: %s", method, res.Reason)
		return storeErr
	default:
		return &common.ProtocolError{
			Reason: common.ReasonMalformedResponse,
			Detail: fmt.Sprintf("unexpected status %q in result of %s", res.Status, method),
		}
	}
}
