package common

import (
	"bytes"
	"encoding/json"
)

// Version is the JSON-RPC version marker sent with every request
const Version = "2.0"

// --------------------------------------------------------------------------
// Request
// --------------------------------------------------------------------------

// Request is a single JSON-RPC call. It is built per call and never reused.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      uint64 `json:"id"`
}

// NewRequest creates a new request. nil params are sent as an empty list.
func NewRequest(id uint64, method string, params any) *Request {
	if params == nil {
		params = []any{}
	}
	return &Request{
		JSONRPC: Version,
		Method:  method,
		Params:  params,
		ID:      id,
	}
}

// --------------------------------------------------------------------------
// Response
// --------------------------------------------------------------------------

// Response is a decoded JSON-RPC response. Absent members are nil, a JSON
// null member is kept as the literal "null".
type Response struct {
	Result json.RawMessage
	Error  json.RawMessage
	ID     json.RawMessage
}

// NewResponse builds a response from the top level members of a JSON object
func NewResponse(fields map[string]json.RawMessage) Response {
	return Response{
		Result: member(fields, "result"),
		Error:  member(fields, "error"),
		ID:     member(fields, "id"),
	}
}

// member returns the raw member value. Some decoders store a JSON null as a
// nil slice, so a present key always yields at least "null".
func member(fields map[string]json.RawMessage, key string) json.RawMessage {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	if len(v) == 0 {
		return json.RawMessage("null")
	}
	return v
}

// HasResult reports whether the result member was present
func (r *Response) HasResult() bool {
	return r.Result != nil
}

// HasError reports whether an error member other than null was present
func (r *Response) HasError() bool {
	return r.Error != nil && !IsNull(r.Error)
}

// ErrorObject is the error member of a JSON-RPC response
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// IsNull reports whether raw is the JSON literal null
func IsNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
