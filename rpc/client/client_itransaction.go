package client

import (
	"encoding/json"
	"fmt"

	"github.com/scalaris-team/scalaris-go/lib/store"
	"github.com/scalaris-team/scalaris-go/rpc/common"
	"github.com/scalaris-team/scalaris-go/rpc/transport"
)

// NewRPCTransaction creates a new transaction on top of conn.
// Like the store, the transaction does not own the connection.
func NewRPCTransaction(conn transport.IConnection) (store.ITransaction, error) {
	if conn == nil || !conn.IsOpen() {
		return nil, common.ErrConnectionClosed
	}

	t := rpcTransaction{
		rpcClientAdapter: rpcClientAdapter{
			conn: conn,
		},
	}
	return &t, nil
}

type rpcTransaction struct {
	rpcClientAdapter
	tlog json.RawMessage // nil until the first request returned a log
}

// reqListResult is the result of a req_list call
type reqListResult struct {
	TLog    json.RawMessage `json:"tlog"`
	Results []opResult      `json:"results"`
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (t *rpcTransaction) Read(key string) (value json.RawMessage, err error) {
	res, err := t.reqList(map[string]any{"read": key})
	if err != nil {
		return nil, err
	}
	if err := res.check("read"); err != nil {
		return nil, err
	}
	return decodeValue(res.Value)
}

func (t *rpcTransaction) Write(key string, value any) (err error) {
	v, err := encodeValue(value)
	if err != nil {
		return err
	}
	res, err := t.reqList(map[string]any{"write": map[string]any{key: v}})
	if err != nil {
		return err
	}
	return res.check("write")
}

func (t *rpcTransaction) Commit() (err error) {
	// The log is consumed by the commit, whatever its outcome
	defer t.Abort()

	res, err := t.reqList(map[string]any{"commit": ""})
	if err != nil {
		return err
	}
	return res.check("commit")
}

func (t *rpcTransaction) Abort() {
	t.tlog = nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// reqList sends a single request together with the current transaction log
// and keeps the log returned by the node.
func (t *rpcTransaction) reqList(req map[string]any) (*opResult, error) {
	reqs := []map[string]any{req}
	params := []any{reqs}
	if t.tlog != nil {
		params = []any{t.tlog, reqs}
	}

	raw, err := t.conn.ExecCall("req_list", params)
	if err != nil {
		if common.IsFatal(err) {
			Logger.Warningf("Call req_list failed, connection is closed: %v", err)
		}
		return nil, err
	}

	var res reqListResult
	if err := jsonAPI.Unmarshal(raw, &res); err != nil {
		return nil, &common.ProtocolError{
			Reason: common.ReasonMalformedResponse,
			Detail: fmt.Sprintf("unexpected result of req_list: %s", raw),
			Err:    err,
		}
	}
	if len(res.TLog) == 0 || common.IsNull(res.TLog) || len(res.Results) != len(reqs) {
		return nil, &common.ProtocolError{
			Reason: common.ReasonMalformedResponse,
			Detail: fmt.Sprintf("unexpected result of req_list: %s", raw),
		}
	}

	t.tlog = res.TLog
	return &res.Results[0], nil
}
