package client

import (
	"encoding/json"
	"fmt"

	"github.com/scalaris-team/scalaris-go/lib/store"
	"github.com/scalaris-team/scalaris-go/rpc/common"
	"github.com/scalaris-team/scalaris-go/rpc/transport"
)

// NewRPCStore creates a new RPC store
// The function takes an open connection, which is used for all operations.
// The store does not own the connection, the caller closes it.
func NewRPCStore(conn transport.IConnection) (store.IStore, error) {
	if conn == nil || !conn.IsOpen() {
		return nil, common.ErrConnectionClosed
	}

	// Create a new RPC store
	s := rpcStore{
		rpcClientAdapter{
			conn: conn,
		},
	}

	// Return the RPC store
	return &s, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Read(key string) (value json.RawMessage, err error) {
	resp, err := invokeRPCRequest(i.conn, "read", key)
	if err != nil {
		return nil, err
	}
	return decodeValue(resp.Value)
}

func (i *rpcStore) Write(key string, value any) (err error) {
	v, err := encodeValue(value)
	if err != nil {
		return err
	}
	_, err = invokeRPCRequest(i.conn, "write", key, v)
	return err
}

func (i *rpcStore) TestAndSet(key string, oldValue, newValue any) (err error) {
	oldV, err := encodeValue(oldValue)
	if err != nil {
		return err
	}
	newV, err := encodeValue(newValue)
	if err != nil {
		return err
	}
	_, err = invokeRPCRequest(i.conn, "test_and_set", key, oldV, newV)
	return err
}

func (i *rpcStore) AddOnNr(key string, toAdd any) (err error) {
	v, err := encodeValue(toAdd)
	if err != nil {
		return err
	}
	_, err = invokeRPCRequest(i.conn, "add_on_nr", key, v)
	return err
}

func (i *rpcStore) AddDelOnList(key string, toAdd, toRemove []any) (err error) {
	addV, err := encodeValues(toAdd)
	if err != nil {
		return err
	}
	delV, err := encodeValues(toRemove)
	if err != nil {
		return err
	}
	_, err = invokeRPCRequest(i.conn, "add_del_on_list", key, addV, delV)
	return err
}

// Nop sends value to the node. The node answers with "ok".
func (i *rpcStore) Nop(value any) (err error) {
	v, err := encodeValue(value)
	if err != nil {
		return err
	}
	raw, err := i.conn.ExecCall("nop", []any{v})
	if err != nil {
		return err
	}
	var ok string
	if err := jsonAPI.Unmarshal(raw, &ok); err != nil || ok != "ok" {
		return &common.ProtocolError{
			Reason: common.ReasonMalformedResponse,
			Detail: fmt.Sprintf("unexpected result of nop: %s", raw),
		}
	}
	return nil
}
