package common

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Sentinel errors
// --------------------------------------------------------------------------

var (
	// ErrConnectionClosed is returned for calls on a closed connection
	ErrConnectionClosed = errors.New("connection is closed")
	// ErrConnectionBusy is returned if a second call is issued while one is in flight
	ErrConnectionBusy = errors.New("connection is busy")
)

// --------------------------------------------------------------------------
// Transport errors
// --------------------------------------------------------------------------

// TransportReason classifies a network failure
type TransportReason string

const (
	ReasonResolution TransportReason = "resolution"
	ReasonConnect    TransportReason = "connect"
	ReasonWrite      TransportReason = "write"
	ReasonShortRead  TransportReason = "shortRead"
	ReasonTimeout    TransportReason = "timeout"
)

// TransportError is a socket level failure. The connection is closed afterwards.
type TransportError struct {
	Reason TransportReason
	Addr   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("transport error (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("transport error (%s) %s: %v", e.Reason, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// --------------------------------------------------------------------------
// TLS errors
// --------------------------------------------------------------------------

// TLSError is a failed handshake. The connection attempt is aborted.
type TLSError struct {
	Reason string
	Err    error
}

func (e *TLSError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("tls error: %s", e.Reason)
	}
	return fmt.Sprintf("tls error: %s: %v", e.Reason, e.Err)
}

func (e *TLSError) Unwrap() error { return e.Err }

// --------------------------------------------------------------------------
// Protocol errors
// --------------------------------------------------------------------------

// ProtocolReason classifies a violation of the JSON-RPC contract
type ProtocolReason string

const (
	ReasonMalformedResponse ProtocolReason = "malformedResponse"
	ReasonMissingResult     ProtocolReason = "missingResult"
)

// ProtocolError means the peer answered something that is not a valid JSON-RPC response
type ProtocolError struct {
	Reason ProtocolReason
	Detail string
	Err    error
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("protocol error (%s)", e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// --------------------------------------------------------------------------
// Remote errors
// --------------------------------------------------------------------------

// RemoteError carries the error member reported by the server verbatim.
// The connection stays usable.
type RemoteError struct {
	Code    int
	Message string
	Data    []byte
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error (code %d): %s", e.Code, e.Message)
}

// --------------------------------------------------------------------------
// Classification helpers
// --------------------------------------------------------------------------

// IsFatal reports whether err leaves the connection closed
func IsFatal(err error) bool {
	var te *TransportError
	var tlsErr *TLSError
	return errors.As(err, &te) || errors.As(err, &tlsErr) || errors.Is(err, ErrConnectionClosed)
}

// ErrorClass returns a short label for err used in logs and metrics
func ErrorClass(err error) string {
	var te *TransportError
	var tlsErr *TLSError
	var pe *ProtocolError
	var re *RemoteError
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &te):
		return "transport_" + string(te.Reason)
	case errors.As(err, &tlsErr):
		return "tls"
	case errors.As(err, &pe):
		return "protocol_" + string(pe.Reason)
	case errors.As(err, &re):
		return "remote"
	case errors.Is(err, ErrConnectionClosed):
		return "closed"
	case errors.Is(err, ErrConnectionBusy):
		return "busy"
	default:
		return "other"
	}
}
