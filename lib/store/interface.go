package store

import (
	"encoding/json"
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the interface for the single-key operations of a Scalaris node.
// Values are arbitrary JSON values, they are stored as they are.
// Failures reported by Scalaris are returned as *Error, every other error
// originates from the connection below the store.
type IStore interface {
	// Read returns the value stored for key. A missing key yields RetCNotFound.
	Read(key string) (value json.RawMessage, err error)
	// Write stores value for key.
	Write(key string, value any) (err error)
	// TestAndSet replaces the value for key with newValue if the current value equals oldValue.
	// If the value differs, RetCKeyChanged is returned and Error.Value holds the current value.
	TestAndSet(key string, oldValue, newValue any) (err error)
	// AddOnNr adds toAdd to the number stored for key. A missing key is treated as 0.
	AddOnNr(key string, toAdd any) (err error)
	// AddDelOnList adds the elements of toAdd to and removes those of toRemove from the list
	// stored for key. A missing key is treated as an empty list.
	AddDelOnList(key string, toAdd, toRemove []any) (err error)
	// Nop sends value to the node without touching any key.
	Nop(value any) (err error)
}

// ITransaction groups reads and writes that are committed atomically.
// The transaction log returned by Scalaris is carried from call to call,
// Commit sends it back with the commit request. A commit that conflicts
// with a concurrent transaction fails with RetCAbort.
// After Commit or Abort the transaction starts over with an empty log.
type ITransaction interface {
	// Read returns the value of key as seen by the transaction.
	Read(key string) (value json.RawMessage, err error)
	// Write records value for key, it becomes visible to others on Commit.
	Write(key string, value any) (err error)
	// Commit applies all writes of the transaction.
	Commit() (err error)
	// Abort discards the transaction log without contacting the node.
	Abort()
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code  RetCode         // The return code
	Msg   string          // The error message.
	Value json.RawMessage // The current value (only set for RetCKeyChanged)
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("ScalarisError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess    RetCode = iota // 0: Operation executed successfully.
	RetCNotFound                  // 1: The key does not exist.
	RetCAbort                     // 2: The transaction was aborted (e.g. concurrent modification).
	RetCKeyChanged                // 3: test_and_set found a different value.
	RetCNotAList                  // 4: The stored value is not a list.
	RetCNotANumber                // 5: The stored value is not a number.
	RetCUnknown                   // 6: Any other failure reported by the node.
)

// String returns the reason string Scalaris uses for the code
func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "ok"
	case RetCNotFound:
		return "not_found"
	case RetCAbort:
		return "abort"
	case RetCKeyChanged:
		return "key_changed"
	case RetCNotAList:
		return "not_a_list"
	case RetCNotANumber:
		return "not_a_number"
	default:
		return "unknown"
	}
}

// ParseRetCode maps a failure reason reported by Scalaris to its RetCode
func ParseRetCode(reason string) RetCode {
	switch reason {
	case "ok":
		return RetCSuccess
	case "not_found":
		return RetCNotFound
	case "abort":
		return RetCAbort
	case "key_changed":
		return RetCKeyChanged
	case "not_a_list":
		return RetCNotAList
	case "not_a_number":
		return RetCNotANumber
	default:
		return RetCUnknown
	}
}

// IsNotFound reports whether err is an *Error with RetCNotFound
func IsNotFound(err error) bool {
	return HasCode(err, RetCNotFound)
}

// HasCode reports whether err is an *Error with the given code
func HasCode(err error, code RetCode) bool {
	var storeErr *Error
	return errors.As(err, &storeErr) && storeErr.Code == code
}
