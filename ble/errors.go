package ble

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Stack, Scanner and Client operations.
var (
	// ErrNotConnected indicates an operation that requires a live connection
	// was attempted on a device that has none.
	ErrNotConnected = errors.New("device not connected")

	// ErrDisconnected resolves a connect attempt that ended with the peer
	// dropping the link before setup completed. It is not a failure of the
	// request itself; callers typically retry.
	ErrDisconnected = errors.New("peer disconnected")

	// ErrClosed indicates an expected event source went away, usually because
	// the stack was shut down while a caller was blocked.
	ErrClosed = errors.New("event stream closed")

	// ErrUnknownDevice indicates an address with no registry entry.
	ErrUnknownDevice = errors.New("unknown device")
)

// HostRequestError reports a native host request that was rejected at
// submission with a non-zero return code. The operation never started.
type HostRequestError struct {
	Op   string
	Code int
}

func (e *HostRequestError) Error() string {
	return fmt.Sprintf("host request %s failed; rc=%d", e.Op, e.Code)
}

// RemoteError reports a non-zero GATT/GAP status delivered by the peer in
// response to a submitted operation.
type RemoteError struct {
	Op         string
	ConnHandle ConnHandle
	AttrHandle uint16
	Status     uint16
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s failed; conn_handle=%d attr_handle=%d status=%d",
		e.Op, e.ConnHandle, e.AttrHandle, e.Status)
}

// MTUExceededError reports a write whose payload does not fit the negotiated
// MTU. The request is never submitted.
type MTUExceededError struct {
	Len int
	MTU uint16
}

func (e *MTUExceededError) Error() string {
	return fmt.Sprintf("payload length %d exceeds MTU %d", e.Len, e.MTU)
}

// ConfigError reports malformed caller-supplied configuration, such as an
// unparseable UUID string.
type ConfigError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}
