package main

import (
	"errors"
	"fmt"

	"github.com/padctl/padctl/ble"
)

// FormatUserError rewrites stack errors into actionable messages; anything
// unrecognized passes through unchanged.
func FormatUserError(err error) string {
	var (
		remote *ble.RemoteError
		host   *ble.HostRequestError
		mtu    *ble.MTUExceededError
		cfg    *ble.ConfigError
	)

	switch {
	case errors.Is(err, ble.ErrNotConnected):
		return "device is not connected; run 'padctl scan' to find it and try again"
	case errors.Is(err, ble.ErrDisconnected):
		return "device disconnected during setup; it may be out of range or asleep"
	case errors.Is(err, ble.ErrUnknownDevice):
		return "device has not been discovered; run a scan first"
	case errors.Is(err, ble.ErrClosed):
		return "the Bluetooth stack shut down while the operation was in progress"
	case errors.As(err, &remote):
		return fmt.Sprintf("the device rejected the %s request (status %d)", remote.Op, remote.Status)
	case errors.As(err, &host):
		return fmt.Sprintf("the local Bluetooth stack rejected the %s request (code %d); is the adapter up?", host.Op, host.Code)
	case errors.As(err, &mtu):
		return fmt.Sprintf("payload of %d bytes does not fit the negotiated MTU of %d", mtu.Len, mtu.MTU)
	case errors.As(err, &cfg):
		return err.Error()
	default:
		return err.Error()
	}
}
