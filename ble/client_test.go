package ble_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padctl/padctl/ble"
	"github.com/padctl/padctl/internal/bletest"
)

func TestConnectCompletesAfterEncryption(t *testing.T) {
	fh := &bletest.FakeHost{NegotiatedMTU: 185}
	stack := newTestStack(t, fh)

	dev := connectDevice(t, fh, stack, testAddr, "gamepad")

	handle, ok := dev.ConnHandle()
	require.True(t, ok)
	assert.Equal(t, uint16(185), fh.MTU(handle))
}

func TestConnectFailsOnConnectStatus(t *testing.T) {
	fh := &bletest.FakeHost{ConnectStatus: 0x3d}
	stack := newTestStack(t, fh)

	dev := discoverDevice(t, fh, stack, testAddr, "gamepad")
	err := ble.NewClient(stack).Connect(dev)

	var remote *ble.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, uint16(0x3d), remote.Status)
	assert.False(t, dev.IsConnected())
}

func TestConnectResolvesDisconnectBeforeSetup(t *testing.T) {
	fh := &bletest.FakeHost{DropBeforeSetup: true}
	stack := newTestStack(t, fh)

	dev := discoverDevice(t, fh, stack, testAddr, "gamepad")
	err := ble.NewClient(stack).Connect(dev)

	require.ErrorIs(t, err, ble.ErrDisconnected)
	assert.False(t, dev.IsConnected())
}

func TestConnectFailsOnNegotiationStepRejection(t *testing.T) {
	// A rejected negotiation request resolves the attempt as an error even
	// though the remaining steps still run.
	fh := &bletest.FakeHost{
		SetDataLenErr: &ble.HostRequestError{Op: "set data length", Code: 6},
	}
	stack := newTestStack(t, fh)

	dev := discoverDevice(t, fh, stack, testAddr, "gamepad")
	err := ble.NewClient(stack).Connect(dev)

	var remote *ble.RemoteError
	require.ErrorAs(t, err, &remote)
}

func TestConnectFailsOnEncryptionFailure(t *testing.T) {
	fh := &bletest.FakeHost{EncChangeStatus: 5}
	stack := newTestStack(t, fh)

	dev := discoverDevice(t, fh, stack, testAddr, "gamepad")
	err := ble.NewClient(stack).Connect(dev)

	var remote *ble.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, uint16(5), remote.Status)
}

func TestDisconnect(t *testing.T) {
	fh := &bletest.FakeHost{}
	stack := newTestStack(t, fh)

	dev := connectDevice(t, fh, stack, testAddr, "gamepad")
	client := ble.NewClient(stack)

	require.NoError(t, client.Disconnect(dev.Addr()))
	assert.False(t, dev.IsConnected())

	// The stream is gone with the connection.
	err := dev.UseEvents(func(<-chan ble.ConnEvent) {})
	require.ErrorIs(t, err, ble.ErrNotConnected)
}

func TestDisconnectNotConnected(t *testing.T) {
	fh := &bletest.FakeHost{}
	stack := newTestStack(t, fh)

	dev := discoverDevice(t, fh, stack, testAddr, "gamepad")
	err := ble.NewClient(stack).Disconnect(dev.Addr())
	require.ErrorIs(t, err, ble.ErrNotConnected)
}

func TestDisconnectRejectedTerminateKeepsStream(t *testing.T) {
	fh := &bletest.FakeHost{}
	stack := newTestStack(t, fh)

	dev := connectDevice(t, fh, stack, testAddr, "gamepad")
	client := ble.NewClient(stack)

	fh.TerminateErr = &ble.HostRequestError{Op: "terminate", Code: 7}
	err := client.Disconnect(dev.Addr())
	require.Error(t, err)
	assert.True(t, dev.IsConnected())

	// The stream was handed back; a later disconnect succeeds.
	fh.TerminateErr = nil
	require.NoError(t, client.Disconnect(dev.Addr()))
}

func TestUnsolicitedDisconnectClearsHandle(t *testing.T) {
	fh := &bletest.FakeHost{}
	stack := newTestStack(t, fh)

	dev := connectDevice(t, fh, stack, testAddr, "gamepad")
	handle, ok := dev.ConnHandle()
	require.True(t, ok)

	fh.Drop(handle, 0x08)

	require.Eventually(t, func() bool {
		return !dev.IsConnected()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClientCloseDisconnectsAll(t *testing.T) {
	fh := &bletest.FakeHost{}
	stack := newTestStack(t, fh)

	dev1 := connectDevice(t, fh, stack, testAddr, "gamepad")
	dev2 := connectDevice(t, fh, stack, otherAddr, "second")

	client := ble.NewClient(stack)
	require.NoError(t, client.Close())
	assert.False(t, dev1.IsConnected())
	assert.False(t, dev2.IsConnected())
}

func TestConnectSubmissionFailure(t *testing.T) {
	fh := &bletest.FakeHost{ConnectErr: errors.New("controller busy")}
	stack := newTestStack(t, fh)

	dev := discoverDevice(t, fh, stack, testAddr, "gamepad")
	err := ble.NewClient(stack).Connect(dev)
	require.Error(t, err)
	assert.False(t, dev.IsConnected())
}
