package ble_test

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/padctl/padctl/ble"
	"github.com/padctl/padctl/internal/bletest"
)

var (
	testAddr  = ble.Addr{Val: [6]byte{0xf3, 0xe5, 0x31, 0x71, 0x56, 0x38}}
	otherAddr = ble.Addr{Val: [6]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}}
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestStack starts a stack over a fake host and wires teardown.
func newTestStack(t *testing.T, fh *bletest.FakeHost) *ble.Stack {
	t.Helper()
	stack, err := ble.NewStack(fh, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = stack.Close() })
	return stack
}

// discoverDevice runs a scan and returns the device advertised under name.
func discoverDevice(t *testing.T, fh *bletest.FakeHost, stack *ble.Stack, addr ble.Addr, name string) ble.Device {
	t.Helper()
	scanner := ble.NewScanner(stack)
	found, err := scanner.Start()
	require.NoError(t, err)
	defer func() { require.NoError(t, scanner.Stop()) }()

	fh.AdvertiseName(addr, name)

	select {
	case dev := <-found:
		require.Equal(t, addr, dev.Addr())
		return dev
	case <-time.After(2 * time.Second):
		t.Fatal("scan result not delivered")
		return ble.Device{}
	}
}

// connectDevice discovers and connects addr, returning the live device.
func connectDevice(t *testing.T, fh *bletest.FakeHost, stack *ble.Stack, addr ble.Addr, name string) ble.Device {
	t.Helper()
	dev := discoverDevice(t, fh, stack, addr, name)
	client := ble.NewClient(stack)
	require.NoError(t, client.Connect(dev))
	require.True(t, dev.IsConnected())
	return dev
}
