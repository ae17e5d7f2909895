package ble_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padctl/padctl/ble"
	"github.com/padctl/padctl/internal/bletest"
)

func TestScannerDeliversNamedDevices(t *testing.T) {
	fh := &bletest.FakeHost{}
	stack := newTestStack(t, fh)

	scanner := ble.NewScanner(stack)
	found, err := scanner.Start()
	require.NoError(t, err)
	defer func() { require.NoError(t, scanner.Stop()) }()

	fh.AdvertiseName(testAddr, "SteamController")

	select {
	case dev := <-found:
		assert.Equal(t, testAddr, dev.Addr())
		assert.Equal(t, "SteamController", dev.Name())
	case <-time.After(2 * time.Second):
		t.Fatal("device not delivered")
	}
}

func TestScannerNamelessAdvertisement(t *testing.T) {
	fh := &bletest.FakeHost{}
	stack := newTestStack(t, fh)

	scanner := ble.NewScanner(stack)
	found, err := scanner.Start()
	require.NoError(t, err)
	defer func() { require.NoError(t, scanner.Stop()) }()

	// Flags only, no local name.
	fh.Advertise(testAddr, -70, []byte{0x02, 0x01, 0x06})

	select {
	case dev := <-found:
		assert.Equal(t, "", dev.Name())
	case <-time.After(2 * time.Second):
		t.Fatal("device not delivered")
	}
}

func TestScannerStopIsIdempotent(t *testing.T) {
	fh := &bletest.FakeHost{}
	stack := newTestStack(t, fh)

	scanner := ble.NewScanner(stack)
	_, err := scanner.Start()
	require.NoError(t, err)

	require.NoError(t, scanner.Stop())
	require.NoError(t, scanner.Stop())
	assert.False(t, fh.Scanning())
}

func TestScannerFlushDuplicates(t *testing.T) {
	fh := &bletest.FakeHost{}
	stack := newTestStack(t, fh)

	scanner := ble.NewScanner(stack)
	_, err := scanner.Start()
	require.NoError(t, err)
	defer func() { require.NoError(t, scanner.Stop()) }()

	require.NoError(t, scanner.FlushDuplicates())
	assert.Equal(t, 1, fh.FlushCount())
}

func TestRepeatAdvertisementResetsEntry(t *testing.T) {
	fh := &bletest.FakeHost{}
	stack := newTestStack(t, fh)

	scanner := ble.NewScanner(stack)
	found, err := scanner.Start()
	require.NoError(t, err)
	defer func() { require.NoError(t, scanner.Stop()) }()

	fh.AdvertiseName(testAddr, "first")
	dev := <-found
	require.Equal(t, "first", dev.Name())

	fh.AdvertiseName(testAddr, "second")
	<-found

	// The registry entry was overwritten; the old handle sees the new name.
	assert.Equal(t, "second", dev.Name())
}

func TestStackCloseStopsHost(t *testing.T) {
	fh := &bletest.FakeHost{}
	stack, err := ble.NewStack(fh, quietLogger())
	require.NoError(t, err)
	require.NoError(t, stack.Close())
}
