package ble_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padctl/padctl/ble"
	"github.com/padctl/padctl/internal/bletest"
)

var (
	vendorSvcUUID = ble.MustUUID("100f6c32-1735-4313-b402-38567131e5f3")
	eventsUUID    = ble.MustUUID("100f6c33-1735-4313-b402-38567131e5f3")
	modeUUID      = ble.MustUUID("100f6c34-1735-4313-b402-38567131e5f3")
	cccUUID       = ble.NewUUID16(0x2902)
)

// gamepadHost scripts a fake host exposing a vendor service with an events
// characteristic (notify, with CCC) and a mode characteristic (write).
func gamepadHost() *bletest.FakeHost {
	return &bletest.FakeHost{
		Services: []ble.ServiceRecord{
			{StartHandle: 0x10, EndHandle: 0x30, UUID: vendorSvcUUID},
		},
		Characteristics: map[uint16][]ble.CharacteristicRecord{
			0x10: {
				{DefHandle: 0x11, ValHandle: 0x12, Properties: ble.PropNotify, UUID: eventsUUID},
				{DefHandle: 0x20, ValHandle: 0x21, Properties: ble.PropWrite | ble.PropWriteNoResponse, UUID: modeUUID},
			},
		},
		Descriptors: map[uint16][]ble.DescriptorRecord{
			0x12: {
				{Handle: 0x13, UUID: cccUUID},
			},
		},
	}
}

func TestServiceDiscovery(t *testing.T) {
	fh := gamepadHost()
	stack := newTestStack(t, fh)
	dev := connectDevice(t, fh, stack, testAddr, "gamepad")

	svcs, err := dev.Services()
	require.NoError(t, err)
	require.Len(t, svcs, 1)
	assert.True(t, svcs[0].UUID().Equal(vendorSvcUUID))
	assert.Equal(t, uint16(0x10), svcs[0].StartHandle)
	assert.Equal(t, uint16(0x30), svcs[0].EndHandle)
}

func TestServiceDiscoveryEmptyIsSuccess(t *testing.T) {
	fh := &bletest.FakeHost{}
	stack := newTestStack(t, fh)
	dev := connectDevice(t, fh, stack, testAddr, "gamepad")

	svcs, err := dev.Services()
	require.NoError(t, err)
	assert.Empty(t, svcs)
}

func TestServiceDiscoveryRemoteFailure(t *testing.T) {
	fh := gamepadHost()
	fh.ServiceStatus = 0x85
	stack := newTestStack(t, fh)
	dev := connectDevice(t, fh, stack, testAddr, "gamepad")

	_, err := dev.Services()
	var remote *ble.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, uint16(0x85), remote.Status)
}

func TestServicesRequireConnection(t *testing.T) {
	fh := gamepadHost()
	stack := newTestStack(t, fh)
	dev := discoverDevice(t, fh, stack, testAddr, "gamepad")

	_, err := dev.Services()
	require.ErrorIs(t, err, ble.ErrNotConnected)
}

func TestServiceByUUID(t *testing.T) {
	fh := gamepadHost()
	stack := newTestStack(t, fh)
	dev := connectDevice(t, fh, stack, testAddr, "gamepad")

	svc, err := dev.ServiceByUUID(vendorSvcUUID)
	require.NoError(t, err)
	require.NotNil(t, svc)

	absent, err := dev.ServiceByUUID(ble.NewUUID16(0x180f))
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestCharacteristicEndHandleDerivation(t *testing.T) {
	fh := gamepadHost()
	stack := newTestStack(t, fh)
	dev := connectDevice(t, fh, stack, testAddr, "gamepad")

	svc, err := dev.ServiceByUUID(vendorSvcUUID)
	require.NoError(t, err)
	chrs, err := svc.Characteristics()
	require.NoError(t, err)
	require.Len(t, chrs, 2)

	// Each characteristic ends where the next definition starts; the last
	// one runs to the service end handle.
	assert.Equal(t, uint16(0x1f), chrs[0].EndHandle)
	assert.Equal(t, uint16(0x30), chrs[1].EndHandle)
}

func TestCharacteristicWriteChecksProperties(t *testing.T) {
	fh := gamepadHost()
	stack := newTestStack(t, fh)
	dev := connectDevice(t, fh, stack, testAddr, "gamepad")

	svc, err := dev.ServiceByUUID(vendorSvcUUID)
	require.NoError(t, err)
	chrs, err := svc.Characteristics()
	require.NoError(t, err)

	// The events characteristic is notify-only.
	err = chrs[0].Write([]byte{1})
	require.Error(t, err)
	assert.Empty(t, fh.Writes())

	require.NoError(t, chrs[1].Write([]byte{0xc0, 0x87}))
	writes := fh.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, uint16(0x21), writes[0].AttrHandle)
	assert.Equal(t, []byte{0xc0, 0x87}, writes[0].Data)
}

func TestWriteMTUBoundary(t *testing.T) {
	fh := gamepadHost()
	fh.NegotiatedMTU = 10
	stack := newTestStack(t, fh)
	dev := connectDevice(t, fh, stack, testAddr, "gamepad")

	svc, err := dev.ServiceByUUID(vendorSvcUUID)
	require.NoError(t, err)
	chrs, err := svc.Characteristics()
	require.NoError(t, err)
	mode := chrs[1]

	// One byte over fails before submission.
	err = mode.Write(make([]byte, 11))
	var mtuErr *ble.MTUExceededError
	require.ErrorAs(t, err, &mtuErr)
	assert.Equal(t, 11, mtuErr.Len)
	assert.Equal(t, uint16(10), mtuErr.MTU)
	assert.Empty(t, fh.Writes())

	// Exactly the MTU is accepted.
	require.NoError(t, mode.Write(make([]byte, 10)))
	assert.Len(t, fh.Writes(), 1)
}

func TestWriteRemoteFailure(t *testing.T) {
	fh := gamepadHost()
	fh.WriteStatus = 0x03
	stack := newTestStack(t, fh)
	dev := connectDevice(t, fh, stack, testAddr, "gamepad")

	svc, err := dev.ServiceByUUID(vendorSvcUUID)
	require.NoError(t, err)
	chrs, err := svc.Characteristics()
	require.NoError(t, err)

	err = chrs[1].Write([]byte{1})
	var remote *ble.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, uint16(0x03), remote.Status)
}

func TestWriteNoResponse(t *testing.T) {
	fh := gamepadHost()
	stack := newTestStack(t, fh)
	dev := connectDevice(t, fh, stack, testAddr, "gamepad")

	svc, err := dev.ServiceByUUID(vendorSvcUUID)
	require.NoError(t, err)
	chrs, err := svc.Characteristics()
	require.NoError(t, err)

	require.NoError(t, chrs[1].WriteNoResponse([]byte{7}))
	writes := fh.Writes()
	require.Len(t, writes, 1)
	assert.True(t, writes[0].NoResponse)
}

func TestSetNotifyWritesClientConfiguration(t *testing.T) {
	fh := gamepadHost()
	stack := newTestStack(t, fh)
	dev := connectDevice(t, fh, stack, testAddr, "gamepad")

	svc, err := dev.ServiceByUUID(vendorSvcUUID)
	require.NoError(t, err)
	chrs, err := svc.Characteristics()
	require.NoError(t, err)
	events := chrs[0]

	require.NoError(t, events.SetNotify(true))
	writes := fh.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, uint16(0x13), writes[0].AttrHandle)
	assert.Equal(t, []byte{0x01, 0x00}, writes[0].Data)

	require.NoError(t, events.SetNotify(false))
	writes = fh.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, []byte{0x00, 0x00}, writes[1].Data)
}

func TestSetNotifyRequiresNotifyProperty(t *testing.T) {
	fh := gamepadHost()
	stack := newTestStack(t, fh)
	dev := connectDevice(t, fh, stack, testAddr, "gamepad")

	svc, err := dev.ServiceByUUID(vendorSvcUUID)
	require.NoError(t, err)
	chrs, err := svc.Characteristics()
	require.NoError(t, err)

	// The mode characteristic cannot notify.
	require.Error(t, chrs[1].SetNotify(true))
}

func TestNotificationsReachEventStream(t *testing.T) {
	fh := gamepadHost()
	stack := newTestStack(t, fh)
	dev := connectDevice(t, fh, stack, testAddr, "gamepad")

	handle, ok := dev.ConnHandle()
	require.True(t, ok)
	payload := []byte{0xc0, 0x14, 0x00, 0x80, 0x00, 0x00}
	fh.Notify(handle, 0x12, payload, false)

	err := dev.UseEvents(func(events <-chan ble.ConnEvent) {
		select {
		case ev := <-events:
			assert.Equal(t, ble.ConnNotification, ev.Kind)
			assert.Equal(t, payload, ev.Data)
		case <-time.After(2 * time.Second):
			t.Fatal("notification not delivered")
		}
	})
	require.NoError(t, err)
}

func TestUseEventsLoanIsExclusive(t *testing.T) {
	fh := gamepadHost()
	stack := newTestStack(t, fh)
	dev := connectDevice(t, fh, stack, testAddr, "gamepad")

	err := dev.UseEvents(func(<-chan ble.ConnEvent) {
		// While on loan, a second borrow fails.
		require.ErrorIs(t, dev.UseEvents(func(<-chan ble.ConnEvent) {}), ble.ErrNotConnected)
	})
	require.NoError(t, err)

	// Handed back after the loan.
	require.NoError(t, dev.UseEvents(func(<-chan ble.ConnEvent) {}))
}
