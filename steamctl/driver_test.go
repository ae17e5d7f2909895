package steamctl

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padctl/padctl/ble"
	"github.com/padctl/padctl/internal/bletest"
)

var controllerAddr = ble.Addr{Val: [6]byte{0xf3, 0xe5, 0x31, 0x71, 0x56, 0x38}}

// memPrefs is an in-memory Preferences store.
type memPrefs struct {
	mu   sync.Mutex
	addr string
	sets int
}

func (p *memPrefs) BondedAddress() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addr, p.addr != ""
}

func (p *memPrefs) SetBondedAddress(addr string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.addr = addr
	p.sets++
	return nil
}

func (p *memPrefs) setCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sets
}

// controllerHost scripts a fake host exposing the vendor gamepad service.
func controllerHost() *bletest.FakeHost {
	return &bletest.FakeHost{
		Services: []ble.ServiceRecord{
			{StartHandle: 0x10, EndHandle: 0x30, UUID: serviceUUID},
		},
		Characteristics: map[uint16][]ble.CharacteristicRecord{
			0x10: {
				{DefHandle: 0x11, ValHandle: 0x12, Properties: ble.PropNotify, UUID: eventsChrUUID},
				{DefHandle: 0x20, ValHandle: 0x21, Properties: ble.PropWrite, UUID: modeChrUUID},
			},
		},
		Descriptors: map[uint16][]ble.DescriptorRecord{
			0x12: {
				{Handle: 0x13, UUID: ble.NewUUID16(0x2902)},
			},
		},
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type driverFixture struct {
	fh     *bletest.FakeHost
	stack  *ble.Stack
	prefs  *memPrefs
	events chan Event
	cancel context.CancelFunc
	done   chan error
}

// startDriver runs a driver against a scripted host and advertises the
// controller until a session picks it up.
func startDriver(t *testing.T, fh *bletest.FakeHost, prefs *memPrefs, advertiseName string) *driverFixture {
	t.Helper()

	stack, err := ble.NewStack(fh, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = stack.Close() })

	driver := NewDriver(stack, prefs, Config{RetryDelay: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &driverFixture{
		fh:     fh,
		stack:  stack,
		prefs:  prefs,
		events: make(chan Event, 64),
		cancel: cancel,
		done:   make(chan error, 1),
	}
	go func() {
		f.done <- driver.Run(ctx, func(e Event) { f.events <- e })
	}()

	// The advertisement is only delivered to an active scan, so repeat it
	// until the session reacts.
	go func() {
		for ctx.Err() == nil {
			fh.AdvertiseName(controllerAddr, advertiseName)
			time.Sleep(10 * time.Millisecond)
		}
	}()

	return f
}

func (f *driverFixture) expectEvent(t *testing.T, kind EventKind) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-f.events:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("event %d not delivered", kind)
		}
	}
}

func TestDriverPairsAndStreams(t *testing.T) {
	fh := controllerHost()
	prefs := &memPrefs{}
	f := startDriver(t, fh, prefs, "SteamController")

	f.expectEvent(t, Connected)

	// Fresh pairing persists the address.
	addr, ok := prefs.BondedAddress()
	require.True(t, ok)
	assert.Equal(t, controllerAddr.String(), addr)

	// Setup wrote the client configuration and the steam mode command.
	require.Eventually(t, func() bool {
		return len(fh.Writes()) >= 2
	}, 2*time.Second, 10*time.Millisecond)
	writes := fh.Writes()
	assert.Equal(t, uint16(0x13), writes[0].AttrHandle)
	assert.Equal(t, []byte{0x01, 0x00}, writes[0].Data)
	assert.Equal(t, uint16(0x21), writes[1].AttrHandle)
	assert.Equal(t, []byte{0xc0, 0x87, 0x03, 0x08, 0x07, 0x00}, writes[1].Data)

	// A button press frame decodes into an input event.
	fh.Notify(1, 0x12, frame(flagReport|flagButtons, 0x80, 0x00, 0x00), false)
	ev := f.expectEvent(t, ButtonChanged)
	assert.Equal(t, ButtonSouth, ev.Button)
	assert.Equal(t, 1.0, ev.Value)

	// A dropped link ends the session.
	fh.Drop(1, 0x08)
	f.expectEvent(t, Disconnected)

	f.cancel()
	select {
	case err := <-f.done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("driver did not stop")
	}
}

func TestDriverReconnectsToBondedAddress(t *testing.T) {
	fh := controllerHost()
	prefs := &memPrefs{addr: controllerAddr.String()}

	// The bonded controller is matched by address even though it does not
	// advertise the pairing name.
	f := startDriver(t, fh, prefs, "")
	f.expectEvent(t, Connected)

	// No re-pairing took place.
	assert.Equal(t, 0, prefs.setCount())

	f.cancel()
	select {
	case err := <-f.done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("driver did not stop")
	}
}

func TestDriverMalformedFrameIsDropped(t *testing.T) {
	fh := controllerHost()
	f := startDriver(t, fh, &memPrefs{}, "SteamController")
	f.expectEvent(t, Connected)

	// Bad marker; no events, session stays up.
	fh.Notify(1, 0x12, []byte{0x01, 0x02}, false)
	fh.Notify(1, 0x12, frame(flagReport|flagButtons, 0x00, 0x20, 0x00), false)

	ev := f.expectEvent(t, ButtonChanged)
	assert.Equal(t, ButtonSteam, ev.Button)

	f.cancel()
	<-f.done
}
