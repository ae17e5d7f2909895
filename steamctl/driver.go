package steamctl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/padctl/padctl/ble"
)

// Vendor GATT identifiers and the mode command that switches the controller
// to its high-rate report stream.
var (
	serviceUUID   = ble.MustUUID("100f6c32-1735-4313-b402-38567131e5f3")
	eventsChrUUID = ble.MustUUID("100f6c33-1735-4313-b402-38567131e5f3")
	modeChrUUID   = ble.MustUUID("100f6c34-1735-4313-b402-38567131e5f3")

	steamModeCommand = []byte{0xc0, 0x87, 0x03, 0x08, 0x07, 0x00}
)

const (
	// DefaultDeviceName is advertised by a controller in pairing mode.
	DefaultDeviceName = "SteamController"

	// DefaultRetryDelay separates session attempts.
	DefaultRetryDelay = 3 * time.Second
)

// Preferences persists the bonded controller address across runs so a paired
// controller reconnects without being put back into pairing mode.
type Preferences interface {
	// BondedAddress returns the stored address, if any.
	BondedAddress() (string, bool)

	// SetBondedAddress stores addr as the bonded controller.
	SetBondedAddress(addr string) error
}

// Handler receives decoded controller events. It is called from the driver
// goroutine and must not block for long.
type Handler func(Event)

// Config tunes the driver. Zero values take the defaults.
type Config struct {
	DeviceName string
	RetryDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.DeviceName == "" {
		c.DeviceName = DefaultDeviceName
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	return c
}

// Driver finds a Steam Controller, sets it up and streams its events. One
// driver runs one controller session at a time.
type Driver struct {
	stack  *ble.Stack
	prefs  Preferences
	cfg    Config
	logger *logrus.Logger
}

// NewDriver creates a Driver on stack. prefs may be nil, in which case no
// bonded address is remembered and every session requires pairing mode.
func NewDriver(stack *ble.Stack, prefs Preferences, cfg Config) *Driver {
	return &Driver{
		stack:  stack,
		prefs:  prefs,
		cfg:    cfg.withDefaults(),
		logger: stack.Logger(),
	}
}

// Run loops sessions until ctx is cancelled: scan, connect, set up, stream,
// and on any failure or disconnect wait the retry delay and start over.
// Blocks; callers run it on their own goroutine.
func (d *Driver) Run(ctx context.Context, h Handler) error {
	for {
		if err := d.session(ctx, h); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.WithField("error", err).Error("Controller session failed")
		} else {
			d.logger.Info("Controller session ended")
		}

		d.logger.WithField("delay", d.cfg.RetryDelay).Info("Reconnecting soon...")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.cfg.RetryDelay):
		}
	}
}

// session runs one full controller lifetime: returns nil when the stream
// ended with a disconnect, an error for anything that cut setup short.
func (d *Driver) session(ctx context.Context, h Handler) error {
	dev, freshlyPaired, err := d.findController(ctx)
	if err != nil {
		return err
	}

	client := ble.NewClient(d.stack)
	if err := client.Connect(dev); err != nil {
		return fmt.Errorf("failed to connect to controller: %w", err)
	}

	if freshlyPaired && d.prefs != nil {
		// Remember the address so the next session skips pairing mode.
		if err := d.prefs.SetBondedAddress(dev.Addr().String()); err != nil {
			d.logger.WithField("error", err).Warn("Failed to persist bonded address")
		}
	}

	if err := d.setup(dev); err != nil {
		if derr := client.Disconnect(dev.Addr()); derr != nil && !errors.Is(derr, ble.ErrNotConnected) {
			d.logger.WithField("error", derr).Warn("Disconnect after failed setup")
		}
		return err
	}

	h(Event{Kind: Connected})
	d.stream(ctx, dev, h)
	h(Event{Kind: Disconnected})

	if ctx.Err() != nil {
		if err := client.Disconnect(dev.Addr()); err != nil && !errors.Is(err, ble.ErrNotConnected) {
			d.logger.WithField("error", err).Warn("Disconnect on shutdown")
		}
	}
	return nil
}

// findController scans until a bonded controller or one advertising the
// pairing name shows up. The second return reports whether the match was by
// name rather than by the stored bonded address.
func (d *Driver) findController(ctx context.Context) (ble.Device, bool, error) {
	var bonded string
	if d.prefs != nil {
		bonded, _ = d.prefs.BondedAddress()
	}
	if bonded != "" {
		d.logger.WithField("address", bonded).Info("Scanning for bonded controller or one in pairing mode...")
	} else {
		d.logger.Info("Scanning for a controller in pairing mode...")
	}

	scanner := ble.NewScanner(d.stack)
	found, err := scanner.Start()
	if err != nil {
		return ble.Device{}, false, fmt.Errorf("failed to start controller scan: %w", err)
	}
	defer func() {
		if err := scanner.Stop(); err != nil {
			d.logger.WithField("error", err).Warn("Failed to stop scan")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ble.Device{}, false, ctx.Err()
		case dev, ok := <-found:
			if !ok {
				return ble.Device{}, false, fmt.Errorf("controller scan: %w", ble.ErrClosed)
			}
			d.logger.WithField("device", dev.String()).Info("Found device")
			isBonded := bonded != "" && dev.Addr().String() == bonded
			if isBonded || dev.Name() == d.cfg.DeviceName {
				return dev, !isBonded, nil
			}
		}
	}
}

// setup locates the vendor service, enables event notifications and switches
// the controller into steam mode.
func (d *Driver) setup(dev ble.Device) error {
	svc, err := dev.ServiceByUUID(serviceUUID)
	if err != nil {
		return err
	}
	if svc == nil {
		return fmt.Errorf("controller service %s not found", serviceUUID)
	}

	chrs, err := svc.Characteristics()
	if err != nil {
		return err
	}

	var eventsChr, modeChr *ble.Characteristic
	for i := range chrs {
		switch {
		case chrs[i].UUID().Equal(eventsChrUUID):
			eventsChr = &chrs[i]
		case chrs[i].UUID().Equal(modeChrUUID):
			modeChr = &chrs[i]
		}
	}
	if eventsChr == nil {
		return fmt.Errorf("controller events characteristic %s not found", eventsChrUUID)
	}
	if modeChr == nil {
		return fmt.Errorf("controller mode characteristic %s not found", modeChrUUID)
	}

	if err := eventsChr.SetNotify(true); err != nil {
		return fmt.Errorf("failed to enable controller notifications: %w", err)
	}
	if err := modeChr.Write(steamModeCommand); err != nil {
		return fmt.Errorf("failed to switch controller to steam mode: %w", err)
	}
	return nil
}

// stream loans the device event stream and decodes frames until disconnect
// or cancellation. Malformed frames are logged and dropped.
func (d *Driver) stream(ctx context.Context, dev ble.Device, h Handler) {
	err := dev.UseEvents(func(events <-chan ble.ConnEvent) {
		var dec Decoder
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				switch ev.Kind {
				case ble.ConnNotification:
					decoded, err := dec.Decode(ev.Data)
					if err != nil {
						d.logger.WithField("error", err).Error("Dropped controller frame")
						continue
					}
					for _, e := range decoded {
						h(e)
					}
				case ble.ConnDisconnected:
					return
				}
			}
		}
	})
	if err != nil {
		d.logger.WithField("error", err).Error("Controller event stream unavailable")
	}
}
