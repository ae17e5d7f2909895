//go:build linux

// Package goble adapts the synchronous github.com/go-ble/ble Linux client
// into the callback-driven Host model: every request submits, and results
// arrive as events on a single dispatch goroutine.
package goble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	blelib "github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	"github.com/sirupsen/logrus"

	"github.com/padctl/padctl/ble"
)

// statusFailed is the generic completion status reported when an adapted
// procedure fails without a finer-grained code from the kernel stack.
const statusFailed uint16 = 0x01

// defaultPreferredMTU is used for the MTU exchange until SetPreferredMTU
// overrides it.
const defaultPreferredMTU uint16 = 256

// Host drives a BlueZ HCI device through go-ble. Procedures that the kernel
// runs synchronously (dial, discovery, writes) execute on worker goroutines
// and report through the dispatch goroutine, preserving the contract that
// submission never blocks on the remote peer.
type Host struct {
	logger *logrus.Logger

	mu      sync.Mutex
	dev     *linux.Device
	ops     chan func()
	started bool

	scanCancel context.CancelFunc

	conns        *hashmap.Map[uint16, *conn]
	nextHandle   uint16
	preferredMTU uint16

	pendingCancel context.CancelFunc
}

var _ ble.Host = (*Host)(nil)

// NewHost creates an unstarted Host.
func NewHost(logger *logrus.Logger) *Host {
	if logger == nil {
		logger = logrus.New()
	}
	return &Host{
		logger:       logger,
		conns:        hashmap.New[uint16, *conn](),
		nextHandle:   1,
		preferredMTU: defaultPreferredMTU,
	}
}

// Start opens the default HCI device and launches the dispatch goroutine.
// The kernel stack is ready as soon as the device opens, so OnSync fires
// immediately. Bonding configuration is handled by the kernel SMP layer and
// the supplied key distribution masks are not forwarded.
func (h *Host) Start(cfg ble.HostConfig) error {
	dev, err := linux.NewDevice()
	if err != nil {
		return fmt.Errorf("failed to open HCI device: %w", err)
	}

	h.mu.Lock()
	h.dev = dev
	h.ops = make(chan func(), 256)
	h.started = true
	ops := h.ops
	h.mu.Unlock()

	go func() {
		for fn := range ops {
			fn()
		}
	}()

	if cfg.OnSync != nil {
		h.post(cfg.OnSync)
	}
	return nil
}

// Stop cancels any scan, drops every connection and halts dispatch.
func (h *Host) Stop() error {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return nil
	}
	h.started = false
	if h.scanCancel != nil {
		h.scanCancel()
		h.scanCancel = nil
	}
	dev := h.dev
	close(h.ops)
	h.mu.Unlock()

	h.conns.Range(func(_ uint16, c *conn) bool {
		if err := c.client.CancelConnection(); err != nil {
			h.logger.WithField("error", err).Debug("Cancel connection during stop")
		}
		return true
	})

	if err := dev.Stop(); err != nil {
		return fmt.Errorf("failed to stop HCI device: %w", err)
	}
	return nil
}

// Deinit releases nothing further; device teardown happens in Stop.
func (h *Host) Deinit() error { return nil }

func (h *Host) post(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started {
		return
	}
	h.ops <- fn
}

// InferOwnAddrType always selects the public address; the kernel manages
// privacy addressing on its own.
func (h *Host) InferOwnAddrType() (uint8, error) {
	return ble.AddrTypePublic, nil
}

// Discover starts a scan. go-ble surfaces parsed advertisements rather than
// raw AD payloads, so a complete-local-name structure is synthesized for the
// scan result data.
func (h *Host) Discover(_ uint8, duration time.Duration, params ble.ScanParams, handler ble.ScanHandler) error {
	h.mu.Lock()
	if h.scanCancel != nil {
		h.mu.Unlock()
		return &ble.HostRequestError{Op: "discover", Code: 1}
	}
	ctx := context.Background()
	var cancel context.CancelFunc
	if duration == ble.Forever {
		ctx, cancel = context.WithCancel(ctx)
	} else {
		ctx, cancel = context.WithTimeout(ctx, duration)
	}
	h.scanCancel = cancel
	dev := h.dev
	h.mu.Unlock()

	advHandler := func(a blelib.Advertisement) {
		addr, err := parseAddr(a.Addr().String())
		if err != nil {
			h.logger.WithField("error", err).Debug("Unparseable advertiser address")
			return
		}
		res := &ble.ScanResult{
			Addr: addr,
			RSSI: int8(a.RSSI()),
			Data: synthesizeAdvData(a.LocalName()),
		}
		h.post(func() { handler(res) })
	}

	go func() {
		err := dev.Scan(ctx, !params.FilterDuplicates, advHandler)
		if err != nil && ctx.Err() == nil {
			h.logger.WithField("error", err).Error("Scan terminated")
		}
		h.post(func() { handler(&ble.ScanComplete{}) })
	}()
	return nil
}

// DiscoverCancel stops an active scan; idle is not an error.
func (h *Host) DiscoverCancel() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.scanCancel != nil {
		h.scanCancel()
		h.scanCancel = nil
	}
	return nil
}

// FlushDuplicateCache is a no-op; duplicate filtering lives in the kernel
// and is reset when a scan restarts.
func (h *Host) FlushDuplicateCache() error { return nil }

// Connect dials the peer on a worker goroutine. Dial failure surfaces as a
// ConnectEvent with a non-zero status; success installs a connection entry
// and a monitor that converts the client's disconnect signal into a
// DisconnectEvent.
func (h *Host) Connect(_ uint8, peer ble.Addr, timeout time.Duration, handler ble.GAPHandler) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	h.mu.Lock()
	h.pendingCancel = cancel
	dev := h.dev
	h.mu.Unlock()

	go func() {
		defer cancel()
		client, err := dev.Dial(ctx, blelib.NewAddr(peer.String()))

		h.mu.Lock()
		h.pendingCancel = nil
		h.mu.Unlock()

		if err != nil {
			h.logger.WithFields(logrus.Fields{
				"address": peer.String(),
				"error":   err,
			}).Error("Dial failed")
			h.post(func() { handler(&ble.ConnectEvent{Status: int(statusFailed)}) })
			return
		}

		h.mu.Lock()
		handle := h.nextHandle
		h.nextHandle++
		h.mu.Unlock()

		c := newConn(h, ble.ConnHandle(handle), client, handler)
		h.conns.Set(handle, c)

		go func() {
			<-client.Disconnected()
			h.conns.Del(handle)
			h.post(func() { handler(&ble.DisconnectEvent{Handle: ble.ConnHandle(handle)}) })
		}()

		h.post(func() { handler(&ble.ConnectEvent{Handle: ble.ConnHandle(handle)}) })
	}()
	return nil
}

// ConnCancel aborts an in-flight dial, if any.
func (h *Host) ConnCancel() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pendingCancel != nil {
		h.pendingCancel()
		h.pendingCancel = nil
	}
	return nil
}

// Terminate closes the connection; the disconnect monitor delivers the event.
func (h *Host) Terminate(handle ble.ConnHandle, _ uint8) error {
	c, ok := h.conns.Get(uint16(handle))
	if !ok {
		return &ble.HostRequestError{Op: "terminate", Code: 1}
	}
	if err := c.client.CancelConnection(); err != nil {
		return &ble.HostRequestError{Op: "terminate", Code: 1}
	}
	return nil
}

// SetDataLength is a no-op; the kernel negotiates link-layer data length.
func (h *Host) SetDataLength(ble.ConnHandle, uint16, uint16) error { return nil }

// SetPreferredMTU records the MTU requested by the next exchange.
func (h *Host) SetPreferredMTU(mtu uint16) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.preferredMTU = mtu
	return nil
}

// ExchangeMTU runs the exchange on a worker goroutine and reports the
// negotiated value as an MTUChangedEvent.
func (h *Host) ExchangeMTU(handle ble.ConnHandle) error {
	c, ok := h.conns.Get(uint16(handle))
	if !ok {
		return &ble.HostRequestError{Op: "exchange MTU", Code: 1}
	}
	h.mu.Lock()
	preferred := h.preferredMTU
	h.mu.Unlock()

	go func() {
		txMTU, err := c.client.ExchangeMTU(int(preferred))
		status := 0
		if err != nil {
			h.logger.WithField("error", err).Warn("MTU exchange failed; keeping default")
			status = int(statusFailed)
			txMTU = int(c.mtu())
		}
		c.setMTU(uint16(txMTU))
		h.post(func() {
			c.handler(&ble.MTUChangedEvent{Handle: handle, MTU: uint16(txMTU), Status: status})
		})
	}()
	return nil
}

// SecurityInitiate reports the link as secured. Pairing and encryption are
// owned by the kernel SMP layer and complete transparently during dial for a
// bonded peer, so the encryption-change event is synthesized here.
func (h *Host) SecurityInitiate(handle ble.ConnHandle) error {
	c, ok := h.conns.Get(uint16(handle))
	if !ok {
		return &ble.HostRequestError{Op: "security initiate", Code: 1}
	}
	h.post(func() { c.handler(&ble.EncChangeEvent{Handle: handle}) })
	return nil
}

// MTU returns the negotiated ATT MTU for the connection, or the minimum if
// the handle is unknown.
func (h *Host) MTU(handle ble.ConnHandle) uint16 {
	c, ok := h.conns.Get(uint16(handle))
	if !ok {
		return 23
	}
	return c.mtu()
}

func (h *Host) DiscoverServices(handle ble.ConnHandle, dh ble.DiscoveryHandler[ble.ServiceRecord]) error {
	c, ok := h.conns.Get(uint16(handle))
	if !ok {
		return &ble.HostRequestError{Op: "discover services", Code: 1}
	}
	return c.discoverServices(dh)
}

func (h *Host) DiscoverCharacteristics(handle ble.ConnHandle, startHandle, endHandle uint16, dh ble.DiscoveryHandler[ble.CharacteristicRecord]) error {
	c, ok := h.conns.Get(uint16(handle))
	if !ok {
		return &ble.HostRequestError{Op: "discover characteristics", Code: 1}
	}
	return c.discoverCharacteristics(startHandle, endHandle, dh)
}

func (h *Host) DiscoverDescriptors(handle ble.ConnHandle, chrValHandle, endHandle uint16, dh ble.DiscoveryHandler[ble.DescriptorRecord]) error {
	c, ok := h.conns.Get(uint16(handle))
	if !ok {
		return &ble.HostRequestError{Op: "discover descriptors", Code: 1}
	}
	return c.discoverDescriptors(chrValHandle, endHandle, dh)
}

func (h *Host) Write(handle ble.ConnHandle, attrHandle uint16, data []byte, wh ble.WriteHandler) error {
	c, ok := h.conns.Get(uint16(handle))
	if !ok {
		return &ble.HostRequestError{Op: "write", Code: 1}
	}
	return c.write(attrHandle, data, wh)
}

func (h *Host) WriteNoResponse(handle ble.ConnHandle, attrHandle uint16, data []byte) error {
	c, ok := h.conns.Get(uint16(handle))
	if !ok {
		return &ble.HostRequestError{Op: "write no response", Code: 1}
	}
	return c.writeNoResponse(attrHandle, data)
}
