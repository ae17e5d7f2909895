//go:build linux

package goble

import (
	"sync"

	blelib "github.com/go-ble/ble"

	"github.com/padctl/padctl/ble"
)

// cccUUID16 identifies the client characteristic configuration descriptor.
const cccUUID16 uint16 = 0x2902

// conn is the per-connection state: the go-ble client plus a cache of
// discovered attributes. The cache resolves the handle-based requests of the
// Host interface back to the go-ble objects the client API wants.
type conn struct {
	host    *Host
	handle  ble.ConnHandle
	client  blelib.Client
	handler ble.GAPHandler

	mu       sync.Mutex
	attMTU   uint16
	services map[uint16]*blelib.Service        // by start handle
	chars    map[uint16]*blelib.Characteristic // by value handle
	descs    map[uint16]*blelib.Descriptor     // by handle
	descChr  map[uint16]*blelib.Characteristic // descriptor handle -> parent
}

func newConn(host *Host, handle ble.ConnHandle, client blelib.Client, handler ble.GAPHandler) *conn {
	return &conn{
		host:     host,
		handle:   handle,
		client:   client,
		handler:  handler,
		attMTU:   23,
		services: make(map[uint16]*blelib.Service),
		chars:    make(map[uint16]*blelib.Characteristic),
		descs:    make(map[uint16]*blelib.Descriptor),
		descChr:  make(map[uint16]*blelib.Characteristic),
	}
}

func (c *conn) mtu() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attMTU
}

func (c *conn) setMTU(mtu uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attMTU = mtu
}

// deliver streams the result records and the completion status of one
// discovery run on the dispatch goroutine.
func deliver[T any](h *Host, dh ble.DiscoveryHandler[T], recs []T, failed bool) {
	h.post(func() {
		status := ble.StatusDone
		if failed {
			status = statusFailed
		} else {
			for i := range recs {
				rec := recs[i]
				dh(&rec, 0)
			}
		}
		dh(nil, status)
	})
}

func (c *conn) discoverServices(dh ble.DiscoveryHandler[ble.ServiceRecord]) error {
	go func() {
		svcs, err := c.client.DiscoverServices(nil)
		if err != nil {
			c.host.logger.WithField("error", err).Error("Service discovery failed")
			deliver(c.host, dh, nil, true)
			return
		}

		recs := make([]ble.ServiceRecord, 0, len(svcs))
		c.mu.Lock()
		for _, s := range svcs {
			c.services[s.Handle] = s
			recs = append(recs, ble.ServiceRecord{
				StartHandle: s.Handle,
				EndHandle:   s.EndHandle,
				UUID:        fromLibUUID(s.UUID),
			})
		}
		c.mu.Unlock()
		deliver(c.host, dh, recs, false)
	}()
	return nil
}

func (c *conn) discoverCharacteristics(startHandle, endHandle uint16, dh ble.DiscoveryHandler[ble.CharacteristicRecord]) error {
	c.mu.Lock()
	svc, ok := c.services[startHandle]
	c.mu.Unlock()
	if !ok {
		// Range not seen through service discovery on this connection;
		// synthesize the container go-ble needs.
		svc = &blelib.Service{Handle: startHandle, EndHandle: endHandle}
	}

	go func() {
		chrs, err := c.client.DiscoverCharacteristics(nil, svc)
		if err != nil {
			c.host.logger.WithField("error", err).Error("Characteristic discovery failed")
			deliver(c.host, dh, nil, true)
			return
		}

		recs := make([]ble.CharacteristicRecord, 0, len(chrs))
		c.mu.Lock()
		for _, chr := range chrs {
			c.chars[chr.ValueHandle] = chr
			recs = append(recs, ble.CharacteristicRecord{
				DefHandle:  chr.Handle,
				ValHandle:  chr.ValueHandle,
				Properties: ble.Properties(chr.Property),
				UUID:       fromLibUUID(chr.UUID),
			})
		}
		c.mu.Unlock()
		deliver(c.host, dh, recs, false)
	}()
	return nil
}

func (c *conn) discoverDescriptors(chrValHandle, endHandle uint16, dh ble.DiscoveryHandler[ble.DescriptorRecord]) error {
	c.mu.Lock()
	chr, ok := c.chars[chrValHandle]
	c.mu.Unlock()
	if !ok {
		return &ble.HostRequestError{Op: "discover descriptors", Code: 1}
	}
	chr.EndHandle = endHandle

	go func() {
		dscs, err := c.client.DiscoverDescriptors(nil, chr)
		if err != nil {
			c.host.logger.WithField("error", err).Error("Descriptor discovery failed")
			deliver(c.host, dh, nil, true)
			return
		}

		recs := make([]ble.DescriptorRecord, 0, len(dscs))
		c.mu.Lock()
		for _, d := range dscs {
			c.descs[d.Handle] = d
			c.descChr[d.Handle] = chr
			recs = append(recs, ble.DescriptorRecord{
				Handle: d.Handle,
				UUID:   fromLibUUID(d.UUID),
			})
		}
		c.mu.Unlock()
		deliver(c.host, dh, recs, false)
	}()
	return nil
}

// write resolves the attribute handle against the discovery cache and runs
// the request on a worker goroutine. A write to the client configuration
// descriptor is translated into go-ble subscribe calls, which is where its
// notification delivery is hooked up.
func (c *conn) write(attrHandle uint16, data []byte, wh ble.WriteHandler) error {
	c.mu.Lock()
	chr, isChr := c.chars[attrHandle]
	dsc, isDsc := c.descs[attrHandle]
	parent := c.descChr[attrHandle]
	c.mu.Unlock()

	switch {
	case isChr:
		go func() {
			wh(writeStatus(c.client.WriteCharacteristic(chr, data, false)))
		}()
		return nil

	case isDsc && isCCC(dsc) && parent != nil && len(data) == 2:
		go func() {
			wh(writeStatus(c.applyCCC(parent, data)))
		}()
		return nil

	case isDsc:
		go func() {
			wh(writeStatus(c.client.WriteDescriptor(dsc, data)))
		}()
		return nil

	default:
		return &ble.HostRequestError{Op: "write", Code: 1}
	}
}

func (c *conn) writeNoResponse(attrHandle uint16, data []byte) error {
	c.mu.Lock()
	chr, ok := c.chars[attrHandle]
	c.mu.Unlock()
	if !ok {
		return &ble.HostRequestError{Op: "write no response", Code: 1}
	}
	go func() {
		if err := c.client.WriteCharacteristic(chr, data, true); err != nil {
			c.host.logger.WithField("error", err).Warn("Write without response failed")
		}
	}()
	return nil
}

// applyCCC maps the 2-byte configuration value onto subscribe/unsubscribe.
func (c *conn) applyCCC(chr *blelib.Characteristic, data []byte) error {
	value := uint16(data[0]) | uint16(data[1])<<8

	notify := func(payload []byte) {
		c.forwardNotification(chr.ValueHandle, payload, false)
	}
	indicate := func(payload []byte) {
		c.forwardNotification(chr.ValueHandle, payload, true)
	}

	switch value {
	case 1:
		return c.client.Subscribe(chr, false, notify)
	case 2:
		return c.client.Subscribe(chr, true, indicate)
	default:
		if err := c.client.Unsubscribe(chr, false); err != nil {
			return err
		}
		return c.client.Unsubscribe(chr, true)
	}
}

func (c *conn) forwardNotification(attrHandle uint16, payload []byte, indication bool) {
	data := append([]byte(nil), payload...)
	c.host.post(func() {
		c.handler(&ble.NotifyEvent{
			Handle:     c.handle,
			AttrHandle: attrHandle,
			Data:       data,
			Indication: indication,
		})
	})
}

func writeStatus(err error) uint16 {
	if err != nil {
		return statusFailed
	}
	return 0
}

func isCCC(d *blelib.Descriptor) bool {
	u := fromLibUUID(d.UUID)
	return u.Kind() == ble.UUID16 && u.Uint16() == cccUUID16
}
