package ble

import (
	"fmt"

	"github.com/padctl/padctl/internal/ringchan"
)

// Device is a lightweight handle to a scanned peer: the address plus a
// reference to the stack. It never owns peer state directly; every access
// goes through the registry, so a Device stays valid across connect and
// disconnect cycles and is cheap to copy.
type Device struct {
	addr  Addr
	stack *Stack
}

// Addr returns the peer address.
func (d Device) Addr() Addr { return d.addr }

// Name returns the display name captured from the peer's advertisement, or
// "" if it did not advertise a complete local name.
func (d Device) Name() string {
	var name string
	if err := d.stack.withPeer(d.addr, func(p *peerState) {
		name = p.name
	}); err != nil {
		return ""
	}
	return name
}

// ConnHandle returns the current connection handle, if connected.
func (d Device) ConnHandle() (ConnHandle, bool) {
	var (
		h  ConnHandle
		ok bool
	)
	_ = d.stack.withPeer(d.addr, func(p *peerState) {
		if p.conn != nil {
			h, ok = *p.conn, true
		}
	})
	return h, ok
}

// IsConnected reports whether the device currently holds a connection.
func (d Device) IsConnected() bool {
	_, ok := d.ConnHandle()
	return ok
}

func (d Device) String() string {
	return fmt.Sprintf("Device{addr=%s name=%s}", d.addr, d.Name())
}

// Services discovers all primary services on the connected peer. Results
// arrive in discovery order; an empty slice is a successful result.
func (d Device) Services() ([]Service, error) {
	conn, ok := d.ConnHandle()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, d.addr)
	}

	d.stack.logger.WithField("device", d.String()).Info("Discovering services")

	recs, err := collect(d.stack, "service discovery", conn,
		func(h DiscoveryHandler[ServiceRecord]) error {
			return d.stack.host.DiscoverServices(conn, h)
		})
	if err != nil {
		return nil, err
	}

	svcs := make([]Service, 0, len(recs))
	for _, rec := range recs {
		svc := Service{
			stack:       d.stack,
			conn:        conn,
			StartHandle: rec.StartHandle,
			EndHandle:   rec.EndHandle,
			uuid:        rec.UUID,
		}
		d.stack.logger.WithField("service", svc.String()).Info("Found service")
		svcs = append(svcs, svc)
	}
	return svcs, nil
}

// ServiceByUUID discovers services and returns the first one matching uuid,
// or nil if the peer does not expose it.
func (d Device) ServiceByUUID(uuid UUID) (*Service, error) {
	svcs, err := d.Services()
	if err != nil {
		return nil, err
	}
	for i := range svcs {
		if svcs[i].UUID().Equal(uuid) {
			return &svcs[i], nil
		}
	}
	return nil, nil
}

// UseEvents loans the device's persistent event stream to fn for exclusive
// consumption. The stream is handed back to the registry when fn returns,
// but only if the device is still connected; after a disconnect the stream
// is dropped. Returns ErrNotConnected if no stream is installed (not
// connected, or already on loan).
func (d Device) UseEvents(fn func(<-chan ConnEvent)) error {
	var events *ringchan.Ring[ConnEvent]
	if err := d.stack.withPeer(d.addr, func(p *peerState) {
		events = p.events
		p.events = nil
	}); err != nil {
		return err
	}
	if events == nil {
		return fmt.Errorf("%w: no event stream for %s", ErrNotConnected, d.addr)
	}

	fn(events.C())

	return d.stack.withPeer(d.addr, func(p *peerState) {
		if p.conn != nil {
			p.events = events
		}
	})
}
