package ble

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/padctl/padctl/internal/ringchan"
)

const (
	// connectTimeout is enforced by the host on the connect request itself.
	// No other blocking wait in this package carries a timeout.
	connectTimeout = 10 * time.Second

	// Post-connect negotiation targets.
	preferredMTU       uint16 = 512
	dataLengthOctets   uint16 = 251
	dataLengthTxTimeUs uint16 = 2120

	// termReasonRemoteUser is the standard "remote user terminated
	// connection" reason submitted with Terminate.
	termReasonRemoteUser uint8 = 0x13
)

// Client drives connection establishment and teardown against the registry.
//
// State per attempt: Disconnected -> Connecting -> {Connected | Error}, with
// an asynchronous Connected -> Disconnected transition possible at any later
// point, delivered on the device's persistent stream.
type Client struct {
	stack *Stack
}

// NewClient creates a Client bound to stack.
func NewClient(stack *Stack) *Client {
	return &Client{stack: stack}
}

// Connect establishes a connection to dev and blocks until setup resolves.
//
// The installed event sink performs the post-connect negotiation itself:
// request a larger link-layer data length, set the preferred MTU and start
// the MTU exchange; a failed step emits an error event but does not abort
// the steps after it. Once the MTU exchange completes the sink initiates
// security; the encryption-change event, not the raw connect event, is what
// resolves this call as success. A disconnect observed before setup
// completes resolves as ErrDisconnected rather than a failure.
func (c *Client) Connect(dev Device) error {
	c.stack.logger.WithField("device", dev.String()).Info("Connecting to device")

	events := ringchan.New[ConnEvent](eventBacklog)
	sink := c.connSink(events)

	if err := c.stack.withPeer(dev.Addr(), func(p *peerState) {
		p.sink = sink
	}); err != nil {
		return err
	}

	// The host sees only a dispatch thunk; the sink itself lives in the
	// registry and is looked up per event.
	addr := dev.Addr()
	dispatch := func(ev GAPEvent) { c.stack.dispatchGAP(addr, ev) }

	if err := c.stack.host.Connect(AddrTypePublic, dev.Addr(), connectTimeout, dispatch); err != nil {
		return fmt.Errorf("failed to initiate connection to %s: %w", dev.Addr(), err)
	}

	for {
		ev, ok := events.Receive()
		if !ok {
			return fmt.Errorf("connect to %s: %w", dev.Addr(), ErrClosed)
		}
		switch ev.Kind {
		case ConnConnected:
			handle := ev.Handle
			err := c.stack.withPeer(dev.Addr(), func(p *peerState) {
				p.conn = &handle
				p.events = events
			})
			if err != nil {
				return err
			}
			c.stack.logger.WithFields(logrus.Fields{
				"address":     dev.Addr().String(),
				"conn_handle": handle,
			}).Info("Device connected")
			return nil

		case ConnDisconnected:
			_ = c.stack.withPeer(dev.Addr(), func(p *peerState) {
				p.conn = nil
			})
			return fmt.Errorf("connect to %s: %w", dev.Addr(), ErrDisconnected)

		case ConnError:
			_ = c.stack.withPeer(dev.Addr(), func(p *peerState) {
				p.conn = nil
			})
			return &RemoteError{Op: "connect", Status: uint16(ev.Code)}

		default:
			// Notifications cannot arrive before setup completes; drop.
		}
	}
}

// connSink builds the GAP event sink for one connect attempt. It runs on the
// host dispatch goroutine: registry access is lock-scoped and every publish
// goes through the ring, so the sink never blocks.
func (c *Client) connSink(events *ringchan.Ring[ConnEvent]) GAPHandler {
	host := c.stack.host
	logger := c.stack.logger

	return func(ev GAPEvent) {
		switch ev := ev.(type) {
		case *ConnectEvent:
			if ev.Status != 0 {
				logger.WithField("status", ev.Status).Error("Unexpected connection status")
				events.Send(ConnEvent{Kind: ConnError, Code: ev.Status})
				return
			}
			if err := host.SetDataLength(ev.Handle, dataLengthOctets, dataLengthTxTimeUs); err != nil {
				logger.WithField("error", err).Error("Failed to set link data length")
				events.Send(ConnEvent{Kind: ConnError, Code: requestCode(err)})
			}
			if err := host.SetPreferredMTU(preferredMTU); err != nil {
				logger.WithField("error", err).Error("Failed to set preferred MTU")
				events.Send(ConnEvent{Kind: ConnError, Code: requestCode(err)})
			}
			if err := host.ExchangeMTU(ev.Handle); err != nil {
				logger.WithField("error", err).Error("Failed to initiate MTU exchange")
				events.Send(ConnEvent{Kind: ConnError, Code: requestCode(err)})
			}

		case *MTUChangedEvent:
			logger.WithFields(logrus.Fields{
				"conn_handle": ev.Handle,
				"mtu":         ev.MTU,
			}).Info("MTU exchange complete")
			if err := host.SecurityInitiate(ev.Handle); err != nil {
				logger.WithField("error", err).Error("Failed to initiate security")
				events.Send(ConnEvent{Kind: ConnError, Code: requestCode(err)})
			}

		case *EncChangeEvent:
			if ev.Status != 0 {
				logger.WithField("status", ev.Status).Error("Encryption change failed")
				events.Send(ConnEvent{Kind: ConnError, Code: ev.Status})
				return
			}
			events.Send(ConnEvent{Kind: ConnConnected, Handle: ev.Handle})

		case *DisconnectEvent:
			// The event carries only a handle; locate the entry by scanning
			// the registry, then forward.
			c.stack.clearConnByHandle(ev.Handle)
			events.Send(ConnEvent{Kind: ConnDisconnected, Handle: ev.Handle})

		case *NotifyEvent:
			kind := ConnNotification
			if ev.Indication {
				kind = ConnIndication
			}
			events.Send(ConnEvent{Kind: kind, Data: ev.Data})
		}
	}
}

// Disconnect terminates the connection to addr and blocks until the
// Disconnected event arrives. The persistent stream is removed from the
// registry for the wait; other event kinds received in the interim are
// ignored.
func (c *Client) Disconnect(addr Addr) error {
	c.stack.logger.WithField("address", addr.String()).Info("Disconnecting from device")

	var (
		handle ConnHandle
		events *ringchan.Ring[ConnEvent]
	)
	err := c.stack.withPeer(addr, func(p *peerState) {
		if p.conn != nil {
			handle = *p.conn
		}
		events = p.events
		p.events = nil
	})
	if err != nil {
		return err
	}
	if events == nil {
		return fmt.Errorf("%w: %s", ErrNotConnected, addr)
	}

	if err := c.stack.host.Terminate(handle, termReasonRemoteUser); err != nil {
		// Termination was not accepted; hand the stream back.
		_ = c.stack.withPeer(addr, func(p *peerState) {
			if p.conn != nil {
				p.events = events
			}
		})
		return fmt.Errorf("failed to terminate connection to %s: %w", addr, err)
	}

	for {
		ev, ok := events.Receive()
		if !ok {
			return fmt.Errorf("disconnect %s: %w", addr, ErrClosed)
		}
		if ev.Kind == ConnDisconnected {
			return nil
		}
	}
}

// Close cancels any in-flight connect attempt and disconnects every peer
// currently marked connected.
func (c *Client) Close() error {
	c.stack.logger.Info("Client closing")

	if err := c.stack.host.ConnCancel(); err != nil {
		c.stack.logger.WithField("error", err).Debug("No in-flight connection attempt to cancel")
	}

	var firstErr error
	for _, addr := range c.stack.connectedAddrs() {
		if err := c.Disconnect(addr); err != nil {
			c.stack.logger.WithFields(logrus.Fields{
				"address": addr.String(),
				"error":   err,
			}).Warn("Disconnect failed during client close")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// requestCode extracts the numeric submission code for error events.
func requestCode(err error) int {
	if hre, ok := err.(*HostRequestError); ok {
		return hre.Code
	}
	return -1
}
