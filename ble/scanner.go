package ble

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/padctl/padctl/internal/ringchan"
)

// Slow scan timing: a long interval with a short window keeps the radio
// mostly idle so a concurrent WiFi link stays usable.
const (
	scanSlowInterval uint16 = 0x0800 // 1.28 s
	scanSlowWindow   uint16 = 0x0012 // 11.25 ms

	// scanBacklog bounds the discovered-device stream; the oldest entry is
	// dropped when the consumer lags.
	scanBacklog = 64
)

// Scanner performs passive advertisement discovery and feeds the registry.
type Scanner struct {
	stack  *Stack
	params ScanParams
	found  *ringchan.Ring[Device]
}

// NewScanner creates a Scanner with passive scanning, duplicate filtering
// and slow interval/window timing.
func NewScanner(stack *Stack) *Scanner {
	return &Scanner{
		stack: stack,
		params: ScanParams{
			Passive:          true,
			FilterDuplicates: true,
			Limited:          false,
			Interval:         scanSlowInterval,
			Window:           scanSlowWindow,
			FilterPolicy:     0,
		},
		found: ringchan.New[Device](scanBacklog),
	}
}

// Start begins an unbounded discovery procedure and returns the stream of
// discovered devices. Each received advertisement is parsed for its complete
// local name, inserted into the registry (overwriting any previous entry for
// the same address) and forwarded as a Device handle.
func (sc *Scanner) Start() (<-chan Device, error) {
	ownAddrType, err := sc.stack.host.InferOwnAddrType()
	if err != nil {
		return nil, fmt.Errorf("failed to determine own address type: %w", err)
	}

	h := func(ev ScanEvent) {
		switch ev := ev.(type) {
		case *ScanResult:
			name := AdvFields(ev.Data).CompleteLocalName()
			sc.stack.insertPeer(ev.Addr, name)
			if sc.found.Send(Device{addr: ev.Addr, stack: sc.stack}) {
				sc.stack.logger.Warn("Scan consumer lagging; dropped oldest discovered device")
			}
			sc.stack.logger.WithFields(logrus.Fields{
				"address": ev.Addr.String(),
				"name":    name,
				"rssi":    ev.RSSI,
			}).Debug("Discovered device")
		case *ScanComplete:
			sc.stack.logger.WithField("reason", ev.Reason).Info("Discovery complete")
		}
	}

	if err := sc.stack.host.Discover(ownAddrType, Forever, sc.params, h); err != nil {
		return nil, fmt.Errorf("failed to initiate discovery: %w", err)
	}
	return sc.found.C(), nil
}

// Stop cancels an active discovery procedure. Stopping an idle scanner is
// not an error.
func (sc *Scanner) Stop() error {
	if err := sc.stack.host.DiscoverCancel(); err != nil {
		return fmt.Errorf("failed to stop discovery: %w", err)
	}
	return nil
}

// FlushDuplicates clears the controller's duplicate-filter cache so already
// seen advertisers are reported again.
func (sc *Scanner) FlushDuplicates() error {
	if err := sc.stack.host.FlushDuplicateCache(); err != nil {
		return fmt.Errorf("failed to flush duplicate cache: %w", err)
	}
	return nil
}
