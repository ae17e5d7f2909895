package ble

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/padctl/padctl/internal/ringchan"
)

const (
	// syncPollInterval is how often NewStack re-checks the host sync flag
	// while waiting for startup.
	syncPollInterval = 100 * time.Millisecond

	// eventBacklog is the capacity of a device's persistent event stream.
	eventBacklog = 128
)

// peerState is the mutable per-peer record held in the registry. Invariant:
// conn is non-nil iff the device is presently connected. events is non-nil
// only while connected and not on loan to a blocking caller.
type peerState struct {
	name   string
	conn   *ConnHandle
	sink   GAPHandler
	events *ringchan.Ring[ConnEvent]
}

// Stack owns the native host lifecycle and the device registry. The registry
// is guarded by exactly one lock; host callbacks and caller goroutines both
// go through it. The lock must never be held across a blocking receive.
type Stack struct {
	host   Host
	logger *logrus.Logger

	mu      sync.Mutex
	devices map[Addr]*peerState

	synced atomic.Bool
}

// NewStack starts the host with bonding enabled and blocks until the host
// signals sync. There is no timeout on the sync wait; a host that never
// syncs blocks the caller.
func NewStack(host Host, logger *logrus.Logger) (*Stack, error) {
	if logger == nil {
		logger = logrus.New()
	}

	s := &Stack{
		host:    host,
		logger:  logger,
		devices: make(map[Addr]*peerState),
	}

	cfg := HostConfig{
		OnReset: func(reason int) {
			s.logger.WithField("reason", reason).Error("Host reset")
		},
		OnSync: func() {
			s.logger.Info("Host sync complete")
			s.synced.Store(true)
		},
		Bonding:      true,
		OurKeyDist:   1,
		TheirKeyDist: 1,
	}
	if err := host.Start(cfg); err != nil {
		return nil, fmt.Errorf("failed to start host: %w", err)
	}

	s.logger.Info("Waiting for host sync...")
	for !s.synced.Load() {
		time.Sleep(syncPollInterval)
	}

	return s, nil
}

// Close stops the host. Deinitialization only runs after a successful stop;
// if stop fails the host is left partially alive and the error is returned.
func (s *Stack) Close() error {
	s.logger.Info("Stopping host...")
	if err := s.host.Stop(); err != nil {
		s.logger.WithField("error", err).Error("Host stop failed; skipping deinit")
		return err
	}
	if err := s.host.Deinit(); err != nil {
		s.logger.WithField("error", err).Error("Host deinit failed")
		s.synced.Store(false)
		return err
	}
	s.synced.Store(false)
	return nil
}

// Host exposes the underlying native host.
func (s *Stack) Host() Host { return s.host }

// Logger exposes the stack logger for collaborators.
func (s *Stack) Logger() *logrus.Logger { return s.logger }

// insertPeer creates or overwrites the registry entry for addr. Repeated
// advertisements mid-scan reset the entry.
func (s *Stack) insertPeer(addr Addr, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[addr] = &peerState{name: name}
}

// withPeer runs fn with the registry lock held and the peer's state. fn must
// not block.
func (s *Stack) withPeer(addr Addr, fn func(*peerState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.devices[addr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, addr)
	}
	fn(p)
	return nil
}

// clearConnByHandle clears the connection handle of every entry currently
// holding h. Disconnect events carry only a handle, so the entry is located
// by scanning the registry rather than by address.
func (s *Stack) clearConnByHandle(h ConnHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for addr, p := range s.devices {
		if p.conn != nil && *p.conn == h {
			p.conn = nil
			s.logger.WithFields(logrus.Fields{
				"address":     addr.String(),
				"conn_handle": h,
			}).Info("Cleared connection handle after disconnect")
		}
	}
}

// dispatchGAP routes a host GAP event to the sink installed for addr. The
// sink is copied out under the lock and invoked outside it: sinks touch the
// registry themselves.
func (s *Stack) dispatchGAP(addr Addr, ev GAPEvent) {
	var sink GAPHandler
	_ = s.withPeer(addr, func(p *peerState) {
		sink = p.sink
	})
	if sink != nil {
		sink(ev)
	}
}

// connectedAddrs snapshots the addresses currently marked connected.
func (s *Stack) connectedAddrs() []Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	var addrs []Addr
	for addr, p := range s.devices {
		if p.conn != nil {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}
