// Package bletest provides a scripted in-memory Host for exercising the
// synchronous stack without a radio. A single dispatch goroutine delivers
// every callback, matching the production host's threading model.
package bletest

import (
	"sync"
	"time"

	"github.com/padctl/padctl/ble"
)

// DefaultMTU is reported for connections with no scripted MTU.
const DefaultMTU uint16 = 23

// WriteRecord captures one submitted write request.
type WriteRecord struct {
	Conn       ble.ConnHandle
	AttrHandle uint16
	Data       []byte
	NoResponse bool
}

// FakeHost is a scripted ble.Host. The zero value behaves as a well-behaved
// host: connects succeed, the MTU exchange and security handshake complete,
// discovery replays the scripted tables, writes return status zero. Error
// fields switch individual requests to failure.
type FakeHost struct {
	mu sync.Mutex

	started  bool
	ops      chan func()
	workerWG sync.WaitGroup

	scanHandler ble.ScanHandler
	scanning    bool
	flushCount  int

	pendingConnect ble.GAPHandler
	conns          map[ble.ConnHandle]ble.GAPHandler
	nextHandle     ble.ConnHandle

	mtus   map[ble.ConnHandle]uint16
	writes []WriteRecord

	// Scripted GATT database.
	Services        []ble.ServiceRecord
	Characteristics map[uint16][]ble.CharacteristicRecord // keyed by range start handle
	Descriptors     map[uint16][]ble.DescriptorRecord     // keyed by characteristic value handle

	// Completion status overrides; zero means StatusDone.
	ServiceStatus        uint16
	CharacteristicStatus uint16
	DescriptorStatus     uint16

	// Connect scripting.
	ConnectStatus    int  // non-zero: connect event reports failure
	DropBeforeSetup  bool // deliver a disconnect instead of a connect event
	EncChangeStatus  int  // non-zero: encryption change reports failure
	NegotiatedMTU    uint16
	SecurityInitErr  error
	ExchangeMTUErr   error
	SetDataLenErr    error
	SetPrefMTUErr    error
	ConnectErr       error
	TerminateErr     error
	WriteErr         error
	WriteStatus      uint16
	DiscoverErr      error
	InferAddrTypeErr error
}

var _ ble.Host = (*FakeHost)(nil)

// Start launches the dispatch goroutine and signals sync immediately.
func (f *FakeHost) Start(cfg ble.HostConfig) error {
	f.mu.Lock()
	f.started = true
	f.ops = make(chan func(), 256)
	f.conns = make(map[ble.ConnHandle]ble.GAPHandler)
	f.mtus = make(map[ble.ConnHandle]uint16)
	f.nextHandle = 1
	ops := f.ops
	f.mu.Unlock()

	f.workerWG.Add(1)
	go func() {
		defer f.workerWG.Done()
		for fn := range ops {
			fn()
		}
	}()

	if cfg.OnSync != nil {
		f.post(cfg.OnSync)
	}
	return nil
}

// Stop halts the dispatch goroutine and waits for queued callbacks.
func (f *FakeHost) Stop() error {
	f.mu.Lock()
	if !f.started {
		f.mu.Unlock()
		return nil
	}
	f.started = false
	close(f.ops)
	f.mu.Unlock()
	f.workerWG.Wait()
	return nil
}

// Deinit is a no-op.
func (f *FakeHost) Deinit() error { return nil }

func (f *FakeHost) post(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return
	}
	f.ops <- fn
}

func (f *FakeHost) InferOwnAddrType() (uint8, error) {
	if f.InferAddrTypeErr != nil {
		return 0, f.InferAddrTypeErr
	}
	return ble.AddrTypePublic, nil
}

func (f *FakeHost) Discover(_ uint8, _ time.Duration, _ ble.ScanParams, h ble.ScanHandler) error {
	if f.DiscoverErr != nil {
		return f.DiscoverErr
	}
	f.mu.Lock()
	f.scanHandler = h
	f.scanning = true
	f.mu.Unlock()
	return nil
}

func (f *FakeHost) DiscoverCancel() error {
	f.mu.Lock()
	f.scanning = false
	f.mu.Unlock()
	return nil
}

func (f *FakeHost) FlushDuplicateCache() error {
	f.mu.Lock()
	f.flushCount++
	f.mu.Unlock()
	return nil
}

// FlushCount reports how many times the duplicate cache was flushed.
func (f *FakeHost) FlushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushCount
}

// Scanning reports whether a discovery procedure is active.
func (f *FakeHost) Scanning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scanning
}

// Advertise delivers one advertisement to an active scan.
func (f *FakeHost) Advertise(addr ble.Addr, rssi int8, data []byte) {
	f.mu.Lock()
	h := f.scanHandler
	scanning := f.scanning
	f.mu.Unlock()
	if !scanning || h == nil {
		return
	}
	f.post(func() { h(&ble.ScanResult{Addr: addr, RSSI: rssi, Data: data}) })
}

// AdvertiseName is Advertise with a synthesized complete-local-name field.
func (f *FakeHost) AdvertiseName(addr ble.Addr, name string) {
	data := append([]byte{byte(len(name) + 1), 0x09}, []byte(name)...)
	f.Advertise(addr, -60, data)
}

func (f *FakeHost) Connect(_ uint8, _ ble.Addr, _ time.Duration, h ble.GAPHandler) error {
	if f.ConnectErr != nil {
		return f.ConnectErr
	}

	f.mu.Lock()
	handle := f.nextHandle
	f.nextHandle++
	f.pendingConnect = h
	drop := f.DropBeforeSetup
	status := f.ConnectStatus
	f.mu.Unlock()

	if drop {
		f.post(func() { h(&ble.DisconnectEvent{Handle: handle, Reason: 0x08}) })
		return nil
	}

	f.mu.Lock()
	f.conns[handle] = h
	f.mu.Unlock()

	f.post(func() { h(&ble.ConnectEvent{Handle: handle, Status: status}) })
	return nil
}

func (f *FakeHost) ConnCancel() error {
	f.mu.Lock()
	f.pendingConnect = nil
	f.mu.Unlock()
	return nil
}

func (f *FakeHost) Terminate(conn ble.ConnHandle, reason uint8) error {
	if f.TerminateErr != nil {
		return f.TerminateErr
	}
	f.mu.Lock()
	h := f.conns[conn]
	delete(f.conns, conn)
	f.mu.Unlock()
	if h != nil {
		f.post(func() { h(&ble.DisconnectEvent{Handle: conn, Reason: int(reason)}) })
	}
	return nil
}

// Drop simulates an unsolicited remote disconnect on a live connection.
func (f *FakeHost) Drop(conn ble.ConnHandle, reason int) {
	f.mu.Lock()
	h := f.conns[conn]
	delete(f.conns, conn)
	f.mu.Unlock()
	if h != nil {
		f.post(func() { h(&ble.DisconnectEvent{Handle: conn, Reason: reason}) })
	}
}

// Notify delivers a notification or indication on a live connection.
func (f *FakeHost) Notify(conn ble.ConnHandle, attrHandle uint16, data []byte, indication bool) {
	f.mu.Lock()
	h := f.conns[conn]
	f.mu.Unlock()
	if h != nil {
		f.post(func() {
			h(&ble.NotifyEvent{Handle: conn, AttrHandle: attrHandle, Data: data, Indication: indication})
		})
	}
}

func (f *FakeHost) SetDataLength(ble.ConnHandle, uint16, uint16) error { return f.SetDataLenErr }
func (f *FakeHost) SetPreferredMTU(uint16) error                       { return f.SetPrefMTUErr }

func (f *FakeHost) ExchangeMTU(conn ble.ConnHandle) error {
	if f.ExchangeMTUErr != nil {
		return f.ExchangeMTUErr
	}
	f.mu.Lock()
	h := f.conns[conn]
	mtu := f.NegotiatedMTU
	if mtu == 0 {
		mtu = DefaultMTU
	}
	f.mtus[conn] = mtu
	f.mu.Unlock()
	if h != nil {
		f.post(func() { h(&ble.MTUChangedEvent{Handle: conn, MTU: mtu}) })
	}
	return nil
}

func (f *FakeHost) SecurityInitiate(conn ble.ConnHandle) error {
	if f.SecurityInitErr != nil {
		return f.SecurityInitErr
	}
	f.mu.Lock()
	h := f.conns[conn]
	status := f.EncChangeStatus
	f.mu.Unlock()
	if h != nil {
		f.post(func() { h(&ble.EncChangeEvent{Handle: conn, Status: status}) })
	}
	return nil
}

func (f *FakeHost) MTU(conn ble.ConnHandle) uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if mtu, ok := f.mtus[conn]; ok {
		return mtu
	}
	return DefaultMTU
}

// SetMTU scripts the negotiated MTU for a connection.
func (f *FakeHost) SetMTU(conn ble.ConnHandle, mtu uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mtus[conn] = mtu
}

func replay[T any](f *FakeHost, recs []T, status uint16, h ble.DiscoveryHandler[T]) {
	if status == 0 {
		status = ble.StatusDone
	}
	f.post(func() {
		for i := range recs {
			rec := recs[i]
			h(&rec, 0)
		}
		h(nil, status)
	})
}

func (f *FakeHost) DiscoverServices(_ ble.ConnHandle, h ble.DiscoveryHandler[ble.ServiceRecord]) error {
	if f.DiscoverErr != nil {
		return f.DiscoverErr
	}
	replay(f, f.Services, f.ServiceStatus, h)
	return nil
}

func (f *FakeHost) DiscoverCharacteristics(_ ble.ConnHandle, startHandle, _ uint16, h ble.DiscoveryHandler[ble.CharacteristicRecord]) error {
	if f.DiscoverErr != nil {
		return f.DiscoverErr
	}
	replay(f, f.Characteristics[startHandle], f.CharacteristicStatus, h)
	return nil
}

func (f *FakeHost) DiscoverDescriptors(_ ble.ConnHandle, chrValHandle, _ uint16, h ble.DiscoveryHandler[ble.DescriptorRecord]) error {
	if f.DiscoverErr != nil {
		return f.DiscoverErr
	}
	replay(f, f.Descriptors[chrValHandle], f.DescriptorStatus, h)
	return nil
}

func (f *FakeHost) Write(conn ble.ConnHandle, attrHandle uint16, data []byte, h ble.WriteHandler) error {
	if f.WriteErr != nil {
		return f.WriteErr
	}
	f.mu.Lock()
	f.writes = append(f.writes, WriteRecord{Conn: conn, AttrHandle: attrHandle, Data: append([]byte(nil), data...)})
	status := f.WriteStatus
	f.mu.Unlock()
	f.post(func() { h(status) })
	return nil
}

func (f *FakeHost) WriteNoResponse(conn ble.ConnHandle, attrHandle uint16, data []byte) error {
	if f.WriteErr != nil {
		return f.WriteErr
	}
	f.mu.Lock()
	f.writes = append(f.writes, WriteRecord{Conn: conn, AttrHandle: attrHandle, Data: append([]byte(nil), data...), NoResponse: true})
	f.mu.Unlock()
	return nil
}

// Writes snapshots the submitted write requests.
func (f *FakeHost) Writes() []WriteRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]WriteRecord(nil), f.writes...)
}
