package ble

import "time"

// ConnHandle identifies a live connection within the host.
type ConnHandle uint16

// StatusDone is the terminal status code carried by the completion event of a
// discovery procedure. Any other non-zero status on a completion event is a
// remote failure.
const StatusDone uint16 = 14

// Forever disables the host-enforced duration limit on a discovery request.
const Forever time.Duration = -1

// Properties is the GATT characteristic property bitmask.
type Properties uint8

const (
	PropBroadcast       Properties = 0x01
	PropRead            Properties = 0x02
	PropWriteNoResponse Properties = 0x04
	PropWrite           Properties = 0x08
	PropNotify          Properties = 0x10
	PropIndicate        Properties = 0x20
)

// HostConfig carries host startup parameters.
type HostConfig struct {
	// OnReset is invoked with the reset reason if the host resets itself.
	OnReset func(reason int)
	// OnSync is invoked once the host and controller are in sync and ready
	// to accept requests. It runs on a host-owned goroutine.
	OnSync func()

	// Bonding enables persistent pairing. Key distribution masks select which
	// key sets the local and remote side exchange.
	Bonding      bool
	OurKeyDist   uint8
	TheirKeyDist uint8
}

// ScanParams configures a discovery request.
type ScanParams struct {
	Passive          bool
	FilterDuplicates bool
	Limited          bool
	// Interval and Window are in 0.625 ms link-layer units.
	Interval uint16
	Window   uint16
	// FilterPolicy 0 accepts all advertisers (no allow-list).
	FilterPolicy uint8
}

// GAPEvent is an event delivered by the host for one connection, routed to
// the handler installed with Connect.
type GAPEvent interface {
	isGAPEvent()
}

// ConnectEvent reports completion of a connect request. Status zero means
// the link came up; the connection is not yet usable by the application
// until setup finishes.
type ConnectEvent struct {
	Handle ConnHandle
	Status int
}

// DisconnectEvent reports link termination. It carries only the handle; the
// peer address must be recovered from the registry.
type DisconnectEvent struct {
	Handle ConnHandle
	Reason int
}

// EncChangeEvent reports completion of the link security handshake.
type EncChangeEvent struct {
	Handle ConnHandle
	Status int
}

// MTUChangedEvent reports completion of the ATT MTU exchange.
type MTUChangedEvent struct {
	Handle ConnHandle
	MTU    uint16
	Status int
}

// NotifyEvent carries an incoming notification or indication payload.
type NotifyEvent struct {
	Handle     ConnHandle
	AttrHandle uint16
	Data       []byte
	Indication bool
}

func (*ConnectEvent) isGAPEvent()    {}
func (*DisconnectEvent) isGAPEvent() {}
func (*EncChangeEvent) isGAPEvent()  {}
func (*MTUChangedEvent) isGAPEvent() {}
func (*NotifyEvent) isGAPEvent()     {}

// GAPHandler receives GAP events for one connection. Handlers run on the
// host dispatch goroutine and must not block.
type GAPHandler func(GAPEvent)

// ScanEvent is either a ScanResult or a ScanComplete.
type ScanEvent interface {
	isScanEvent()
}

// ScanResult reports one received advertisement.
type ScanResult struct {
	Addr Addr
	RSSI int8
	// Data is the raw advertising payload (AD structures).
	Data []byte
}

// ScanComplete reports the end of a bounded discovery procedure.
type ScanComplete struct {
	Reason int
}

func (*ScanResult) isScanEvent()   {}
func (*ScanComplete) isScanEvent() {}

// ScanHandler receives scan events on the host dispatch goroutine.
type ScanHandler func(ScanEvent)

// ServiceRecord is one service discovery result.
type ServiceRecord struct {
	StartHandle uint16
	EndHandle   uint16
	UUID        UUID
}

// CharacteristicRecord is one characteristic discovery result. The host
// reports no end handle; it is derived afterwards from the neighbouring
// definition handles.
type CharacteristicRecord struct {
	DefHandle  uint16
	ValHandle  uint16
	Properties Properties
	UUID       UUID
}

// DescriptorRecord is one descriptor discovery result.
type DescriptorRecord struct {
	Handle uint16
	UUID   UUID
}

// DiscoveryHandler receives discovery events: zero or more results
// (rec != nil, status 0) followed by exactly one completion
// (rec == nil, status != 0; StatusDone on success).
type DiscoveryHandler[T any] func(rec *T, status uint16)

// WriteHandler receives the peer status for a write-with-response request.
type WriteHandler func(status uint16)

// Host is the native BLE central host. Implementations own a dispatch
// goroutine that delivers every callback; request submission never blocks on
// the remote peer. Submission failures are reported as *HostRequestError.
type Host interface {
	// Start brings the host and controller up. Readiness is signalled
	// asynchronously through cfg.OnSync.
	Start(cfg HostConfig) error
	// Stop halts the host event loop.
	Stop() error
	// Deinit releases host and controller resources. Only valid after a
	// successful Stop.
	Deinit() error

	// InferOwnAddrType determines the local address type to use for
	// scanning and connecting.
	InferOwnAddrType() (uint8, error)

	Discover(ownAddrType uint8, duration time.Duration, params ScanParams, h ScanHandler) error
	// DiscoverCancel stops an active discovery procedure. Cancelling when no
	// scan is active is not an error.
	DiscoverCancel() error
	// FlushDuplicateCache clears the controller's duplicate-filter cache.
	FlushDuplicateCache() error

	// Connect initiates a connection. All subsequent GAP events for the
	// resulting connection are delivered to h.
	Connect(ownAddrType uint8, peer Addr, timeout time.Duration, h GAPHandler) error
	// ConnCancel aborts an in-flight connect attempt, if any.
	ConnCancel() error
	Terminate(conn ConnHandle, reason uint8) error

	SetDataLength(conn ConnHandle, txOctets, txTime uint16) error
	SetPreferredMTU(mtu uint16) error
	ExchangeMTU(conn ConnHandle) error
	SecurityInitiate(conn ConnHandle) error
	// MTU returns the negotiated ATT MTU for the connection.
	MTU(conn ConnHandle) uint16

	DiscoverServices(conn ConnHandle, h DiscoveryHandler[ServiceRecord]) error
	DiscoverCharacteristics(conn ConnHandle, startHandle, endHandle uint16, h DiscoveryHandler[CharacteristicRecord]) error
	DiscoverDescriptors(conn ConnHandle, chrValHandle, endHandle uint16, h DiscoveryHandler[DescriptorRecord]) error

	Write(conn ConnHandle, attrHandle uint16, data []byte, h WriteHandler) error
	WriteNoResponse(conn ConnHandle, attrHandle uint16, data []byte) error
}
