package ble

import "fmt"

// Address types as reported by the link layer.
const (
	AddrTypePublic uint8 = iota
	AddrTypeRandom
	AddrTypeRPAPublic
	AddrTypeRPARandom
)

// Addr identifies a peer by its 6-byte link-layer address plus address-type
// tag. Val is stored least-significant byte first, as on the wire. Addr is
// comparable and cheap to copy; equality covers the raw bytes and the type,
// nothing derived.
type Addr struct {
	Type uint8
	Val  [6]byte
}

// String prints the address most-significant byte first, colon separated.
func (a Addr) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		a.Val[5], a.Val[4], a.Val[3], a.Val[2], a.Val[1], a.Val[0])
}
