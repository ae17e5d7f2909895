//go:build linux

package goble

import (
	"encoding/hex"
	"fmt"
	"strings"

	blelib "github.com/go-ble/ble"

	"github.com/padctl/padctl/ble"
)

// parseAddr converts a colon-separated MAC string into the wire address
// layout (least significant byte first).
func parseAddr(s string) (ble.Addr, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return ble.Addr{}, fmt.Errorf("malformed address %q", s)
	}
	var a ble.Addr
	for i, p := range parts {
		b, err := hex.DecodeString(p)
		if err != nil || len(b) != 1 {
			return ble.Addr{}, fmt.Errorf("malformed address %q", s)
		}
		a.Val[5-i] = b[0]
	}
	return a, nil
}

// synthesizeAdvData rebuilds a minimal AD payload from the parsed
// advertisement, carrying just the complete local name.
func synthesizeAdvData(name string) []byte {
	if name == "" {
		return nil
	}
	data := make([]byte, 0, len(name)+2)
	data = append(data, byte(len(name)+1), 0x09)
	return append(data, name...)
}

// fromLibUUID converts a go-ble UUID (little-endian byte slice) into the
// tagged UUID value.
func fromLibUUID(u blelib.UUID) ble.UUID {
	switch len(u) {
	case 2:
		return ble.NewUUID16(uint16(u[0]) | uint16(u[1])<<8)
	case 16:
		be := make([]byte, 16)
		for i := range u {
			be[15-i] = u[i]
		}
		return ble.MustUUID(hex.EncodeToString(be))
	default:
		// go-ble also produces 4-byte UUIDs for 32-bit identifiers; widen
		// them to the canonical 128-bit base form.
		return ble.MustUUID(fmt.Sprintf("%08x-0000-1000-8000-00805f9b34fb", reverse32(u)))
	}
}

func reverse32(u blelib.UUID) uint32 {
	var v uint32
	for i := len(u) - 1; i >= 0; i-- {
		v = v<<8 | uint32(u[i])
	}
	return v
}
