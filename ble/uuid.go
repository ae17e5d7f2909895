package ble

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// UUIDKind tags the width of a UUID value.
type UUIDKind uint8

const (
	// UUIDInvalid is the zero value; only produced by an uninitialized UUID.
	UUIDInvalid UUIDKind = iota
	// UUID16 is a 16-bit Bluetooth SIG assigned identifier.
	UUID16
	// UUID128 is a full 128-bit identifier.
	UUID128
)

// UUID is a 16-bit or 128-bit attribute identifier.
//
// Bytes are stored little-endian, as they appear on the wire; the textual
// form is big-endian (human-readable) hex. A UUID is a cheap value type and
// is comparable only through Equal: two UUIDs of different widths are never
// equal, regardless of value.
type UUID struct {
	kind UUIDKind
	b    [16]byte
}

// NewUUID16 builds a 16-bit UUID from its numeric value.
func NewUUID16(v uint16) UUID {
	var u UUID
	u.kind = UUID16
	u.b[0] = byte(v)
	u.b[1] = byte(v >> 8)
	return u
}

// ParseUUID parses a hex UUID string. Dashes are stripped first; the
// remaining string must be exactly 4 digits (16-bit) or 32 digits (128-bit).
// Any other length is a ConfigError.
func ParseUUID(s string) (UUID, error) {
	stripped := strings.ReplaceAll(s, "-", "")
	switch len(stripped) {
	case 4, 32:
	default:
		return UUID{}, &ConfigError{Field: "uuid", Value: s, Reason: "length must be 4 or 32 hex digits"}
	}

	raw, err := hex.DecodeString(stripped)
	if err != nil {
		return UUID{}, &ConfigError{Field: "uuid", Value: s, Reason: "invalid hex"}
	}

	var u UUID
	if len(raw) == 2 {
		u.kind = UUID16
	} else {
		u.kind = UUID128
	}
	// Textual form is big-endian; stored form is little-endian.
	for i, v := range raw {
		u.b[len(raw)-1-i] = v
	}
	return u, nil
}

// MustUUID is ParseUUID for compile-time constants; it panics on bad input.
func MustUUID(s string) UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Kind returns the width tag of the UUID.
func (u UUID) Kind() UUIDKind { return u.kind }

// Uint16 returns the numeric value of a 16-bit UUID. It panics on any other
// width; callers must check Kind first.
func (u UUID) Uint16() uint16 {
	if u.kind != UUID16 {
		panic(fmt.Sprintf("ble: Uint16 on UUID of kind %d", u.kind))
	}
	return uint16(u.b[1])<<8 | uint16(u.b[0])
}

// Equal reports whether two UUIDs have the same width and value.
func (u UUID) Equal(other UUID) bool {
	if u.kind != other.kind {
		return false
	}
	switch u.kind {
	case UUID16:
		return u.b[0] == other.b[0] && u.b[1] == other.b[1]
	case UUID128:
		return u.b == other.b
	default:
		panic(fmt.Sprintf("ble: Equal on UUID of kind %d", u.kind))
	}
}

// String formats the UUID in canonical lowercase hex: 4 digits for a 16-bit
// value, dash-separated 8-4-4-4-12 for a 128-bit value. It panics on an
// invalid width tag; that is a programming error, not a runtime condition.
func (u UUID) String() string {
	switch u.kind {
	case UUID16:
		return fmt.Sprintf("%02x%02x", u.b[1], u.b[0])
	case UUID128:
		be := make([]byte, 16)
		for i := 0; i < 16; i++ {
			be[i] = u.b[15-i]
		}
		s := hex.EncodeToString(be)
		return s[0:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:32]
	default:
		panic(fmt.Sprintf("ble: String on UUID of kind %d", u.kind))
	}
}
