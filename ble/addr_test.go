package ble

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddrString(t *testing.T) {
	// Stored least significant byte first; printed most significant first.
	a := Addr{Val: [6]byte{0xf3, 0xe5, 0x31, 0x71, 0x56, 0x38}}
	assert.Equal(t, "38:56:71:31:E5:F3", a.String())
}

func TestAddrComparable(t *testing.T) {
	a := Addr{Type: AddrTypePublic, Val: [6]byte{1, 2, 3, 4, 5, 6}}
	b := Addr{Type: AddrTypePublic, Val: [6]byte{1, 2, 3, 4, 5, 6}}
	c := Addr{Type: AddrTypeRandom, Val: [6]byte{1, 2, 3, 4, 5, 6}}

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	// Usable as a map key.
	m := map[Addr]string{a: "x"}
	assert.Equal(t, "x", m[b])
}
