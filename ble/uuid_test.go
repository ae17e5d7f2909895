package ble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUUID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind UUIDKind
		wantStr  string
		wantErr  bool
	}{
		{
			name:     "16-bit",
			input:    "2902",
			wantKind: UUID16,
			wantStr:  "2902",
		},
		{
			name:     "128-bit with dashes",
			input:    "100f6c32-1735-4313-b402-38567131e5f3",
			wantKind: UUID128,
			wantStr:  "100f6c32-1735-4313-b402-38567131e5f3",
		},
		{
			name:     "128-bit without dashes",
			input:    "100f6c3217354313b40238567131e5f3",
			wantKind: UUID128,
			wantStr:  "100f6c32-1735-4313-b402-38567131e5f3",
		},
		{
			name:     "uppercase input normalized to lowercase",
			input:    "100F6C33-1735-4313-B402-38567131E5F3",
			wantKind: UUID128,
			wantStr:  "100f6c33-1735-4313-b402-38567131e5f3",
		},
		{
			name:    "wrong length",
			input:   "123",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "non-hex",
			input:   "zzzz",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseUUID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				var cfgErr *ConfigError
				assert.ErrorAs(t, err, &cfgErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, u.Kind())
			assert.Equal(t, tt.wantStr, u.String())
		})
	}
}

func TestParseUUIDRoundTrip(t *testing.T) {
	for _, s := range []string{
		"2902",
		"180f",
		"100f6c32-1735-4313-b402-38567131e5f3",
	} {
		u, err := ParseUUID(s)
		require.NoError(t, err)
		again, err := ParseUUID(u.String())
		require.NoError(t, err)
		assert.True(t, u.Equal(again), "round trip changed %s", s)
	}
}

func TestUUID16Numeric(t *testing.T) {
	u := NewUUID16(0x2902)
	assert.Equal(t, uint16(0x2902), u.Uint16())
	assert.Equal(t, "2902", u.String())

	parsed, err := ParseUUID("2902")
	require.NoError(t, err)
	assert.True(t, u.Equal(parsed))
}

func TestUUIDEqual(t *testing.T) {
	u16 := NewUUID16(0x180f)
	u128 := MustUUID("0000180f-0000-1000-8000-00805f9b34fb")

	assert.True(t, u16.Equal(NewUUID16(0x180f)))
	assert.False(t, u16.Equal(NewUUID16(0x1810)))

	// Widths never compare equal, even for the same assigned number.
	assert.False(t, u16.Equal(u128))
	assert.False(t, u128.Equal(u16))
}

func TestUUIDInvalidKindPanics(t *testing.T) {
	var u UUID
	assert.Panics(t, func() { _ = u.String() })
	assert.Panics(t, func() { _ = u.Equal(u) })
	assert.Panics(t, func() { _ = u.Uint16() })
}

func TestMustUUIDPanicsOnBadInput(t *testing.T) {
	assert.Panics(t, func() { MustUUID("nope") })
	assert.NotPanics(t, func() { MustUUID("2a00") })
}
