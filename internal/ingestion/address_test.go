package ingestion

import (
	"testing"

	"github.com/mr-tron/base58"
)

// curvePointAddress returns the base58 encoding of the ed25519 base
// point, which is by construction on the curve.
func curvePointAddress() string {
	b := make([]byte, 32)
	b[0] = 0x58
	for i := 1; i < 32; i++ {
		b[i] = 0x66
	}
	return base58.Encode(b)
}

func TestValidAddress(t *testing.T) {
	if !ValidAddress(curvePointAddress()) {
		t.Error("base point encoding must be valid")
	}

	cases := []struct {
		name string
		addr string
	}{
		{"empty", ""},
		{"not base58", "0OIl+/="},
		{"too short", base58.Encode([]byte{1, 2, 3})},
		{"too long", base58.Encode(make([]byte, 64))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if ValidAddress(tc.addr) {
				t.Errorf("%q must be invalid", tc.addr)
			}
		})
	}
}
