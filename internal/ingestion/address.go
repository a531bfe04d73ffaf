package ingestion

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidAddress reports whether s is a plausible Solana wallet address:
// base58, 32 bytes, and on the ed25519 curve. Program derived addresses
// are off-curve and rejected.
func ValidAddress(s string) bool {
	if s == "" {
		return false
	}
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != 32 {
		return false
	}
	return isOnCurve(raw)
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
