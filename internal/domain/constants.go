package domain

// Bonding curve constants. These mirror the pump.fun reserve model and are
// a fixed contract: progress numbers must be reproducible bit-for-bit.
const (
	// TotalSupplyDefault is assumed when the upstream reports no supply.
	TotalSupplyDefault = 1_000_000_000.0

	// ReservedTokens is the portion of supply held outside the curve.
	ReservedTokens = 206_900_000.0

	// InitialRealReserves is the tradable reserve before any sale.
	InitialRealReserves = TotalSupplyDefault - ReservedTokens
)

// RaydiumVenue is the DEX protocol name that marks a migrated token.
const RaydiumVenue = "raydium"

// WSOLMint is the wrapped SOL mint address. Transfers of this currency are
// what the stream subscription filters on; the default creation predicate
// matches it as well.
const WSOLMint = "So11111111111111111111111111111111111111112"
