package domain

// MetricsSnapshot holds one round of derived metrics for a token.
// Snapshots are transient: they are folded into Token fields, never
// stored as-is. Missing upstream values are zeroes, not errors.
type MetricsSnapshot struct {
	Price       float64
	MarketCap   float64
	Volume24h   float64 // native denomination
	VolumeUSD24h float64
	TotalSupply float64
	ComputedAt  int64 // ms
}

// BondingCurveState is the result of a bonding curve progress derivation.
type BondingCurveState struct {
	Progress    float64 // [0,100]
	LeftTokens  float64
	TotalSupply float64
	HolderCount int
}

// MigrationStatus reports whether a token has trades on the migration
// venue and when the latest one was observed.
type MigrationStatus struct {
	Migrated      bool
	MigrationTime *int64 // ms (nil when unknown)
}

// Holder is one entry of a token holder listing.
type Holder struct {
	Address string
	Amount  float64
}
