package domain

// Developer aggregates per-wallet statistics across tokens the wallet
// created. Corresponds to the developers table in PostgreSQL.
// Counts only grow, except when recomputed from the creator's tokens.
type Developer struct {
	WalletAddress string // primary key
	FirstSeen     int64  // ms

	TokensCreated         int
	KingOfHillTokens      int
	RaydiumMigratedTokens int
	TotalVolumeGenerated  float64

	HighestMcapToken *string  // address of best token (nullable)
	HighestMcapValue *float64 // its market cap (nullable)

	LastTokenCreated *int64 // ms (nullable)
	LastUpdated      int64  // ms
}
